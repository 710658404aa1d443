// Package fiscalxml converte XML de documentos fiscais eletrônicos (NF-e,
// CT-e, NFS-e) no registro canônico ParsedInvoice. Os emissores e provedores
// envolvem o conteúdo de formas inconsistentes (processado com protocolo,
// raiz nua, lotes aninhados), então cada esquema procura sua raiz em várias
// posições conhecidas.
package fiscalxml

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// MaxDocumentSize é o teto de tamanho aceito para um XML individual (10 MB).
// Controle de exaustão de recursos: o chamador deve rejeitar antes do parse.
const MaxDocumentSize = 10 << 20

// minAccessKeyLen é o mínimo de uma chave de acesso NF-e/CT-e (44 dígitos).
const minAccessKeyLen = 44

// minNFSeKeyLen é o mínimo da chave composta sintetizada para NFS-e
// (CNPJ do prestador + número + código de verificação).
const minNFSeKeyLen = 20

type extractor func(doc *etree.Document) *entity.ParsedInvoice

// Parser converte bytes XML em ParsedInvoice tentando os esquemas em ordem
// fixa de prioridade: NFE → CTE → NFSE (do mais comum ao menos comum).
// Cada tentativa é independente e sem efeitos colaterais; a primeira que
// produz registro com chave de acesso válida vence.
type Parser struct {
	extractors []extractor
}

// New constrói o parser com a cadeia de esquemas na ordem de prioridade.
func New() *Parser {
	return &Parser{
		extractors: []extractor{
			extractNFE,
			extractCTE,
			extractNFSE,
		},
	}
}

// Parse retorna o registro canônico ou nil quando nenhum esquema reconhece o
// conteúdo ou a chave de acesso obrigatória não pode ser derivada. Entrada
// malformada é caso esperado e comum (XML editado à mão ou mutilado pelo
// provedor): nunca retorna erro.
func (p *Parser) Parse(raw []byte) *entity.ParsedInvoice {
	if len(raw) == 0 || len(raw) > MaxDocumentSize {
		return nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil
	}
	if doc.Root() == nil {
		return nil
	}
	for _, extract := range p.extractors {
		if parsed := extract(doc); parsed != nil {
			return parsed
		}
	}
	return nil
}

// ── helpers compartilhados pelos esquemas ─────────────────────────────────────

// findFirst devolve o primeiro elemento encontrado entre os caminhos dados.
func findFirst(doc *etree.Document, paths ...string) *etree.Element {
	for _, path := range paths {
		if el := doc.FindElement(path); el != nil {
			return el
		}
	}
	return nil
}

// childText devolve o texto do primeiro caminho filho não vazio.
func childText(el *etree.Element, paths ...string) string {
	if el == nil {
		return ""
	}
	for _, path := range paths {
		if child := el.FindElement(path); child != nil {
			if text := strings.TrimSpace(child.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// parseDecimal converte o campo monetário; ausente ou inválido vira zero.
// Política deliberada: documento parcial ainda deve ser importável.
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// layouts de data encontrados nos documentos reais, do mais ao menos preciso.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate tenta os layouts conhecidos; sem nenhum campo de data o fallback
// é "agora" (política explícita: o documento fica visível para revisão).
func parseDate(values ...string) time.Time {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Now()
}

// onlyDigits mantém apenas os dígitos de s.
func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripKeyPrefix remove o prefixo de tipo do atributo Id ("NFe3519..." →
// "3519...", idem "CTe"). O restante deve ser a chave de 44 dígitos.
func stripKeyPrefix(id, prefix string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, prefix) {
		id = id[len(prefix):]
	}
	return id
}

// validAccessKey valida a chave de NF-e/CT-e: só dígitos e tamanho ≥ 44.
func validAccessKey(key string) bool {
	key = strings.TrimSpace(key)
	return len(key) >= minAccessKeyLen && key == onlyDigits(key)
}

// padNumber preenche o número do documento com zeros à esquerda até width.
func padNumber(number string, width int) string {
	number = strings.TrimSpace(number)
	for len(number) < width {
		number = "0" + number
	}
	return number
}
