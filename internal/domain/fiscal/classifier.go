// Package fiscal contém a lógica pura de classificação de documentos
// fiscais: direção (emitido/recebido) a partir do CNPJ e mapeamento dos
// textos livres de manifestação dos provedores para o status normalizado.
package fiscal

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// NormalizeTaxID remove tudo que não for dígito do CNPJ/CPF.
// Aceita "12.345.678/0001-90", "123.456.789-09" ou o valor já limpo.
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, r := range taxID {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ClassifyDirection compara o CNPJ da empresa com o do emitente do documento.
// Iguais (após normalização) ⇒ emitido pela empresa; diferentes ⇒ recebido.
func ClassifyDirection(companyTaxID, senderTaxID string) string {
	if NormalizeTaxID(companyTaxID) == NormalizeTaxID(senderTaxID) {
		return entity.DirectionIssued
	}
	return entity.DirectionReceived
}

// normalizeStatusText prepara o texto de manifestação para comparação:
// caixa alta, sem acentos e sem espaços nas pontas. "Confirmação" e
// "CONFIRMACAO" devem casar com a mesma regra.
func normalizeStatusText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}

// Termos reconhecidos nos eventos de manifestação. A ausência de um termo
// reconhecido nunca produz CONFIRMED nem REJECTED: sem informação, o
// documento permanece RECEIVED.
var (
	nfeConfirmTerms = []string{"CONFIRMACAO DA OPERACAO", "CONFIRMACAO DE OPERACAO", "OPERACAO CONFIRMADA"}
	nfeRejectTerms  = []string{"DESCONHECIMENTO DA OPERACAO", "OPERACAO NAO REALIZADA", "NAO REALIZACAO DA OPERACAO"}
	cteCancelTerms  = []string{"CANCELAMENTO", "CANCELADO", "CANCELADA"}
)

// ClassifyStatus mapeia o texto livre de status/manifestação do provedor para
// o status normalizado do documento.
//
// CT-e: "DESACORDO" sem termo de cancelamento ⇒ REJECTED (prestação em
// desacordo registrada); "DESACORDO" com cancelamento ⇒ CONFIRMED (o próprio
// desacordo foi cancelado, o documento volta a valer). Qualquer outro texto
// ⇒ RECEIVED.
//
// NF-e: confirmação da operação ⇒ CONFIRMED; desconhecimento ou operação não
// realizada ⇒ REJECTED; demais textos ⇒ RECEIVED.
func ClassifyStatus(documentType, providerStatus string) string {
	text := normalizeStatusText(providerStatus)
	if text == "" {
		return entity.StatusReceived
	}

	switch documentType {
	case entity.DocumentTypeCTE:
		if strings.Contains(text, "DESACORDO") {
			for _, term := range cteCancelTerms {
				if strings.Contains(text, term) {
					return entity.StatusConfirmed
				}
			}
			return entity.StatusRejected
		}
		return entity.StatusReceived

	case entity.DocumentTypeNFE:
		for _, term := range nfeConfirmTerms {
			if strings.Contains(text, term) {
				return entity.StatusConfirmed
			}
		}
		for _, term := range nfeRejectTerms {
			if strings.Contains(text, term) {
				return entity.StatusRejected
			}
		}
		return entity.StatusReceived
	}

	// NFS-e e tipos futuros: sem eventos de manifestação padronizados.
	return entity.StatusReceived
}
