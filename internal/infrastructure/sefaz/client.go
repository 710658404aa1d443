// Package sefaz implementa o cliente da Distribuição DF-e (NFeDistribuicaoDFe):
// consulta incremental por NSU dos documentos fiscais destinados ao CNPJ da
// empresa. É o provedor concreto por trás do porto sync.NSUProvider.
package sefaz

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	appsync "github.com/fiscalhub/notas-api/internal/application/sync"
	"github.com/fiscalhub/notas-api/internal/domain/fiscal"
	"github.com/fiscalhub/notas-api/pkg/logger"
)

// ── Constantes de ambiente ────────────────────────────────────────────────────

const (
	// EnvProducao identificador do ambiente de produção (tpAmb = 1).
	EnvProducao = "1"
	// EnvHomologacao identificador do ambiente de homologação (tpAmb = 2).
	EnvHomologacao = "2"

	urlProducao    = "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx"
	urlHomologacao = "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx"

	soapAction = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe/nfeDistDFeInteresse"

	// Códigos de retorno do WS.
	cStatDocumentosLocalizados = "138"
	cStatNenhumDocumento       = "137"
)

// Config do cliente de distribuição.
type Config struct {
	Environment string // "1" produção, "2" homologação
	UFAutor     string // código IBGE da UF do autor da consulta
	Timeout     time.Duration
}

// Client implementa sync.NSUProvider contra o WS SOAP da SEFAZ. Após três
// falhas consecutivas o circuito abre e as varreduras seguintes falham
// rápido até o WS voltar.
type Client struct {
	httpClient *http.Client
	cfg        Config
	breaker    *gobreaker.CircuitBreaker[*retDistDFeInt]
	log        *logger.Logger

	// endpointOverride substitui a URL do WS nos testes.
	endpointOverride string
}

var _ appsync.NSUProvider = (*Client)(nil)

// NewClient constrói o cliente com timeout generoso: o WS da SEFAZ pode
// levar vários segundos para montar um lote.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*retDistDFeInt](gobreaker.Settings{
		Name:    "sefaz-distribuicao",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		breaker:    breaker,
		log:        log,
	}
}

// ── Estruturas SOAP ───────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap12:Envelope"`
	XmlnsS  string   `xml:"xmlns:soap12,attr"`
	Body    soapBody `xml:"soap12:Body"`
}

type soapBody struct {
	Content any
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soap12:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// nfeDistDFeInteresse operação de consulta da distribuição.
type nfeDistDFeInteresse struct {
	XMLName xml.Name   `xml:"nfeDistDFeInteresse"`
	Xmlns   string     `xml:"xmlns,attr"`
	Dados   distDFeInt `xml:"nfeDadosMsg>distDFeInt"`
}

type distDFeInt struct {
	Versao  string  `xml:"versao,attr"`
	TpAmb   string  `xml:"tpAmb"`
	CUFAut  string  `xml:"cUFAutor"`
	CNPJ    string  `xml:"CNPJ"`
	DistNSU distNSU `xml:"distNSU"`
}

type distNSU struct {
	UltNSU string `xml:"ultNSU"`
}

// retDistDFeInt resposta do WS (já desembrulhada do envelope SOAP).
type retDistDFeInt struct {
	CStat   string   `xml:"cStat"`
	XMotivo string   `xml:"xMotivo"`
	UltNSU  string   `xml:"ultNSU"`
	MaxNSU  string   `xml:"maxNSU"`
	Lote    loteDist `xml:"loteDistDFeInt"`
}

type loteDist struct {
	DocZip []docZip `xml:"docZip"`
}

type docZip struct {
	NSU     string `xml:"NSU,attr"`
	Schema  string `xml:"schema,attr"`
	Content string `xml:",chardata"` // gzip do XML, em Base64
}

// ── Consulta ──────────────────────────────────────────────────────────────────

// FetchSince consulta os documentos posteriores a lastNSU para o CNPJ dado.
// Retorna lote vazio (sem erro) quando o WS informa que não há documentos.
func (c *Client) FetchSince(ctx context.Context, taxID, lastNSU string) (*appsync.NSUBatch, error) {
	ret, err := c.breaker.Execute(func() (*retDistDFeInt, error) {
		return c.call(ctx, fiscal.NormalizeTaxID(taxID), lastNSU)
	})
	if err != nil {
		return nil, err
	}

	switch ret.CStat {
	case cStatNenhumDocumento:
		return &appsync.NSUBatch{LastNSU: lastNSU, MaxNSU: ret.MaxNSU}, nil
	case cStatDocumentosLocalizados:
		// segue para a decodificação do lote
	default:
		return nil, fmt.Errorf("sefaz: cStat %s: %s", ret.CStat, ret.XMotivo)
	}

	batch := &appsync.NSUBatch{LastNSU: ret.UltNSU, MaxNSU: ret.MaxNSU}
	for _, doc := range ret.Lote.DocZip {
		// Resumos (resNFe) e eventos avulsos não são documentos completos;
		// o conteúdo integral chega em NSUs posteriores como procNFe.
		if !strings.Contains(doc.Schema, "procNFe") && !strings.Contains(doc.Schema, "procCTe") {
			c.log.Debug().Str("nsu", doc.NSU).Str("schema", doc.Schema).Msg("docZip ignorado (não é documento completo)")
			continue
		}
		raw, err := decodeDocZip(doc.Content)
		if err != nil {
			// Documento mutilado pelo provedor: pula, os demais do lote seguem.
			c.log.Warn().Err(err).Str("nsu", doc.NSU).Msg("docZip ilegível")
			continue
		}
		batch.Docs = append(batch.Docs, appsync.ProviderDocument{ID: doc.NSU, Raw: raw})
	}
	return batch, nil
}

func (c *Client) call(ctx context.Context, cnpj, lastNSU string) (*retDistDFeInt, error) {
	payload := soapEnvelope{
		XmlnsS: "http://www.w3.org/2003/05/soap-envelope",
		Body: soapBody{Content: nfeDistDFeInteresse{
			Xmlns: "http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe",
			Dados: distDFeInt{
				Versao:  "1.01",
				TpAmb:   c.cfg.Environment,
				CUFAut:  c.cfg.UFAutor,
				CNPJ:    cnpj,
				DistNSU: distNSU{UltNSU: padNSU(lastNSU)},
			},
		}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("montar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), &buf)
	if err != nil {
		return nil, fmt.Errorf("montar request: %w", err)
	}
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="`+soapAction+`"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chamar WS: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, fmt.Errorf("ler resposta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("WS respondeu HTTP %d", resp.StatusCode)
	}
	return parseResponse(body)
}

func (c *Client) endpoint() string {
	if c.endpointOverride != "" {
		return c.endpointOverride
	}
	if c.cfg.Environment == EnvProducao {
		return urlProducao
	}
	return urlHomologacao
}

// parseResponse localiza retDistDFeInt dentro do envelope de resposta sem
// depender da estrutura exata do embrulho SOAP (varia entre gateways).
func parseResponse(body []byte) (*retDistDFeInt, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("resposta sem retDistDFeInt")
		}
		if err != nil {
			return nil, fmt.Errorf("decodificar resposta: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "retDistDFeInt" {
			var ret retDistDFeInt
			if err := dec.DecodeElement(&ret, &start); err != nil {
				return nil, fmt.Errorf("decodificar retDistDFeInt: %w", err)
			}
			return &ret, nil
		}
	}
}

// decodeDocZip desfaz Base64 + gzip do conteúdo de um docZip.
func decodeDocZip(content string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("descomprimir: %w", err)
	}
	return raw, nil
}

// padNSU normaliza o NSU para os 15 dígitos com zeros à esquerda que o WS
// exige (e que mantêm a comparação lexicográfica igual à numérica).
func padNSU(nsu string) string {
	nsu = strings.TrimSpace(nsu)
	if nsu == "" {
		nsu = "0"
	}
	for len(nsu) < 15 {
		nsu = "0" + nsu
	}
	return nsu
}
