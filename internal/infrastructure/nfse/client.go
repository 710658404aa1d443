// Package nfse implementa o cliente do agregador municipal de NFS-e. Ao
// contrário da distribuição da SEFAZ, os agregadores não expõem NSU; a
// consulta é por janela de datas de emissão, e é o provedor concreto por
// trás do porto sync.WindowProvider.
package nfse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appsync "github.com/fiscalhub/notas-api/internal/application/sync"
	"github.com/fiscalhub/notas-api/internal/domain/fiscal"
	"github.com/fiscalhub/notas-api/pkg/logger"
)

const dateLayout = "2006-01-02"

// Config do cliente do agregador.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client consulta documentos NFS-e por janela de emissão.
type Client struct {
	httpClient *http.Client
	cfg        Config
	log        *logger.Logger
}

var _ appsync.WindowProvider = (*Client)(nil)

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

// documentoNFSe item da resposta do agregador. O XML vem em Base64 para não
// brigar com o escape JSON.
type documentoNFSe struct {
	ID        string `json:"id"`
	Situacao  string `json:"situacao"`
	XMLBase64 string `json:"xml_base64"`
}

type listaResposta struct {
	Documentos []documentoNFSe `json:"documentos"`
	Pagina     int             `json:"pagina"`
	TotalPags  int             `json:"total_paginas"`
}

// ListDocuments busca todos os documentos emitidos dentro da janela,
// percorrendo a paginação do agregador até o fim.
func (c *Client) ListDocuments(ctx context.Context, taxID string, start, end time.Time) ([]appsync.ProviderDocument, error) {
	var out []appsync.ProviderDocument
	for page := 1; ; page++ {
		resp, err := c.listPage(ctx, fiscal.NormalizeTaxID(taxID), start, end, page)
		if err != nil {
			return nil, err
		}
		for _, doc := range resp.Documentos {
			raw, err := base64.StdEncoding.DecodeString(doc.XMLBase64)
			if err != nil {
				c.log.Warn().Err(err).Str("id", doc.ID).Msg("XML de NFS-e ilegível")
				continue
			}
			out = append(out, appsync.ProviderDocument{
				ID:             doc.ID,
				Raw:            raw,
				ProviderStatus: doc.Situacao,
			})
		}
		if resp.TotalPags == 0 || page >= resp.TotalPags {
			return out, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, cnpj string, start, end time.Time, page int) (*listaResposta, error) {
	q := url.Values{}
	q.Set("cnpj", cnpj)
	q.Set("emissao_inicio", start.UTC().Format(dateLayout))
	q.Set("emissao_fim", end.UTC().Format(dateLayout))
	q.Set("pagina", fmt.Sprint(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/nfse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("montar request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chamar agregador: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, fmt.Errorf("ler resposta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agregador respondeu HTTP %d", resp.StatusCode)
	}

	var lista listaResposta
	if err := json.Unmarshal(body, &lista); err != nil {
		return nil, fmt.Errorf("decodificar resposta: %w", err)
	}
	return &lista, nil
}
