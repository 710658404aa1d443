package sync

import (
	"context"
	"time"

	"github.com/fiscalhub/notas-api/internal/application/ingest"
)

// ProviderDocument documento retornado por um provedor externo.
type ProviderDocument struct {
	ID             string // identificador no provedor (NSU, id do agregador...)
	Raw            []byte // XML completo do documento
	ProviderStatus string // texto livre de status/manifestação, se houver
}

// NSUBatch lote retornado pela Distribuição DF-e.
type NSUBatch struct {
	Docs    []ProviderDocument
	LastNSU string // último NSU presente neste lote
	MaxNSU  string // maior NSU disponível no provedor (para saber se há mais)
}

// NSUProvider porto do provedor de documentos por NSU (SEFAZ Distribuição DF-e).
type NSUProvider interface {
	// FetchSince busca os documentos posteriores a lastNSU.
	// Erros de rede/autenticação voltam ao orquestrador, que não avança o cursor.
	FetchSince(ctx context.Context, taxID, lastNSU string) (*NSUBatch, error)
}

// WindowProvider porto do provedor de documentos por janela de datas
// (agregador de NFS-e municipal).
type WindowProvider interface {
	ListDocuments(ctx context.Context, taxID string, start, end time.Time) ([]ProviderDocument, error)
}

// Ingestor porto do pipeline de ingestão usado pelo orquestrador.
type Ingestor interface {
	IngestFetched(ctx context.Context, companyID string, docs []ingest.Document) (*ingest.Result, error)
}
