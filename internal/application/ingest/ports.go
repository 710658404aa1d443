package ingest

import "github.com/fiscalhub/notas-api/internal/domain/entity"

// DocumentParser define o porto do parser XML multi-esquema.
// Retorna nil quando nenhum esquema reconhece o conteúdo (caso esperado,
// não é erro).
type DocumentParser interface {
	Parse(raw []byte) *entity.ParsedInvoice
}
