package dto

import (
	"time"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// InvoiceResponse representação de um documento fiscal na API.
type InvoiceResponse struct {
	ID             string    `json:"id"`
	AccessKey      string    `json:"access_key"`
	DocumentType   string    `json:"document_type"`
	Number         string    `json:"number"`
	Series         string    `json:"series,omitempty"`
	IssueDate      time.Time `json:"issue_date"`
	SenderTaxID    string    `json:"sender_tax_id"`
	SenderName     string    `json:"sender_name"`
	RecipientTaxID string    `json:"recipient_tax_id"`
	RecipientName  string    `json:"recipient_name"`
	TotalValue     string    `json:"total_value"`
	Direction      string    `json:"direction"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewInvoiceResponse converte a entidade para a representação da API.
// RawXML fica de fora: tem endpoint próprio de download.
func NewInvoiceResponse(inv *entity.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		AccessKey:      inv.AccessKey,
		DocumentType:   inv.DocumentType,
		Number:         inv.Number,
		Series:         inv.Series,
		IssueDate:      inv.IssueDate,
		SenderTaxID:    inv.SenderTaxID,
		SenderName:     inv.SenderName,
		RecipientTaxID: inv.RecipientTaxID,
		RecipientName:  inv.RecipientName,
		TotalValue:     inv.TotalValue.StringFixed(2),
		Direction:      inv.Direction,
		Status:         inv.Status,
		CreatedAt:      inv.CreatedAt,
	}
}

// InvoiceListResponse página de documentos mais o total para paginação.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Total int64             `json:"total"`
}

// UpdateStatusRequest corpo do PATCH de status manual.
type UpdateStatusRequest struct {
	Status string `json:"status"` // RECEIVED | CONFIRMED | REJECTED
}

// IngestResultResponse resultado estruturado do lote de upload: sucesso
// parcial é resultado esperado, nunca erro.
type IngestResultResponse struct {
	Succeeded []string        `json:"succeeded"`
	Failed    []IngestFailure `json:"failed"`
}

// IngestFailure falha individual de um arquivo do lote.
type IngestFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}
