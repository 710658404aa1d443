package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento fiscal eletrônico suportados.
const (
	DocumentTypeNFE  = "NFE"  // Nota Fiscal Eletrônica (mercadorias)
	DocumentTypeCTE  = "CTE"  // Conhecimento de Transporte Eletrônico
	DocumentTypeNFSE = "NFSE" // Nota Fiscal de Serviço Eletrônica (municipal)
)

// Direção do documento em relação à empresa dona do registro.
const (
	DirectionIssued   = "ISSUED"   // emitido pela empresa (CNPJ do emitente == CNPJ da empresa)
	DirectionReceived = "RECEIVED" // recebido de terceiros
)

// Status de conciliação do documento.
const (
	StatusReceived  = "RECEIVED"  // importado, ainda sem manifestação/conciliação
	StatusConfirmed = "CONFIRMED" // operação confirmada (manifestação ou ajuste manual)
	StatusRejected  = "REJECTED"  // operação rejeitada, não realizada ou em desacordo
)

// ParsedInvoice é o resultado transitório do parser XML, antes de classificar
// direção e persistir. AccessKey é a chave natural de deduplicação.
type ParsedInvoice struct {
	AccessKey      string // chave de acesso (≥44 dígitos para NF-e/CT-e; composta para NFS-e)
	DocumentType   string // NFE | CTE | NFSE
	Number         string
	Series         string // vazio para NFS-e
	IssueDate      time.Time
	SenderTaxID    string // CNPJ (14) ou CPF (11) do emitente/prestador
	SenderName     string
	RecipientTaxID string
	RecipientName  string
	TotalValue     decimal.Decimal
}

// Invoice representa o documento fiscal persistido, pertencente a uma empresa.
// A chave de acesso é única no sistema inteiro, não apenas por empresa: um
// upload duplicado, mesmo vindo de outra empresa, deve ser rejeitado.
type Invoice struct {
	ID             string
	CompanyID      string
	AccessKey      string
	DocumentType   string
	Number         string
	Series         string
	IssueDate      time.Time
	SenderTaxID    string
	SenderName     string
	RecipientTaxID string
	RecipientName  string
	TotalValue     decimal.Decimal
	Direction      string // ISSUED | RECEIVED
	Status         string // RECEIVED | CONFIRMED | REJECTED
	RawXML         string // XML original completo, retido para reexportação/auditoria
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewInvoiceFrom monta o registro persistente a partir do resultado do parser.
func NewInvoiceFrom(p *ParsedInvoice, companyID, direction, status string, rawXML []byte, now time.Time) *Invoice {
	return &Invoice{
		CompanyID:      companyID,
		AccessKey:      p.AccessKey,
		DocumentType:   p.DocumentType,
		Number:         p.Number,
		Series:         p.Series,
		IssueDate:      p.IssueDate,
		SenderTaxID:    p.SenderTaxID,
		SenderName:     p.SenderName,
		RecipientTaxID: p.RecipientTaxID,
		RecipientName:  p.RecipientName,
		TotalValue:     p.TotalValue,
		Direction:      direction,
		Status:         status,
		RawXML:         string(rawXML),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ValidStatus indica se s é um status de conciliação conhecido (para PATCH manual).
func ValidStatus(s string) bool {
	return s == StatusReceived || s == StatusConfirmed || s == StatusRejected
}
