package repository

import (
	"context"
	"time"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// InvoiceFilter parâmetros de listagem de documentos de uma empresa.
type InvoiceFilter struct {
	DocumentType string // NFE | CTE | NFSE | vazio (todos)
	Direction    string // ISSUED | RECEIVED | vazio
	Status       string // RECEIVED | CONFIRMED | REJECTED | vazio
	IssuedFrom   *time.Time
	IssuedTo     *time.Time
	Limit        int
	Offset       int
}

// InvoiceRepository define o porto de persistência de documentos fiscais.
type InvoiceRepository interface {
	// Create insere o documento. Retorna domain.ErrDuplicateAccessKey quando a
	// chave de acesso já existe (constraint único global, não por empresa).
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	// FindByAccessKey busca em todo o sistema, ignorando empresa (a chave é global).
	FindByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error)
	ListByCompany(ctx context.Context, companyID string, filter InvoiceFilter) ([]*entity.Invoice, error)
	CountByCompany(ctx context.Context, companyID string, filter InvoiceFilter) (int64, error)
	// UpdateStatus aplica uma transição de status (reavaliação do classificador
	// ou PATCH explícito do usuário).
	UpdateStatus(ctx context.Context, companyID, id, status string, updatedAt time.Time) error
	Delete(ctx context.Context, companyID, id string) error
	// EarliestIssueDate retorna a menor data de emissão registrada para a
	// empresa (nil se não há documentos). Usada pela recuperação de sync.
	EarliestIssueDate(ctx context.Context, companyID string) (*time.Time, error)
}
