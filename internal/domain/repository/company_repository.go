package repository

import (
	"context"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// CompanyRepository define o porto de leitura das empresas (tenants).
// O cadastro em si pertence a outro módulo; o pipeline só precisa do CNPJ
// registrado e da lista de empresas com sincronização habilitada.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	ListSyncEnabled(ctx context.Context) ([]*entity.Company, error)
}
