// Package query expõe a superfície de consulta e manutenção dos documentos
// já ingeridos: listagem com filtros, detalhe, download do XML bruto,
// transição manual de status e exclusão.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/fiscalhub/notas-api/internal/application/dto"
	"github.com/fiscalhub/notas-api/internal/domain"
	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
)

// InvoiceService casos de uso de leitura e manutenção de documentos.
type InvoiceService struct {
	repo repository.InvoiceRepository
}

func NewInvoiceService(repo repository.InvoiceRepository) *InvoiceService {
	return &InvoiceService{repo: repo}
}

// List devolve uma página de documentos da empresa mais o total para paginação.
func (s *InvoiceService) List(ctx context.Context, companyID string, filter repository.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	invoices, err := s.repo.ListByCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	total, err := s.repo.CountByCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("contar documentos: %w", err)
	}
	out := &dto.InvoiceListResponse{Items: make([]dto.InvoiceResponse, 0, len(invoices)), Total: total}
	for _, inv := range invoices {
		out.Items = append(out.Items, dto.NewInvoiceResponse(inv))
	}
	return out, nil
}

// Get devolve o detalhe de um documento da empresa.
func (s *InvoiceService) Get(ctx context.Context, companyID, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewInvoiceResponse(inv)
	return &resp, nil
}

// GetRawXML devolve o XML original do documento, byte a byte como chegou.
func (s *InvoiceService) GetRawXML(ctx context.Context, companyID, id string) ([]byte, error) {
	inv, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return []byte(inv.RawXML), nil
}

// UpdateStatus aplica uma transição manual de status.
func (s *InvoiceService) UpdateStatus(ctx context.Context, companyID, id, status string) error {
	if !entity.ValidStatus(status) {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}
	return s.repo.UpdateStatus(ctx, companyID, id, status, time.Now().UTC())
}

// Delete remove o documento da empresa.
func (s *InvoiceService) Delete(ctx context.Context, companyID, id string) error {
	return s.repo.Delete(ctx, companyID, id)
}

func (s *InvoiceService) find(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("buscar documento: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}
