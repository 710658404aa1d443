package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/fiscalhub/notas-api/internal/domain"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
	"github.com/fiscalhub/notas-api/pkg/logger"
)

// RecoveryService reposiciona os cursores de uma empresa depois de uma pane
// ou suspeita de perda de dados, forçando o replay de um trecho seguro do
// histórico. A deduplicação do pipeline torna o replay idempotente.
type RecoveryService struct {
	runner       repository.RecoveryRunner
	companyRepo  repository.CompanyRepository
	invoiceRepo  repository.InvoiceRepository
	lookbackDays int
	overlap      time.Duration
	log          *logger.Logger
}

// NewRecoveryService constrói o serviço de recuperação.
func NewRecoveryService(
	runner repository.RecoveryRunner,
	companyRepo repository.CompanyRepository,
	invoiceRepo repository.InvoiceRepository,
	lookbackDays int,
	overlap time.Duration,
	log *logger.Logger,
) *RecoveryService {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	return &RecoveryService{
		runner:       runner,
		companyRepo:  companyRepo,
		invoiceRepo:  invoiceRepo,
		lookbackDays: lookbackDays,
		overlap:      overlap,
		log:          log,
	}
}

// MarkForRecovery reposiciona atomicamente os dois cursores da empresa:
// o cursor NSU volta ao zero (replay completo da distribuição) e o cursor de
// janela recua para max(lookback atrás, earliestIssueDate) menos a
// sobreposição — limitando o raio da recuperação ao alcance configurado,
// sem refazer histórico anterior ao primeiro documento conhecido.
//
// A transação no store garante tudo-ou-nada entre os dois cursores, e o
// reposicionamento nunca move um cursor para frente: se o valor atual já é
// anterior ao calculado, fica como está.
func (s *RecoveryService) MarkForRecovery(ctx context.Context, companyID string, earliestIssueDate *time.Time) error {
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return fmt.Errorf("buscar empresa: %w", err)
	}
	if company == nil {
		return domain.ErrNotFound
	}

	// Sem data informada, usa a emissão mais antiga já registrada da empresa.
	if earliestIssueDate == nil {
		earliest, err := s.invoiceRepo.EarliestIssueDate(ctx, companyID)
		if err != nil {
			return fmt.Errorf("buscar emissão mais antiga: %w", err)
		}
		earliestIssueDate = earliest
	}

	target := time.Now().AddDate(0, 0, -s.lookbackDays)
	if earliestIssueDate != nil && earliestIssueDate.After(target) {
		target = *earliestIssueDate
	}
	windowSyncAt := target.Add(-s.overlap)

	if err := s.runner.RunRecovery(ctx, companyID, windowSyncAt); err != nil {
		return fmt.Errorf("reposicionar cursores: %w", err)
	}

	s.log.Info().
		Str("company_id", companyID).
		Time("window_sync_at", windowSyncAt).
		Msg("cursores marcados para recuperação")
	return nil
}
