package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
)

var _ repository.RecoveryRunner = (*TxRunner)(nil)

// TxRunner executa operações multi-cursor dentro de uma transação PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner constrói o runner com o pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunRecovery reposiciona os dois cursores da empresa em uma única
// transação: ou ambos, ou nenhum.
//
// Cursor NSU: volta ao zero com last_sync_at nulo, forçando replay completo
// da distribuição. Cursor de janela: recua last_sync_at para windowSyncAt
// apenas se este for anterior ao valor atual (LEAST) — recuperação nunca
// move cursor para frente.
func (r *TxRunner) RunRecovery(ctx context.Context, companyID string, windowSyncAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()

	if _, err := tx.Exec(ctx, `
		INSERT INTO sync_cursors (company_id, kind, last_nsu, last_sync_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4)
		ON CONFLICT (company_id, kind)
		DO UPDATE SET last_nsu = EXCLUDED.last_nsu,
		              last_sync_at = NULL,
		              updated_at = EXCLUDED.updated_at`,
		companyID, entity.CursorKindNSU, entity.NSUZero, now,
	); err != nil {
		return fmt.Errorf("reset cursor NSU: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO sync_cursors (company_id, kind, last_nsu, last_sync_at, updated_at)
		VALUES ($1, $2, NULL, $3, $4)
		ON CONFLICT (company_id, kind)
		DO UPDATE SET last_sync_at = LEAST(sync_cursors.last_sync_at, EXCLUDED.last_sync_at),
		              updated_at = EXCLUDED.updated_at`,
		companyID, entity.CursorKindWindow, windowSyncAt, now,
	); err != nil {
		return fmt.Errorf("recuar cursor de janela: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
