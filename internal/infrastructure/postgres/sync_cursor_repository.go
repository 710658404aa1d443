package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
)

var _ repository.SyncCursorRepository = (*SyncCursorRepo)(nil)

// SyncCursorRepo implementação de SyncCursorRepository (usável com pool ou tx).
// Um registro por (company_id, kind); chave primária composta.
type SyncCursorRepo struct {
	q Querier
}

// NewSyncCursorRepository constrói o adaptador.
func NewSyncCursorRepository(q Querier) *SyncCursorRepo {
	return &SyncCursorRepo{q: q}
}

// Find retorna nil sem erro quando a empresa ainda não tem cursor do tipo.
func (r *SyncCursorRepo) Find(ctx context.Context, companyID, kind string) (*entity.SyncCursor, error) {
	var c entity.SyncCursor
	err := r.q.QueryRow(ctx, `
		SELECT company_id, kind, COALESCE(last_nsu, ''), last_sync_at, updated_at
		FROM sync_cursors WHERE company_id = $1 AND kind = $2`,
		companyID, kind,
	).Scan(&c.CompanyID, &c.Kind, &c.LastNSU, &c.LastSyncAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cursor: %w", err)
	}
	return &c, nil
}

// Save cria ou atualiza o cursor (upsert por empresa+tipo).
func (r *SyncCursorRepo) Save(ctx context.Context, c *entity.SyncCursor) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sync_cursors (company_id, kind, last_nsu, last_sync_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, kind)
		DO UPDATE SET last_nsu = EXCLUDED.last_nsu,
		              last_sync_at = EXCLUDED.last_sync_at,
		              updated_at = EXCLUDED.updated_at`,
		c.CompanyID, c.Kind, nullIfEmpty(c.LastNSU), c.LastSyncAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
