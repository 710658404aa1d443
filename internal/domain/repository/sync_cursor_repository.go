package repository

import (
	"context"
	"time"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// SyncCursorRepository define o porto de persistência dos cursores de
// sincronização (um registro por empresa e tipo de cursor).
type SyncCursorRepository interface {
	// Find retorna nil (sem erro) quando a empresa ainda não tem cursor do tipo.
	Find(ctx context.Context, companyID, kind string) (*entity.SyncCursor, error)
	// Save cria ou atualiza o cursor (upsert por empresa+tipo).
	Save(ctx context.Context, cursor *entity.SyncCursor) error
}

// RecoveryRunner executa a recuperação dos dois cursores de uma empresa em
// uma única transação: ou ambos são reposicionados, ou nenhum.
type RecoveryRunner interface {
	// RunRecovery zera o cursor NSU (replay completo) e recua o lastSyncAt do
	// cursor de janela para windowSyncAt, somente se este for anterior ao valor
	// atual. Nunca move cursor para frente.
	RunRecovery(ctx context.Context, companyID string, windowSyncAt time.Time) error
}
