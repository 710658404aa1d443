package dto

import "time"

// RecoveryRequest corpo do POST de recuperação de sincronização.
// EarliestIssueDate é opcional: quando informada (e anterior ao alcance
// padrão), a janela de replay recua até ela.
type RecoveryRequest struct {
	EarliestIssueDate *time.Time `json:"earliest_issue_date,omitempty"`
}

// SyncStatusResponse posição atual dos cursores de uma empresa.
type SyncStatusResponse struct {
	CompanyID      string     `json:"company_id"`
	LastNSU        string     `json:"last_nsu"`
	NSUSyncAt      *time.Time `json:"nsu_sync_at,omitempty"`
	WindowSyncAt   *time.Time `json:"window_sync_at,omitempty"`
	SchedulerAlive bool       `json:"scheduler_alive"`
}
