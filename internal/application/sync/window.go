package sync

import "time"

// Valores padrão da janela incremental.
const (
	DefaultLookbackDays = 30
	DefaultOverlap      = 24 * time.Hour
)

// Window é a janela [Start, End) a consultar no provedor. SyncedAt é o valor
// que o cursor deve assumir depois que o lote da janela for persistido.
type Window struct {
	Start    time.Time
	End      time.Time
	SyncedAt time.Time
}

// ComputeWindow calcula a próxima janela de consulta a partir do último sync.
//
// End é sempre "agora". Sem sync anterior, Start recua lookbackDays. Com sync
// anterior, Start é lastSyncAt menos a sobreposição: refazemos de propósito um
// trecho já consultado para tolerar atraso de indexação do provedor e
// diferença de fuso — buscar demais é barato e seguro porque a deduplicação
// por chave de acesso descarta o excesso.
//
// Clamp defensivo: se um timestamp corrompido ou relógio adiantado produzir
// Start depois de End, Start recua para End menos a sobreposição.
func ComputeWindow(lastSyncAt *time.Time, lookbackDays int, overlap time.Duration) Window {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if overlap <= 0 {
		overlap = DefaultOverlap
	}

	now := time.Now()
	win := Window{End: now, SyncedAt: now}

	if lastSyncAt == nil {
		win.Start = now.AddDate(0, 0, -lookbackDays)
		return win
	}

	win.Start = lastSyncAt.Add(-overlap)
	if win.Start.After(win.End) {
		win.Start = win.End.Add(-overlap)
	}
	return win
}
