package entity

import "time"

// Tipos de cursor de sincronização, um por provedor.
const (
	// CursorKindNSU acompanha o último NSU consumido da Distribuição DF-e
	// (sequencial opaco, monotônico, atribuído pela SEFAZ).
	CursorKindNSU = "NSU"
	// CursorKindWindow acompanha o fim da última janela de datas consultada
	// no provedor de NFS-e.
	CursorKindWindow = "WINDOW"
)

// NSUZero é o valor inicial do cursor NSU: força replay completo desde o
// início do histórico disponível no provedor.
const NSUZero = "000000000000000"

// SyncCursor guarda a posição retomável de sincronização por empresa e
// provedor. Avança somente depois que o lote buscado foi persistido; a
// recuperação pode movê-lo para trás, nunca para frente.
type SyncCursor struct {
	CompanyID  string
	Kind       string // NSU | WINDOW
	LastNSU    string // usado apenas por Kind == NSU
	LastSyncAt *time.Time
	UpdatedAt  time.Time
}
