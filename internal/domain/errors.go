package domain

import "errors"

// Erros de domínio (sem dependências externas).
var (
	ErrNotFound           = errors.New("recurso não encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicateAccessKey = errors.New("chave de acesso já cadastrada")
	ErrUnauthorized       = errors.New("não autorizado")
	ErrForbidden          = errors.New("acesso negado")
	ErrConflict           = errors.New("conflito com o estado atual")
	ErrDocumentTooLarge   = errors.New("documento excede o tamanho máximo permitido")
	ErrUnsupportedFormat  = errors.New("documento não reconhecido ou inválido")
	ErrSyncInProgress     = errors.New("sincronização já em andamento para a empresa")
)
