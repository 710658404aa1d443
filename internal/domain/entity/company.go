package entity

import "time"

// Company é a empresa (tenant) dona dos documentos. TaxID é o CNPJ usado na
// classificação de direção e nas consultas aos provedores.
type Company struct {
	ID    string
	Name  string
	TaxID string // CNPJ, somente dígitos

	// Credenciais de acesso aos provedores, já cifradas pela camada externa.
	// O core só transporta o valor opaco.
	ProviderCredentials string
	SyncEnabled         bool
	CreatedAt           time.Time
}
