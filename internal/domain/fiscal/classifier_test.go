package fiscal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/fiscal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Direção: a comparação de CNPJ deve ignorar pontuação e formatação.
// ──────────────────────────────────────────────────────────────────────────────

func TestClassifyDirection(t *testing.T) {
	tests := []struct {
		name     string
		company  string
		sender   string
		expected string
	}{
		{"CNPJ idêntico sem formatação", "12345678000190", "12345678000190", entity.DirectionIssued},
		{"CNPJ idêntico com pontuação", "12.345.678/0001-90", "12345678000190", entity.DirectionIssued},
		{"pontuação dos dois lados", "12.345.678/0001-90", "12.345.678/0001-90", entity.DirectionIssued},
		{"CNPJ diferente", "12345678000190", "98765432000109", entity.DirectionReceived},
		{"CPF do emitente diferente", "12345678000190", "123.456.789-09", entity.DirectionReceived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fiscal.ClassifyDirection(tt.company, tt.sender))
		})
	}
}

func TestNormalizeTaxID(t *testing.T) {
	assert.Equal(t, "12345678000190", fiscal.NormalizeTaxID("12.345.678/0001-90"))
	assert.Equal(t, "12345678909", fiscal.NormalizeTaxID("123.456.789-09"))
	assert.Equal(t, "", fiscal.NormalizeTaxID("sem dígitos"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Status: mapeamento conservador — texto sem termo reconhecido fica RECEIVED.
// ──────────────────────────────────────────────────────────────────────────────

func TestClassifyStatus_CTE(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{"desacordo registrado", "DESACORDO REGISTRADO", entity.StatusRejected},
		{"desacordo em minúsculas", "prestação em desacordo", entity.StatusRejected},
		{"desacordo cancelado", "DESACORDO CANCELADO", entity.StatusConfirmed},
		{"cancelamento do desacordo", "Cancelamento de Prestação em Desacordo", entity.StatusConfirmed},
		{"autorizado sem desacordo", "AUTORIZADO O USO", entity.StatusReceived},
		{"vazio", "", entity.StatusReceived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fiscal.ClassifyStatus(entity.DocumentTypeCTE, tt.status))
		})
	}
}

func TestClassifyStatus_NFE(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{"confirmação sem acento", "CONFIRMACAO DA OPERACAO", entity.StatusConfirmed},
		{"confirmação acentuada", "Confirmação da Operação", entity.StatusConfirmed},
		{"desconhecimento", "DESCONHECIMENTO DA OPERACAO", entity.StatusRejected},
		{"não realizada acentuada", "Operação não Realizada", entity.StatusRejected},
		{"ciência da operação não conclui", "CIENCIA DA OPERACAO", entity.StatusReceived},
		{"texto arbitrário", "qualquer coisa", entity.StatusReceived},
		{"vazio", "", entity.StatusReceived},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fiscal.ClassifyStatus(entity.DocumentTypeNFE, tt.status))
		})
	}
}

func TestClassifyStatus_NFSE_SemManifestacao(t *testing.T) {
	// NFS-e não tem eventos de manifestação: qualquer texto fica RECEIVED.
	assert.Equal(t, entity.StatusReceived, fiscal.ClassifyStatus(entity.DocumentTypeNFSE, "EMITIDA"))
	assert.Equal(t, entity.StatusReceived, fiscal.ClassifyStatus(entity.DocumentTypeNFSE, ""))
}
