// Package metrics expõe contadores Prometheus do pipeline de ingestão e do
// orquestrador de sincronização.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa os coletores registrados da aplicação.
type Metrics struct {
	DocumentsIngested  *prometheus.CounterVec // resultado: persisted | duplicate | invalid | rejected
	SyncRuns           *prometheus.CounterVec // resultado: ok | provider_error | store_error
	SyncDocumentsFetch prometheus.Counter
}

// Resultados usados como label nos contadores.
const (
	ResultPersisted = "persisted"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultRejected  = "rejected"

	SyncResultOK            = "ok"
	SyncResultProviderError = "provider_error"
	SyncResultStoreError    = "store_error"
)

// New cria e registra os coletores no Registerer dado.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notas",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Documentos processados pelo pipeline de ingestão, por resultado.",
		}, []string{"result"}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notas",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Execuções de sincronização por empresa, por resultado.",
		}, []string{"result"}),
		SyncDocumentsFetch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notas",
			Subsystem: "sync",
			Name:      "documents_fetched_total",
			Help:      "Documentos retornados pelos provedores durante a sincronização.",
		}),
	}
	reg.MustRegister(m.DocumentsIngested, m.SyncRuns, m.SyncDocumentsFetch)
	return m
}

// NewNop cria coletores não registrados (para testes).
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
