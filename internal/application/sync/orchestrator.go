package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/fiscalhub/notas-api/internal/application/ingest"
	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
	"github.com/fiscalhub/notas-api/pkg/logger"
	"github.com/fiscalhub/notas-api/pkg/metrics"
)

// Orchestrator dirige a sincronização periódica por empresa: lê o cursor,
// busca o que há de novo no provedor, entrega ao pipeline e avança o cursor
// somente depois da persistência do lote.
//
// Ciclo de vida explícito (Start/Stop/Healthy), gerenciado pelo entry point
// da aplicação — nunca disparado como efeito colateral de outro componente.
// No máximo uma sincronização em voo por empresa: execuções concorrentes do
// mesmo tenant corromperiam o invariante de replay do cursor.
type Orchestrator struct {
	companyRepo    repository.CompanyRepository
	cursorRepo     repository.SyncCursorRepository
	ingestor       Ingestor
	nsuProvider    NSUProvider
	windowProvider WindowProvider

	interval     time.Duration
	lookbackDays int
	overlap      time.Duration

	log     *logger.Logger
	metrics *metrics.Metrics

	mu       gosync.Mutex
	inFlight map[string]bool
	lastTick time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator constrói o orquestrador. nsuProvider e windowProvider podem
// ser nil individualmente: o tipo de cursor correspondente é pulado.
func NewOrchestrator(
	companyRepo repository.CompanyRepository,
	cursorRepo repository.SyncCursorRepository,
	ingestor Ingestor,
	nsuProvider NSUProvider,
	windowProvider WindowProvider,
	interval time.Duration,
	lookbackDays int,
	overlap time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Orchestrator{
		companyRepo:    companyRepo,
		cursorRepo:     cursorRepo,
		ingestor:       ingestor,
		nsuProvider:    nsuProvider,
		windowProvider: windowProvider,
		interval:       interval,
		lookbackDays:   lookbackDays,
		overlap:        overlap,
		log:            log,
		metrics:        m,
		inFlight:       map[string]bool{},
	}
}

// Start inicia o laço periódico em goroutine própria. Idempotente: chamadas
// repetidas sem Stop são ignoradas.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.lastTick = time.Now()

	go o.loop(runCtx)
	o.log.Info().Dur("interval", o.interval).Msg("orquestrador de sincronização iniciado")
}

// Stop cancela o laço e espera a varredura corrente terminar. Lotes
// abandonados no meio são seguros: o cursor só avança no fim do lote.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel = nil
	o.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	o.log.Info().Msg("orquestrador de sincronização parado")
}

// Healthy indica se o laço executou uma varredura recentemente.
func (o *Orchestrator) Healthy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil && time.Since(o.lastTick) < 2*o.interval
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer close(o.done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	// Primeira varredura imediata; depois no ritmo do ticker.
	o.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RunOnce(ctx)
		}
	}
}

// RunOnce executa uma varredura: sincroniza cada empresa habilitada que não
// esteja com sincronização em voo. O erro de uma empresa nunca afeta as demais.
func (o *Orchestrator) RunOnce(ctx context.Context) {
	o.mu.Lock()
	o.lastTick = time.Now()
	o.mu.Unlock()

	companies, err := o.companyRepo.ListSyncEnabled(ctx)
	if err != nil {
		o.log.Error().Err(err).Msg("listar empresas para sincronização")
		return
	}

	var wg gosync.WaitGroup
	for _, company := range companies {
		if !o.acquire(company.ID) {
			continue
		}
		wg.Add(1)
		go func(c *entity.Company) {
			defer wg.Done()
			defer o.release(c.ID)
			o.syncCompany(ctx, c)
		}(company)
	}
	wg.Wait()
}

// acquire reserva a vaga única de sincronização da empresa.
func (o *Orchestrator) acquire(companyID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[companyID] {
		return false
	}
	o.inFlight[companyID] = true
	return true
}

func (o *Orchestrator) release(companyID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, companyID)
}

func (o *Orchestrator) syncCompany(ctx context.Context, company *entity.Company) {
	log := o.log.With().Str("company_id", company.ID).Logger()

	if o.nsuProvider != nil {
		if err := o.syncNSU(ctx, company); err != nil {
			// Cursor intocado: a próxima varredura tenta de novo.
			log.Warn().Err(err).Msg("sincronização NSU falhou, cursor mantido")
		}
	}
	if o.windowProvider != nil {
		if err := o.syncWindow(ctx, company); err != nil {
			log.Warn().Err(err).Msg("sincronização por janela falhou, cursor mantido")
		}
	}
}

// syncNSU busca e ingere os documentos da distribuição posteriores ao último
// NSU consumido, avançando o cursor só depois do lote persistido.
func (o *Orchestrator) syncNSU(ctx context.Context, company *entity.Company) error {
	cursor, err := o.cursorRepo.Find(ctx, company.ID, entity.CursorKindNSU)
	if err != nil {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultStoreError).Inc()
		return fmt.Errorf("ler cursor NSU: %w", err)
	}
	lastNSU := entity.NSUZero
	if cursor != nil && cursor.LastNSU != "" {
		lastNSU = cursor.LastNSU
	}

	batch, err := o.nsuProvider.FetchSince(ctx, company.TaxID, lastNSU)
	if err != nil {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultProviderError).Inc()
		return fmt.Errorf("consultar distribuição: %w", err)
	}
	if batch == nil || len(batch.Docs) == 0 {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultOK).Inc()
		return nil
	}
	o.metrics.SyncDocumentsFetch.Add(float64(len(batch.Docs)))

	result, err := o.ingestor.IngestFetched(ctx, company.ID, toIngestDocs(batch.Docs))
	if err != nil {
		// Store indisponível: nada de avanço de cursor.
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultStoreError).Inc()
		return fmt.Errorf("ingerir lote NSU: %w", err)
	}
	// Documentos individualmente inválidos não travam a posição de
	// sincronização: um XML mutilado não pode represar tudo que vem depois.
	if len(result.Failed) > 0 {
		o.log.Info().
			Str("company_id", company.ID).
			Int("failed", len(result.Failed)).
			Int("succeeded", len(result.Succeeded)).
			Msg("lote NSU com falhas individuais, cursor avança mesmo assim")
	}

	now := time.Now()
	newCursor := &entity.SyncCursor{
		CompanyID:  company.ID,
		Kind:       entity.CursorKindNSU,
		LastNSU:    batch.LastNSU,
		LastSyncAt: &now,
		UpdatedAt:  now,
	}
	if newCursor.LastNSU <= lastNSU {
		// Provedor não retornou NSU maior: mantém a posição atual.
		newCursor.LastNSU = lastNSU
	}
	if err := o.cursorRepo.Save(ctx, newCursor); err != nil {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultStoreError).Inc()
		return fmt.Errorf("avançar cursor NSU: %w", err)
	}
	o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultOK).Inc()
	return nil
}

// syncWindow consulta o agregador de NFS-e pela janela de datas calculada e
// avança o lastSyncAt para o instante da consulta após persistir o lote.
func (o *Orchestrator) syncWindow(ctx context.Context, company *entity.Company) error {
	cursor, err := o.cursorRepo.Find(ctx, company.ID, entity.CursorKindWindow)
	if err != nil {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultStoreError).Inc()
		return fmt.Errorf("ler cursor de janela: %w", err)
	}
	var lastSyncAt *time.Time
	if cursor != nil {
		lastSyncAt = cursor.LastSyncAt
	}
	win := ComputeWindow(lastSyncAt, o.lookbackDays, o.overlap)

	docs, err := o.windowProvider.ListDocuments(ctx, company.TaxID, win.Start, win.End)
	if err != nil {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultProviderError).Inc()
		return fmt.Errorf("consultar agregador: %w", err)
	}
	if len(docs) > 0 {
		o.metrics.SyncDocumentsFetch.Add(float64(len(docs)))
		if _, err := o.ingestor.IngestFetched(ctx, company.ID, toIngestDocs(docs)); err != nil {
			o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultStoreError).Inc()
			return fmt.Errorf("ingerir lote da janela: %w", err)
		}
	}

	syncedAt := win.SyncedAt
	if err := o.cursorRepo.Save(ctx, &entity.SyncCursor{
		CompanyID:  company.ID,
		Kind:       entity.CursorKindWindow,
		LastSyncAt: &syncedAt,
		UpdatedAt:  time.Now(),
	}); err != nil {
		o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultStoreError).Inc()
		return fmt.Errorf("avançar cursor de janela: %w", err)
	}
	o.metrics.SyncRuns.WithLabelValues(metrics.SyncResultOK).Inc()
	return nil
}

func toIngestDocs(docs []ProviderDocument) []ingest.Document {
	out := make([]ingest.Document, len(docs))
	for i, d := range docs {
		out[i] = ingest.Document{
			Name:           d.ID + ".xml",
			Content:        d.Raw,
			ProviderStatus: d.ProviderStatus,
		}
	}
	return out
}
