package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fiscalhub/notas-api/internal/application/ingest"
	"github.com/fiscalhub/notas-api/internal/application/query"
	appsync "github.com/fiscalhub/notas-api/internal/application/sync"
	"github.com/fiscalhub/notas-api/internal/infrastructure/fiscalxml"
	infranfse "github.com/fiscalhub/notas-api/internal/infrastructure/nfse"
	"github.com/fiscalhub/notas-api/internal/infrastructure/postgres"
	infrasefaz "github.com/fiscalhub/notas-api/internal/infrastructure/sefaz"
	httpRouter "github.com/fiscalhub/notas-api/internal/interfaces/http"
	"github.com/fiscalhub/notas-api/pkg/config"
	"github.com/fiscalhub/notas-api/pkg/logger"
	"github.com/fiscalhub/notas-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicação")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão com PostgreSQL")
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	companyRepo := postgres.NewCompanyRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	cursorRepo := postgres.NewSyncCursorRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	parser := fiscalxml.New()
	pipeline := ingest.NewPipeline(
		parser, invoiceRepo, companyRepo,
		ingest.Limits{MaxFileSize: cfg.Sync.MaxFileSize, MaxBatchFiles: cfg.Sync.MaxBatchFiles},
		log, m,
	)
	invoiceSvc := query.NewInvoiceService(invoiceRepo)

	sefazClient := infrasefaz.NewClient(infrasefaz.Config{
		Environment: cfg.SEFAZ.Environment,
		UFAutor:     cfg.SEFAZ.UFAutor,
		Timeout:     cfg.SEFAZ.Timeout,
	}, log)

	// Agregador de NFS-e: opcional, nem toda instalação tem convênio municipal.
	var windowProvider appsync.WindowProvider
	if cfg.NFSE.BaseURL != "" {
		windowProvider = infranfse.NewClient(infranfse.Config{
			BaseURL: cfg.NFSE.BaseURL,
			APIKey:  cfg.NFSE.APIKey,
			Timeout: cfg.NFSE.Timeout,
		}, log)
	}

	orchestrator := appsync.NewOrchestrator(
		companyRepo, cursorRepo, pipeline,
		sefazClient, windowProvider,
		cfg.Sync.Interval, cfg.Sync.LookbackDays, cfg.Sync.Overlap(),
		log, m,
	)
	recoverySvc := appsync.NewRecoveryService(
		txRunner, companyRepo, invoiceRepo,
		cfg.Sync.LookbackDays, cfg.Sync.Overlap(),
		log,
	)

	orchestrator.Start(ctx)

	// Listener de métricas separado do tráfego da API.
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Msg("listener de métricas finalizado")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    int(cfg.Sync.MaxFileSize)*cfg.Sync.MaxBatchFiles + 1<<20,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Pipeline:     pipeline,
		InvoiceSvc:   invoiceSvc,
		Cursors:      cursorRepo,
		Recovery:     recoverySvc,
		Orchestrator: orchestrator,
		JWTSecret:    cfg.JWT.Secret,
		MaxFileSize:  cfg.Sync.MaxFileSize,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("desligamento do servidor")
	}

	orchestrator.Stop()
	log.Info().Msg("aplicação encerrada")
}
