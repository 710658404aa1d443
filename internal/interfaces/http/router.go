package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fiscalhub/notas-api/internal/application/ingest"
	"github.com/fiscalhub/notas-api/internal/application/query"
	appsync "github.com/fiscalhub/notas-api/internal/application/sync"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	Pipeline     *ingest.Pipeline
	InvoiceSvc   *query.InvoiceService
	Cursors      repository.SyncCursorRepository
	Recovery     *appsync.RecoveryService
	Orchestrator *appsync.Orchestrator
	JWTSecret    string
	MaxFileSize  int64
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Health (público)
	api.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok", "scheduler": deps.Orchestrator.Healthy()}
		return c.JSON(status)
	})

	// Rotas protegidas (exigem Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos fiscais
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceSvc)
	uploadHandler := NewUploadHandler(deps.Pipeline, deps.MaxFileSize)
	invoices.Post("/upload", uploadHandler.Upload)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/xml", invoiceHandler.DownloadXML)
	invoices.Patch("/:id/status", invoiceHandler.UpdateStatus)
	invoices.Delete("/:id", invoiceHandler.Delete)

	// Sincronização
	syncGroup := protected.Group("/sync")
	syncHandler := NewSyncHandler(deps.Cursors, deps.Recovery, deps.Orchestrator)
	syncGroup.Get("/status", syncHandler.Status)
	syncGroup.Post("/recovery", syncHandler.Recover)
}
