package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fiscalhub/notas-api/internal/application/dto"
	appsync "github.com/fiscalhub/notas-api/internal/application/sync"
	"github.com/fiscalhub/notas-api/internal/domain"
	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
)

// SyncHandler atende as rotas de sincronização: posição dos cursores e
// disparo da recuperação (protegido).
type SyncHandler struct {
	cursors      repository.SyncCursorRepository
	recovery     *appsync.RecoveryService
	orchestrator *appsync.Orchestrator
}

// NewSyncHandler constrói o handler.
func NewSyncHandler(cursors repository.SyncCursorRepository, recovery *appsync.RecoveryService, orchestrator *appsync.Orchestrator) *SyncHandler {
	return &SyncHandler{cursors: cursors, recovery: recovery, orchestrator: orchestrator}
}

// Status devolve a posição atual dos dois cursores da empresa.
// GET /api/sync/status
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	out := dto.SyncStatusResponse{
		CompanyID:      companyID,
		LastNSU:        entity.NSUZero,
		SchedulerAlive: h.orchestrator.Healthy(),
	}
	nsuCursor, err := h.cursors.Find(c.Context(), companyID, entity.CursorKindNSU)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if nsuCursor != nil {
		out.LastNSU = nsuCursor.LastNSU
		out.NSUSyncAt = nsuCursor.LastSyncAt
	}
	winCursor, err := h.cursors.Find(c.Context(), companyID, entity.CursorKindWindow)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if winCursor != nil {
		out.WindowSyncAt = winCursor.LastSyncAt
	}
	return c.JSON(out)
}

// Recover marca a empresa para recuperação de sincronização.
// POST /api/sync/recovery
func (h *SyncHandler) Recover(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecoveryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
		}
	}
	if err := h.recovery.MarkForRecovery(c.Context(), companyID, in.EarliestIssueDate); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "empresa não encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusAccepted)
}
