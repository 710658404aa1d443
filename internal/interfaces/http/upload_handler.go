package http

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/fiscalhub/notas-api/internal/application/dto"
	"github.com/fiscalhub/notas-api/internal/application/ingest"
	"github.com/fiscalhub/notas-api/internal/domain"
)

// UploadHandler atende o upload em lote de XMLs fiscais (protegido).
type UploadHandler struct {
	pipeline    *ingest.Pipeline
	maxFileSize int64
}

// NewUploadHandler constrói o handler. maxFileSize limita a leitura de cada
// arquivo do formulário; o pipeline aplica o mesmo teto ao validar.
func NewUploadHandler(pipeline *ingest.Pipeline, maxFileSize int64) *UploadHandler {
	return &UploadHandler{pipeline: pipeline, maxFileSize: maxFileSize}
}

// Upload recebe um lote multipart (campo "files") e devolve o resultado por
// item. Sucesso parcial responde 200 com a lista de falhas individuais.
// POST /api/invoices/upload
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "formulário multipart inválido"})
	}
	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "nenhum arquivo enviado (campo files)"})
	}

	docs := make([]ingest.Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "arquivo ilegível: " + fh.Filename})
		}
		// lê um byte além do teto para o pipeline reprovar o excedente
		content, err := io.ReadAll(io.LimitReader(f, h.maxFileSize+1))
		f.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "arquivo ilegível: " + fh.Filename})
		}
		docs = append(docs, ingest.Document{Name: fh.Filename, Content: content})
	}

	result, err := h.pipeline.IngestUpload(c.Context(), companyID, docs)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		case errors.Is(err, domain.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "empresa não encontrada"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.JSON(toIngestResponse(result))
}

func toIngestResponse(result *ingest.Result) dto.IngestResultResponse {
	out := dto.IngestResultResponse{
		Succeeded: result.Succeeded,
		Failed:    make([]dto.IngestFailure, 0, len(result.Failed)),
	}
	if out.Succeeded == nil {
		out.Succeeded = []string{}
	}
	for _, f := range result.Failed {
		out.Failed = append(out.Failed, dto.IngestFailure{Name: f.Name, Reason: f.Reason})
	}
	return out
}
