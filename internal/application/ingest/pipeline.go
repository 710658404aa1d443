package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fiscalhub/notas-api/internal/domain"
	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/fiscal"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
	"github.com/fiscalhub/notas-api/pkg/logger"
	"github.com/fiscalhub/notas-api/pkg/metrics"
)

// Motivos de falha expostos ao usuário. Deliberadamente genéricos: o
// diagnóstico interno do parser não vaza para fora.
const (
	ReasonUnrecognized = "documento não reconhecido ou inválido"
	ReasonDuplicate    = "chave de acesso já cadastrada"
	ReasonTooLarge     = "arquivo excede o tamanho máximo permitido"
	ReasonBadExtension = "extensão de arquivo não suportada"
)

// Document é um documento bruto a ingerir: arquivo de upload ou item
// retornado por um provedor externo.
type Document struct {
	Name           string
	Content        []byte
	ProviderStatus string // texto livre de status/manifestação, quando vindo de provedor
}

// Failure falha individual dentro de um lote.
type Failure struct {
	Name   string
	Reason string
}

// Result resultado estruturado de um lote. Sucesso parcial é resultado
// esperado e de primeira classe, nunca um erro.
type Result struct {
	Succeeded []string
	Failed    []Failure
}

// Limits tetos aplicados pelo pipeline a lotes de upload.
type Limits struct {
	MaxFileSize   int64
	MaxBatchFiles int
}

// Pipeline é o pipeline de ingestão com deduplicação: cada documento é
// processado de forma independente (uma falha nunca aborta o lote), e a
// unicidade da chave de acesso é garantida pelo store, não por lock em
// processo — ingestões concorrentes da mesma chave resolvem para exatamente
// um vencedor.
type Pipeline struct {
	parser      DocumentParser
	invoiceRepo repository.InvoiceRepository
	companyRepo repository.CompanyRepository
	limits      Limits
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewPipeline constrói o pipeline com suas dependências.
func NewPipeline(
	parser DocumentParser,
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	limits Limits,
	log *logger.Logger,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		parser:      parser,
		invoiceRepo: invoiceRepo,
		companyRepo: companyRepo,
		limits:      limits,
		log:         log,
		metrics:     m,
	}
}

// IngestUpload processa um lote de arquivos enviados pelo usuário, validando
// extensão e tamanho antes do parse. Retorna domain.ErrInvalidInput para lote
// vazio ou acima do máximo de arquivos; erros de store (indisponibilidade)
// abortam a operação e são devolvidos ao chamador.
func (p *Pipeline) IngestUpload(ctx context.Context, companyID string, docs []Document) (*Result, error) {
	if len(docs) == 0 || (p.limits.MaxBatchFiles > 0 && len(docs) > p.limits.MaxBatchFiles) {
		return nil, fmt.Errorf("%w: lote deve ter entre 1 e %d arquivos", domain.ErrInvalidInput, p.limits.MaxBatchFiles)
	}
	return p.ingest(ctx, companyID, docs, true)
}

// IngestFetched processa um lote vindo de um provedor externo. Sem validação
// de extensão: os nomes são sintéticos. O status de manifestação do provedor,
// quando presente, passa pelo classificador.
func (p *Pipeline) IngestFetched(ctx context.Context, companyID string, docs []Document) (*Result, error) {
	return p.ingest(ctx, companyID, docs, false)
}

func (p *Pipeline) ingest(ctx context.Context, companyID string, docs []Document, validateFile bool) (*Result, error) {
	company, err := p.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("buscar empresa: %w", err)
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}

	result := &Result{}
	for _, doc := range docs {
		// Lotes são abandonáveis no meio (shutdown): o que já foi persistido
		// é durável e idempotente na retentativa.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if validateFile {
			if reason := p.validateFile(doc); reason != "" {
				p.fail(result, doc.Name, reason)
				continue
			}
		}

		parsed := p.parser.Parse(doc.Content)
		if parsed == nil {
			p.fail(result, doc.Name, ReasonUnrecognized)
			continue
		}

		direction := fiscal.ClassifyDirection(company.TaxID, parsed.SenderTaxID)
		status := fiscal.ClassifyStatus(parsed.DocumentType, doc.ProviderStatus)

		invoice := entity.NewInvoiceFrom(parsed, companyID, direction, status, doc.Content, time.Now())
		invoice.ID = uuid.New().String()

		if err := p.invoiceRepo.Create(ctx, invoice); err != nil {
			if errors.Is(err, domain.ErrDuplicateAccessKey) {
				// Upload duplicado é engano comum do usuário, não falha do
				// sistema: motivo distinto, lote continua.
				p.fail(result, doc.Name, ReasonDuplicate)
				p.metrics.DocumentsIngested.WithLabelValues(metrics.ResultDuplicate).Inc()
				continue
			}
			// Store indisponível: fatal para a operação corrente.
			return result, fmt.Errorf("persistir documento %s: %w", doc.Name, err)
		}

		result.Succeeded = append(result.Succeeded, doc.Name)
		p.metrics.DocumentsIngested.WithLabelValues(metrics.ResultPersisted).Inc()
		p.log.Debug().
			Str("company_id", companyID).
			Str("access_key", invoice.AccessKey).
			Str("type", invoice.DocumentType).
			Str("direction", invoice.Direction).
			Msg("documento ingerido")
	}
	return result, nil
}

func (p *Pipeline) validateFile(doc Document) string {
	if ext := strings.ToLower(filepath.Ext(doc.Name)); ext != ".xml" {
		return ReasonBadExtension
	}
	if p.limits.MaxFileSize > 0 && int64(len(doc.Content)) > p.limits.MaxFileSize {
		return ReasonTooLarge
	}
	return ""
}

func (p *Pipeline) fail(result *Result, name, reason string) {
	result.Failed = append(result.Failed, Failure{Name: name, Reason: reason})
	if reason == ReasonUnrecognized {
		p.metrics.DocumentsIngested.WithLabelValues(metrics.ResultInvalid).Inc()
	} else if reason != ReasonDuplicate {
		p.metrics.DocumentsIngested.WithLabelValues(metrics.ResultRejected).Inc()
	}
	p.log.Warn().Str("file", name).Str("reason", reason).Msg("documento descartado")
}
