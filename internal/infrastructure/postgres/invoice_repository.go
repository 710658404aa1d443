package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fiscalhub/notas-api/internal/domain"
	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementação de InvoiceRepository (usável com pool ou tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository constrói o adaptador. Passar pool ou tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, company_id, access_key, document_type, number, series, issue_date,
	sender_tax_id, sender_name, recipient_tax_id, recipient_name, total_value,
	direction, status, raw_xml, created_at, updated_at`

// Create persiste o documento. A tabela tem constraint único global em
// access_key: a violação vira domain.ErrDuplicateAccessKey, que o pipeline
// apresenta ao usuário como motivo distinto (engano esperado, não falha).
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.AccessKey, inv.DocumentType, inv.Number,
		nullIfEmpty(inv.Series), inv.IssueDate,
		inv.SenderTaxID, inv.SenderName, inv.RecipientTaxID, inv.RecipientName,
		inv.TotalValue, inv.Direction, inv.Status, inv.RawXML,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAccessKey
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtém um documento da empresa por ID. Retorna nil sem erro quando
// não existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE company_id = $1 AND id = $2`
	return r.scanOne(r.q.QueryRow(ctx, query, companyID, id))
}

// FindByAccessKey busca pela chave no sistema inteiro (a chave é global).
func (r *InvoiceRepo) FindByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE access_key = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, accessKey))
}

// ListByCompany lista documentos da empresa aplicando os filtros opcionais.
func (r *InvoiceRepo) ListByCompany(ctx context.Context, companyID string, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	where, args := buildInvoiceFilter(companyID, f)
	query := `SELECT ` + invoiceColumns + ` FROM invoices ` + where + ` ORDER BY issue_date DESC, created_at DESC`
	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + strconv.Itoa(f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// CountByCompany conta documentos da empresa com os mesmos filtros da listagem.
func (r *InvoiceRepo) CountByCompany(ctx context.Context, companyID string, f repository.InvoiceFilter) (int64, error) {
	where, args := buildInvoiceFilter(companyID, f)
	var total int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return total, nil
}

// UpdateStatus aplica a transição de status vinda do classificador ou de um
// PATCH explícito do usuário.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, companyID, id, status string, updatedAt time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE invoices SET status = $3, updated_at = $4 WHERE company_id = $1 AND id = $2`,
		companyID, id, status, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete remove o documento (ação explícita do usuário).
func (r *InvoiceRepo) Delete(ctx context.Context, companyID, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EarliestIssueDate menor data de emissão registrada para a empresa (nil se
// não há documentos). Usada pela recuperação para limitar o replay.
func (r *InvoiceRepo) EarliestIssueDate(ctx context.Context, companyID string) (*time.Time, error) {
	var earliest *time.Time
	err := r.q.QueryRow(ctx,
		`SELECT MIN(issue_date) FROM invoices WHERE company_id = $1`, companyID,
	).Scan(&earliest)
	if err != nil {
		return nil, fmt.Errorf("earliest issue date: %w", err)
	}
	return earliest, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func buildInvoiceFilter(companyID string, f repository.InvoiceFilter) (string, []any) {
	clauses := []string{"company_id = $1"}
	args := []any{companyID}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.DocumentType != "" {
		add("document_type = $%d", f.DocumentType)
	}
	if f.Direction != "" {
		add("direction = $%d", f.Direction)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.IssuedFrom != nil {
		add("issue_date >= $%d", *f.IssuedFrom)
	}
	if f.IssuedTo != nil {
		add("issue_date < $%d", *f.IssuedTo)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r *InvoiceRepo) scanOne(row pgx.Row) (*entity.Invoice, error) {
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var series *string
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.AccessKey, &inv.DocumentType, &inv.Number,
		&series, &inv.IssueDate,
		&inv.SenderTaxID, &inv.SenderName, &inv.RecipientTaxID, &inv.RecipientName,
		&inv.TotalValue, &inv.Direction, &inv.Status, &inv.RawXML,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if series != nil {
		inv.Series = *series
	}
	return &inv, nil
}
