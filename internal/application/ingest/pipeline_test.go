package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalhub/notas-api/internal/application/ingest"
	"github.com/fiscalhub/notas-api/internal/domain"
	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/domain/repository"
	"github.com/fiscalhub/notas-api/internal/infrastructure/fiscalxml"
	"github.com/fiscalhub/notas-api/pkg/logger"
	"github.com/fiscalhub/notas-api/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes em memória: o store garante unicidade por chave de acesso, como o
// constraint único do PostgreSQL faria.
// ──────────────────────────────────────────────────────────────────────────────

type fakeInvoiceRepo struct {
	byKey    map[string]*entity.Invoice
	failWith error // simula store indisponível
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{byKey: map[string]*entity.Invoice{}}
}

func (f *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, exists := f.byKey[inv.AccessKey]; exists {
		return domain.ErrDuplicateAccessKey
	}
	f.byKey[inv.AccessKey] = inv
	return nil
}

func (f *fakeInvoiceRepo) GetByID(context.Context, string, string) (*entity.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) FindByAccessKey(_ context.Context, key string) (*entity.Invoice, error) {
	return f.byKey[key], nil
}

func (f *fakeInvoiceRepo) ListByCompany(context.Context, string, repository.InvoiceFilter) ([]*entity.Invoice, error) {
	return nil, nil
}

func (f *fakeInvoiceRepo) CountByCompany(context.Context, string, repository.InvoiceFilter) (int64, error) {
	return 0, nil
}

func (f *fakeInvoiceRepo) UpdateStatus(context.Context, string, string, string, time.Time) error {
	return nil
}

func (f *fakeInvoiceRepo) Delete(context.Context, string, string) error { return nil }

func (f *fakeInvoiceRepo) EarliestIssueDate(context.Context, string) (*time.Time, error) {
	return nil, nil
}

type fakeCompanyRepo struct {
	companies map[string]*entity.Company
}

func (f *fakeCompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return f.companies[id], nil
}

func (f *fakeCompanyRepo) ListSyncEnabled(context.Context) ([]*entity.Company, error) {
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompanyID  = "00000000-0000-0000-0000-000000000001"
	companyTaxID   = "12345678000190"
	otherTaxID     = "98765432000109"
	validAccessKey = "35230412345678000190550010000012341000012345"
)

func nfeFixture(senderCNPJ string) []byte {
	return []byte(fmt.Sprintf(`<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
  <infNFe Id="NFe%s">
    <ide><nNF>1234</nNF><serie>1</serie><dhEmi>2023-04-15T10:30:00-03:00</dhEmi></ide>
    <emit><CNPJ>%s</CNPJ><xNome>Emitente</xNome></emit>
    <dest><CNPJ>%s</CNPJ><xNome>Destinatário</xNome></dest>
    <total><ICMSTot><vNF>100.00</vNF></ICMSTot></total>
  </infNFe>
</NFe>`, validAccessKey, senderCNPJ, companyTaxID))
}

func newPipeline(invRepo *fakeInvoiceRepo) *ingest.Pipeline {
	companies := &fakeCompanyRepo{companies: map[string]*entity.Company{
		testCompanyID: {ID: testCompanyID, Name: "Distribuidora Alfa", TaxID: companyTaxID},
	}}
	return ingest.NewPipeline(
		fiscalxml.New(),
		invRepo,
		companies,
		ingest.Limits{MaxFileSize: 5 << 20, MaxBatchFiles: 50},
		logger.NewNop(),
		metrics.NewNop(),
	)
}

// ──────────────────────────────────────────────────────────────────────────────
// Testes
// ──────────────────────────────────────────────────────────────────────────────

func TestIngestUpload_LoteMisto(t *testing.T) {
	invRepo := newFakeInvoiceRepo()
	p := newPipeline(invRepo)
	ctx := context.Background()

	// Primeiro lote: persiste o documento válido.
	first, err := p.IngestUpload(ctx, testCompanyID, []ingest.Document{
		{Name: "nota1.xml", Content: nfeFixture(otherTaxID)},
	})
	require.NoError(t, err)
	require.Len(t, first.Succeeded, 1)

	// Segundo lote: um duplicado e um arquivo de lixo. Sucesso parcial com
	// motivos distintos, nunca erro.
	second, err := p.IngestUpload(ctx, testCompanyID, []ingest.Document{
		{Name: "nota1-repetida.xml", Content: nfeFixture(otherTaxID)},
		{Name: "lixo.xml", Content: []byte("conteúdo aleatório, nem XML é")},
	})
	require.NoError(t, err)
	assert.Empty(t, second.Succeeded)
	require.Len(t, second.Failed, 2)
	assert.Equal(t, ingest.ReasonDuplicate, second.Failed[0].Reason)
	assert.Equal(t, ingest.ReasonUnrecognized, second.Failed[1].Reason)
	assert.NotEqual(t, second.Failed[0].Reason, second.Failed[1].Reason)

	// Exatamente um registro persistido no total.
	assert.Len(t, invRepo.byKey, 1)
}

func TestIngestUpload_ClassificaDirecao(t *testing.T) {
	invRepo := newFakeInvoiceRepo()
	p := newPipeline(invRepo)

	result, err := p.IngestUpload(context.Background(), testCompanyID, []ingest.Document{
		{Name: "emitida.xml", Content: nfeFixture(companyTaxID)},
	})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)

	stored := invRepo.byKey[validAccessKey]
	require.NotNil(t, stored)
	assert.Equal(t, entity.DirectionIssued, stored.Direction)
	assert.Equal(t, entity.StatusReceived, stored.Status, "upload não traz manifestação: status conservador")
	assert.NotEmpty(t, stored.RawXML, "XML original retido para auditoria")
}

func TestIngestUpload_ValidacoesDeArquivo(t *testing.T) {
	p := newPipeline(newFakeInvoiceRepo())

	result, err := p.IngestUpload(context.Background(), testCompanyID, []ingest.Document{
		{Name: "planilha.xlsx", Content: []byte("qualquer")},
		{Name: "grande.xml", Content: make([]byte, (5<<20)+1)},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, ingest.ReasonBadExtension, result.Failed[0].Reason)
	assert.Equal(t, ingest.ReasonTooLarge, result.Failed[1].Reason)
}

func TestIngestUpload_LoteAcimaDoLimite(t *testing.T) {
	p := newPipeline(newFakeInvoiceRepo())

	docs := make([]ingest.Document, 51)
	for i := range docs {
		docs[i] = ingest.Document{Name: fmt.Sprintf("n%d.xml", i), Content: []byte("<x/>")}
	}
	_, err := p.IngestUpload(context.Background(), testCompanyID, docs)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = p.IngestUpload(context.Background(), testCompanyID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestFetched_StatusDoProvedor(t *testing.T) {
	invRepo := newFakeInvoiceRepo()
	p := newPipeline(invRepo)

	result, err := p.IngestFetched(context.Background(), testCompanyID, []ingest.Document{
		{Name: "nsu-000123", Content: nfeFixture(otherTaxID), ProviderStatus: "Confirmação da Operação"},
	})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)

	stored := invRepo.byKey[validAccessKey]
	require.NotNil(t, stored)
	assert.Equal(t, entity.StatusConfirmed, stored.Status)
	assert.Equal(t, entity.DirectionReceived, stored.Direction)
}

func TestIngest_StoreIndisponivelAborta(t *testing.T) {
	invRepo := newFakeInvoiceRepo()
	invRepo.failWith = errors.New("connection refused")
	p := newPipeline(invRepo)

	_, err := p.IngestUpload(context.Background(), testCompanyID, []ingest.Document{
		{Name: "nota.xml", Content: nfeFixture(otherTaxID)},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateAccessKey)
}

func TestIngest_EmpresaInexistente(t *testing.T) {
	p := newPipeline(newFakeInvoiceRepo())
	_, err := p.IngestUpload(context.Background(), "inexistente", []ingest.Document{
		{Name: "nota.xml", Content: nfeFixture(otherTaxID)},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_ContextoCancelado(t *testing.T) {
	p := newPipeline(newFakeInvoiceRepo())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.IngestUpload(ctx, testCompanyID, []ingest.Document{
		{Name: "nota.xml", Content: nfeFixture(otherTaxID)},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
