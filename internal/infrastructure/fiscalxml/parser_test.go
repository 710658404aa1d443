package fiscalxml_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
	"github.com/fiscalhub/notas-api/internal/infrastructure/fiscalxml"
)

// Chaves de 44 dígitos usadas nos fixtures.
const (
	nfeKey = "35230412345678000190550010000012341000012345"
	cteKey = "51230998765432000109570010000009871000009876"
)

// NF-e processada (nfeProc): a chave vem do protocolo de autorização.
const nfeProcFixture = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe` + nfeKey + `" versao="4.00">
      <ide>
        <nNF>1234</nNF>
        <serie>1</serie>
        <dhEmi>2023-04-15T10:30:00-03:00</dhEmi>
      </ide>
      <emit>
        <CNPJ>12345678000190</CNPJ>
        <xNome>Distribuidora Alfa LTDA</xNome>
      </emit>
      <dest>
        <CNPJ>98765432000109</CNPJ>
        <xNome>Comercial Beta ME</xNome>
      </dest>
      <total>
        <ICMSTot>
          <vNF>1530.75</vNF>
        </ICMSTot>
      </total>
    </infNFe>
  </NFe>
  <protNFe>
    <infProt>
      <chNFe>` + nfeKey + `</chNFe>
      <cStat>100</cStat>
    </infProt>
  </protNFe>
</nfeProc>`

// NF-e sem protocolo: a chave é derivada do atributo Id, sem o prefixo "NFe".
const nfeBareFixture = `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
  <infNFe Id="NFe` + nfeKey + `">
    <ide><nNF>1234</nNF><serie>1</serie><dEmi>2023-04-15</dEmi></ide>
    <emit><CNPJ>12345678000190</CNPJ><xNome>Distribuidora Alfa LTDA</xNome></emit>
    <dest><CPF>12345678909</CPF><xNome>Fulano de Tal</xNome></dest>
  </infNFe>
</NFe>`

const cteProcFixture = `<?xml version="1.0"?>
<cteProc xmlns="http://www.portalfiscal.inf.br/cte" versao="3.00">
  <CTe>
    <infCte Id="CTe` + cteKey + `" versao="3.00">
      <ide>
        <nCT>987</nCT>
        <serie>1</serie>
        <dhEmi>2023-09-20T08:00:00-03:00</dhEmi>
      </ide>
      <emit><CNPJ>98765432000109</CNPJ><xNome>Transportes Gama SA</xNome></emit>
      <rem><CNPJ>12345678000190</CNPJ><xNome>Distribuidora Alfa LTDA</xNome></rem>
      <vPrest><vTPrest>350.00</vTPrest></vPrest>
    </infCte>
  </CTe>
  <protCTe>
    <infProt><chCTe>` + cteKey + `</chCTe><cStat>100</cStat></infProt>
  </protCTe>
</cteProc>`

const nfseFixture = `<?xml version="1.0" encoding="UTF-8"?>
<ConsultarNfseResposta xmlns="http://www.abrasf.org.br/nfse.xsd">
  <CompNfse>
    <Nfse>
      <InfNfse>
        <Numero>482</Numero>
        <CodigoVerificacao>AB12-CD34</CodigoVerificacao>
        <DataEmissao>2023-06-02T14:00:00</DataEmissao>
        <PrestadorServico>
          <IdentificacaoPrestador><Cnpj>11222333000181</Cnpj></IdentificacaoPrestador>
          <RazaoSocial>Serviços Delta LTDA</RazaoSocial>
        </PrestadorServico>
        <TomadorServico>
          <IdentificacaoTomador><CpfCnpj><Cnpj>12345678000190</Cnpj></CpfCnpj></IdentificacaoTomador>
          <RazaoSocial>Distribuidora Alfa LTDA</RazaoSocial>
        </TomadorServico>
        <Servico><Valores><ValorServicos>2500.00</ValorServicos></Valores></Servico>
      </InfNfse>
    </Nfse>
  </CompNfse>
</ConsultarNfseResposta>`

func TestParse_NFEProcessada(t *testing.T) {
	p := fiscalxml.New()
	parsed := p.Parse([]byte(nfeProcFixture))
	require.NotNil(t, parsed)

	assert.Equal(t, nfeKey, parsed.AccessKey)
	assert.Equal(t, entity.DocumentTypeNFE, parsed.DocumentType)
	assert.Equal(t, "1234", parsed.Number)
	assert.Equal(t, "1", parsed.Series)
	assert.Equal(t, "12345678000190", parsed.SenderTaxID)
	assert.Equal(t, "Distribuidora Alfa LTDA", parsed.SenderName)
	assert.Equal(t, "98765432000109", parsed.RecipientTaxID)
	assert.Equal(t, "1530.75", parsed.TotalValue.StringFixed(2))
	assert.Equal(t, 2023, parsed.IssueDate.Year())
	assert.Equal(t, time.April, parsed.IssueDate.Month())
}

func TestParse_NFESemProtocolo_ChaveDoAtributoId(t *testing.T) {
	p := fiscalxml.New()
	parsed := p.Parse([]byte(nfeBareFixture))
	require.NotNil(t, parsed)

	assert.Equal(t, nfeKey, parsed.AccessKey)
	assert.Equal(t, "12345678909", parsed.RecipientTaxID, "CPF do destinatário também é aceito")
	// Sem vNF o total assume zero (documento parcial continua importável).
	assert.True(t, parsed.TotalValue.IsZero())
}

func TestParse_CTEProcessado(t *testing.T) {
	p := fiscalxml.New()
	parsed := p.Parse([]byte(cteProcFixture))
	require.NotNil(t, parsed)

	assert.Equal(t, cteKey, parsed.AccessKey)
	assert.Equal(t, entity.DocumentTypeCTE, parsed.DocumentType)
	assert.Equal(t, "987", parsed.Number)
	assert.Equal(t, "98765432000109", parsed.SenderTaxID)
	// Sem dest o canônico usa o remetente.
	assert.Equal(t, "12345678000190", parsed.RecipientTaxID)
	assert.Equal(t, "350.00", parsed.TotalValue.StringFixed(2))
}

func TestParse_NFSE_ChaveComposta(t *testing.T) {
	p := fiscalxml.New()
	parsed := p.Parse([]byte(nfseFixture))
	require.NotNil(t, parsed)

	// CNPJ do prestador + número com zeros à esquerda (15) + código de verificação.
	assert.Equal(t, "11222333000181"+"000000000000482"+"AB12-CD34", parsed.AccessKey)
	assert.Equal(t, entity.DocumentTypeNFSE, parsed.DocumentType)
	assert.Equal(t, "482", parsed.Number)
	assert.Empty(t, parsed.Series)
	assert.Equal(t, "11222333000181", parsed.SenderTaxID)
	assert.Equal(t, "12345678000190", parsed.RecipientTaxID)
	assert.Equal(t, "2500.00", parsed.TotalValue.StringFixed(2))
}

func TestParse_EntradaInvalida_RetornaNil(t *testing.T) {
	p := fiscalxml.New()

	tests := []struct {
		name  string
		input string
	}{
		{"lixo não XML", "isto não é um XML de jeito nenhum {{{"},
		{"vazio", ""},
		{"XML bem formado de outro domínio", "<pedido><item>abc</item></pedido>"},
		{"NF-e com chave curta demais", `<NFe><infNFe Id="NFe12345"><ide><nNF>1</nNF></ide></infNFe></NFe>`},
		{"NFS-e sem código de verificação", `<CompNfse><Nfse><InfNfse><Numero>1</Numero><PrestadorServico><IdentificacaoPrestador><Cnpj>11222333000181</Cnpj></IdentificacaoPrestador></PrestadorServico></InfNfse></Nfse></CompNfse>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, p.Parse([]byte(tt.input)))
		})
	}
}

func TestParse_AcimaDoTeto_RetornaNil(t *testing.T) {
	p := fiscalxml.New()
	huge := []byte("<NFe>" + strings.Repeat("x", fiscalxml.MaxDocumentSize) + "</NFe>")
	assert.Nil(t, p.Parse(huge))
}

func TestParse_SemData_UsaAgora(t *testing.T) {
	fixture := `<NFe><infNFe Id="NFe` + nfeKey + `"><ide><nNF>1</nNF></ide><emit><CNPJ>12345678000190</CNPJ></emit></infNFe></NFe>`
	p := fiscalxml.New()

	before := time.Now()
	parsed := p.Parse([]byte(fixture))
	require.NotNil(t, parsed)
	assert.False(t, parsed.IssueDate.Before(before.Add(-time.Second)))
	assert.False(t, parsed.IssueDate.After(time.Now().Add(time.Second)))
}
