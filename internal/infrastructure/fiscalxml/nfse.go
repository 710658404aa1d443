package fiscalxml

import (
	"github.com/beevik/etree"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// nfseNumberWidth é a largura do número da nota dentro da chave composta.
const nfseNumberWidth = 15

// extractNFSE tenta interpretar o documento como NFS-e no leiaute ABRASF,
// o mais difundido entre as prefeituras.
//
// Variantes de embrulho aceitas: CompNfse/Nfse/InfNfse (resposta de consulta
// ou lote) e InfNfse solto. NFS-e não tem chave de acesso nacional: a chave
// canônica é sintetizada como CNPJ do prestador + número com zeros à
// esquerda + código de verificação, exigindo ao menos 20 caracteres no
// total. Sem prestador, número ou código, a tentativa falha.
func extractNFSE(doc *etree.Document) *entity.ParsedInvoice {
	infNfse := findFirst(doc,
		"//CompNfse/Nfse/InfNfse",
		"//Nfse/InfNfse",
		"//InfNfse",
	)
	if infNfse == nil {
		return nil
	}

	number := childText(infNfse, "Numero")
	verification := childText(infNfse, "CodigoVerificacao")
	providerTaxID := onlyDigits(childText(infNfse,
		"PrestadorServico/IdentificacaoPrestador/Cnpj",
		"PrestadorServico/IdentificacaoPrestador/CpfCnpj/Cnpj",
		"Prestador/Cnpj",
	))
	if number == "" || verification == "" || providerTaxID == "" {
		return nil
	}
	accessKey := providerTaxID + padNumber(onlyDigits(number), nfseNumberWidth) + verification
	if len(accessKey) < minNFSeKeyLen {
		return nil
	}

	taker := findFirst(doc,
		"//TomadorServico",
		"//Tomador",
	)

	return &entity.ParsedInvoice{
		AccessKey:    accessKey,
		DocumentType: entity.DocumentTypeNFSE,
		Number:       number,
		// NFS-e não tem série.
		Series:      "",
		IssueDate:   parseDate(childText(infNfse, "DataEmissao", "Competencia")),
		SenderTaxID: providerTaxID,
		SenderName: childText(infNfse,
			"PrestadorServico/RazaoSocial",
			"Prestador/RazaoSocial",
		),
		RecipientTaxID: childText(taker,
			"IdentificacaoTomador/CpfCnpj/Cnpj",
			"IdentificacaoTomador/CpfCnpj/Cpf",
			"CpfCnpj/Cnpj",
			"CpfCnpj/Cpf",
		),
		RecipientName: childText(taker, "RazaoSocial"),
		TotalValue: parseDecimal(childText(infNfse,
			"Servico/Valores/ValorServicos",
			"ValoresNfse/ValorLiquidoNfse",
		)),
	}
}
