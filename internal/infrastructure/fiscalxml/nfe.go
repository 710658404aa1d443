package fiscalxml

import (
	"github.com/beevik/etree"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// extractNFE tenta interpretar o documento como NF-e.
//
// Variantes de embrulho aceitas:
//   - nfeProc/NFe/infNFe  (processada, com protocolo de autorização)
//   - NFe/infNFe          (raiz nua, sem protocolo)
//   - enviNFe/NFe/infNFe  (lote de envio)
//
// Derivação da chave de acesso, na ordem de confiança:
//  1. protNFe/infProt/chNFe — chave atribuída pela SEFAZ no protocolo;
//  2. atributo Id de infNFe, removendo o prefixo "NFe".
//
// Ambas exigem 44 dígitos; sem chave válida a tentativa falha (nil).
func extractNFE(doc *etree.Document) *entity.ParsedInvoice {
	infNFe := findFirst(doc,
		"//nfeProc/NFe/infNFe",
		"//NFe/infNFe",
		"//enviNFe/NFe/infNFe",
		"//infNFe",
	)
	if infNFe == nil {
		return nil
	}

	accessKey := childText(doc.Root(),
		"//protNFe/infProt/chNFe",
		"//infProt/chNFe",
	)
	if !validAccessKey(accessKey) {
		accessKey = stripKeyPrefix(infNFe.SelectAttrValue("Id", ""), "NFe")
	}
	if !validAccessKey(accessKey) {
		return nil
	}

	ide := infNFe.FindElement("ide")
	emit := infNFe.FindElement("emit")
	dest := infNFe.FindElement("dest")

	return &entity.ParsedInvoice{
		AccessKey:    accessKey,
		DocumentType: entity.DocumentTypeNFE,
		Number:       childText(ide, "nNF"),
		Series:       childText(ide, "serie"),
		// dhEmi (modelo 4.00) ou dEmi (legado 2.00/3.10); sem nenhum, agora.
		IssueDate:      parseDate(childText(ide, "dhEmi"), childText(ide, "dEmi")),
		SenderTaxID:    childText(emit, "CNPJ", "CPF"),
		SenderName:     childText(emit, "xNome"),
		RecipientTaxID: childText(dest, "CNPJ", "CPF"),
		RecipientName:  childText(dest, "xNome"),
		TotalValue:     parseDecimal(childText(infNFe, "total/ICMSTot/vNF")),
	}
}
