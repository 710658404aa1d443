package fiscalxml

import (
	"github.com/beevik/etree"

	"github.com/fiscalhub/notas-api/internal/domain/entity"
)

// extractCTE tenta interpretar o documento como CT-e.
//
// Variantes de embrulho aceitas: cteProc/CTe/infCte (processado), CTe/infCte
// (raiz nua) e infCte solto. Chave de acesso: protCTe/infProt/chCTe quando há
// protocolo; senão o atributo Id de infCte sem o prefixo "CTe". Sempre 44
// dígitos.
//
// O tomador do serviço de transporte nem sempre é o destinatário da carga;
// para o registro canônico usamos dest e caímos para rem (remetente) quando
// o documento não traz destinatário.
func extractCTE(doc *etree.Document) *entity.ParsedInvoice {
	infCte := findFirst(doc,
		"//cteProc/CTe/infCte",
		"//CTe/infCte",
		"//infCte",
	)
	if infCte == nil {
		return nil
	}

	accessKey := childText(doc.Root(),
		"//protCTe/infProt/chCTe",
		"//infProt/chCTe",
	)
	if !validAccessKey(accessKey) {
		accessKey = stripKeyPrefix(infCte.SelectAttrValue("Id", ""), "CTe")
	}
	if !validAccessKey(accessKey) {
		return nil
	}

	ide := infCte.FindElement("ide")
	emit := infCte.FindElement("emit")
	recipient := infCte.FindElement("dest")
	if recipient == nil {
		recipient = infCte.FindElement("rem")
	}

	return &entity.ParsedInvoice{
		AccessKey:      accessKey,
		DocumentType:   entity.DocumentTypeCTE,
		Number:         childText(ide, "nCT"),
		Series:         childText(ide, "serie"),
		IssueDate:      parseDate(childText(ide, "dhEmi"), childText(ide, "dEmi")),
		SenderTaxID:    childText(emit, "CNPJ", "CPF"),
		SenderName:     childText(emit, "xNome"),
		RecipientTaxID: childText(recipient, "CNPJ", "CPF"),
		RecipientName:  childText(recipient, "xNome"),
		// vTPrest: valor total da prestação do serviço de transporte.
		TotalValue: parseDecimal(childText(infCte, "vPrest/vTPrest", "vPrest/vRec")),
	}
}
