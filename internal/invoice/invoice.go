package invoice

// Record represents the data extracted from one electronic invoice
type Record struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"` // establishment-expedition point-document number
	Date          string `json:"date"`           // YYYY-MM-DD
	Amount        string `json:"amount"`
	VAT10         string `json:"vat10"`
	VAT5          string `json:"vat5"`
	VATTotal      string `json:"vat_total"`
	TaxID         string `json:"tax_id"`
	IssuerName    string `json:"issuer_name"`
	StampNumber   string `json:"stamp_number"`
	ControlCode   string `json:"control_code,omitempty"` // CDC from the DE Id attribute
	FileName      string `json:"file_name"`
}

// Batch is the result of processing a set of documents
type Batch struct {
	Records   []*Record `json:"records"` // in input order
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// Empty reports whether the batch produced no records
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}
