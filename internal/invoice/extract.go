package invoice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

// Element names of the SIFEN electronic document schema
const (
	tagEnvelope = "rDE"
	tagDocument = "DE"
	tagStamp    = "gTimb"
	tagGeneral  = "gDatGralOpe"
	tagIssuer   = "gEmis"
	tagTotals   = "gTotSub"

	tagEstablishment   = "dEst"
	tagExpeditionPoint = "dPunExp"
	tagDocumentNumber  = "dNumDoc"
	tagStampNumber     = "dNumTim"
	tagIssueDate       = "dFeEmiDE"
	tagTaxID           = "dRucEm"
	tagIssuerName      = "dNomEmi"
	tagTotal           = "dTotGralOpe"
	tagVAT10           = "dIVA10"
	tagVAT5            = "dIVA5"

	attrControlCode = "Id"
)

// DefaultMissingPart is what existing exports show for an absent invoice number component
const DefaultMissingPart = "undefined"

var (
	// ErrNotInvoice is returned when a well-formed document lacks a required block
	ErrNotInvoice = errors.New("document is not a valid invoice")

	// ErrMissingDate is returned when the general operation block has no issue date
	ErrMissingDate = errors.New("issue date is missing")

	errNoRoot = errors.New("document has no root element")
)

// ParseError reports a document that could not be read as XML
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// OutcomeKind classifies the result of an extraction
type OutcomeKind int

const (
	Extracted OutcomeKind = iota
	Invalid
	Malformed
)

func (k OutcomeKind) String() string {
	switch k {
	case Extracted:
		return "extracted"
	case Invalid:
		return "invalid"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of extracting one document.
// Record is set only when Kind is Extracted; Err is set otherwise.
type Outcome struct {
	Kind   OutcomeKind
	Record *Record
	Err    error
}

// OK reports whether a record was extracted
func (o Outcome) OK() bool {
	return o.Kind == Extracted
}

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Extractor turns SIFEN XML documents into records
type Extractor struct {
	idGenerator IDGenerator
	missingPart string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithIDGenerator sets the generator used for record ID suffixes
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Extractor) {
		e.idGenerator = g
	}
}

// WithMissingPart sets the text used for an absent invoice number component
func WithMissingPart(text string) Option {
	return func(e *Extractor) {
		e.missingPart = text
	}
}

// NewExtractor creates a new Extractor
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		idGenerator: &uuidGenerator{},
		missingPart: DefaultMissingPart,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses content as an electronic invoice.
// It never panics: malformed input yields a Malformed outcome and a document without
// the stamp, general operation or subtotal block yields an Invalid one.
func (e *Extractor) Extract(content, fileName string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = malformed(fileName, fmt.Errorf("unexpected document shape: %v", r))
		}
	}()

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromString(content); err != nil {
		return malformed(fileName, err)
	}

	root := doc.Root()
	if root == nil {
		return malformed(fileName, errNoRoot)
	}

	var de *etree.Element
	if root.Tag == tagEnvelope {
		de = root.SelectElement(tagDocument)
	}
	stamp := childElement(de, tagStamp)
	general := childElement(de, tagGeneral)
	totals := childElement(de, tagTotals)

	if isEmptyBlock(stamp) || isEmptyBlock(general) || isEmptyBlock(totals) {
		return Outcome{Kind: Invalid, Err: fmt.Errorf("%s: %w", fileName, ErrNotInvoice)}
	}

	issueDate := general.SelectElement(tagIssueDate)
	if issueDate == nil {
		return malformed(fileName, ErrMissingDate)
	}
	issuer := general.SelectElement(tagIssuer)

	vat10 := parseAmount(leafText(totals, tagVAT10))
	vat5 := parseAmount(leafText(totals, tagVAT5))

	record := &Record{
		ID: fileName + "-" + e.idGenerator.Generate(),
		InvoiceNumber: strings.Join([]string{
			e.numberPart(stamp, tagEstablishment),
			e.numberPart(stamp, tagExpeditionPoint),
			e.numberPart(stamp, tagDocumentNumber),
		}, "-"),
		Date:        strings.SplitN(elementText(issueDate), "T", 2)[0],
		Amount:      formatAmount(parseAmount(leafText(totals, tagTotal))),
		VAT10:       formatAmount(vat10),
		VAT5:        formatAmount(vat5),
		VATTotal:    formatAmount(vat10.Add(vat5)),
		TaxID:       leafText(issuer, tagTaxID),
		IssuerName:  leafText(issuer, tagIssuerName),
		StampNumber: leafText(stamp, tagStampNumber),
		ControlCode: de.SelectAttrValue(attrControlCode, ""),
		FileName:    fileName,
	}

	return Outcome{Kind: Extracted, Record: record}
}

// numberPart returns one invoice number component, or the placeholder when absent
func (e *Extractor) numberPart(stamp *etree.Element, tag string) string {
	el := stamp.SelectElement(tag)
	if el == nil {
		return e.missingPart
	}
	return elementText(el)
}

func malformed(fileName string, err error) Outcome {
	return Outcome{Kind: Malformed, Err: &ParseError{FileName: fileName, Err: err}}
}

// childElement matches by local name, ignoring any namespace prefix
func childElement(parent *etree.Element, tag string) *etree.Element {
	if parent == nil {
		return nil
	}
	return parent.SelectElement(tag)
}

// isEmptyBlock reports whether a block is absent or carries no children, attributes or text
func isEmptyBlock(el *etree.Element) bool {
	if el == nil {
		return true
	}
	return len(el.ChildElements()) == 0 && len(el.Attr) == 0 && strings.TrimSpace(el.Text()) == ""
}

// leafText returns the trimmed text of a child element, or "" when it is absent
func leafText(parent *etree.Element, tag string) string {
	el := childElement(parent, tag)
	if el == nil {
		return ""
	}
	return elementText(el)
}

// lineBreaks turns carriage returns into plain line feeds
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// elementText returns the trimmed text of el with line breaks normalized to \n
func elementText(el *etree.Element) string {
	return lineBreaks.Replace(strings.TrimSpace(el.Text()))
}
