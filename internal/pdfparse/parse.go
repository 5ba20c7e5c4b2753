// Package pdfparse turns the page text of a debt collection statement into
// structured cases. The grand total page anchors the document; every page
// after it is split into per-case segments on case-number tokens and each
// segment is read with the label patterns in templates.yaml.
package pdfparse

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// Meta describes the document being parsed.
type Meta struct {
	PDFPath string
	PDFLink string
	// DebtCollector overrides detection from the anchor page.
	DebtCollector string
}

// Segment is the text belonging to one case number.
type Segment struct {
	CaseNumber string
	Text       string
}

// Parser extracts structured cases from statement text.
type Parser struct {
	t   *Templates
	c   *compiled
	now func() time.Time
}

// New compiles t into a Parser.
func New(t *Templates) (*Parser, error) {
	c, err := compileTemplates(t)
	if err != nil {
		return nil, err
	}
	return &Parser{t: t, c: c, now: time.Now}, nil
}

// NewDefault returns a Parser using the built-in templates.
func NewDefault() (*Parser, error) {
	t, err := DefaultTemplates()
	if err != nil {
		return nil, err
	}
	return New(t)
}

// Parse builds a StructuredDocument from per-page text. A document without
// the grand total anchor fails with KindAnchorMissing; every other missing
// field degrades to empty.
func (p *Parser) Parse(pages []string, meta Meta) (*model.StructuredDocument, error) {
	cleaned := make([]string, len(pages))
	for i, pg := range pages {
		cleaned[i] = norm.CleanText(pg)
	}

	anchor := -1
	var grandTotal float64
	for i, pg := range cleaned {
		if v, ok := firstValue(pg, p.c.anchor); ok {
			anchor, grandTotal = i, v
			break
		}
	}
	if anchor < 0 {
		return nil, model.NewKindError(model.KindAnchorMissing, meta.PDFPath,
			eris.Errorf("could not find Totalbeløp field in PDF (searched %d pages)", len(pages)))
	}
	anchorText := cleaned[anchor]

	collector := meta.DebtCollector
	if collector == "" {
		collector = p.DetectCollector(anchorText)
	}

	var b strings.Builder
	for _, pg := range cleaned[anchor+1:] {
		b.WriteString(pg)
		b.WriteByte('\n')
	}

	cases := []model.DocumentCase{}
	for _, seg := range p.Segments(b.String()) {
		cases = append(cases, p.parseCase(seg, collector))
	}
	if len(cases) == 0 && anchor == len(cleaned)-1 {
		cases = append(cases, p.fallbackCase(anchorText, collector))
	}

	return &model.StructuredDocument{
		DocumentMetadata: model.DocumentMetadata{
			Source:         collector,
			DocumentType:   model.DocumentTypeStatement,
			ExtractionDate: p.now().UTC().Format(time.RFC3339),
			PDFPath:        meta.PDFPath,
			PDFLink:        meta.PDFLink,
		},
		TotalAmount:   grandTotal,
		NumberOfCases: len(cases),
		DebtCollector: collector,
		Cases:         cases,
	}, nil
}

// Segments splits text on case-number tokens. A segment runs to the next
// different case number; a header repeated on a continuation page stays
// inside the segment it continues.
func (p *Parser) Segments(text string) []Segment {
	matches := p.c.caseNumber.FindAllStringSubmatchIndex(text, -1)
	numbers := make([]string, len(matches))
	for i, m := range matches {
		numbers[i] = text[m[2]:m[3]]
	}

	var segs []Segment
	for i, m := range matches {
		if i > 0 && numbers[i-1] == numbers[i] {
			continue
		}
		end := len(text)
		for j := i + 1; j < len(matches); j++ {
			if numbers[j] != numbers[i] {
				end = matches[j][0]
				break
			}
		}
		segs = append(segs, Segment{CaseNumber: numbers[i], Text: text[m[0]:end]})
	}
	return segs
}

// DetectCollector names the collector from markers on the anchor page.
func (p *Parser) DetectCollector(text string) string {
	lower := strings.ToLower(text)
	for _, c := range p.t.Collectors {
		if c.Contains != "" && strings.Contains(lower, strings.ToLower(c.Contains)) {
			return c.Name
		}
	}
	return p.t.UnknownCollector
}

func (p *Parser) parseCase(seg Segment, collector string) model.DocumentCase {
	invoiceDate, dueDate := p.basisDates(seg.Text)
	dc := model.DocumentCase{
		Identifiers: p.identifiers(seg.Text),
		Amounts:     p.amounts(seg.Text),
		Dates: model.CaseDates{
			InvoiceDate:     invoiceDate,
			OriginalDueDate: dueDate,
		},
		Parties: p.parties(seg.Text, collector),
	}
	dc.Identifiers.CaseNumber = seg.CaseNumber

	if invoices := p.Invoices(seg.Text); len(invoices) > 0 {
		dc.Details = &model.CaseDetails{BasisForClaim: p.t.BasisAnchor, Invoices: invoices}
	}
	return dc
}

// fallbackCase reads a single-page statement with no case numbers. The
// issue and due dates are taken by position in the page's date list,
// which only holds for the one layout this was built against.
func (p *Parser) fallbackCase(text, collector string) model.DocumentCase {
	dates := p.c.date.FindAllString(text, -1)
	at := func(i int) string {
		if i >= 0 && i < len(dates) {
			return dates[i]
		}
		return ""
	}

	var issued, due string
	if idx := p.t.FallbackDateIndexes; len(idx) >= 2 {
		issued, due = at(idx[0]), at(idx[1])
	}

	return model.DocumentCase{
		Identifiers: p.identifiers(text),
		Amounts:     p.amounts(text),
		Dates: model.CaseDates{
			IssuedDate:      issued,
			OriginalDueDate: due,
		},
		Parties: p.parties(text, collector),
	}
}

func (p *Parser) amounts(text string) model.CaseAmounts {
	get := func(field string) *float64 {
		if v, ok := firstValue(text, p.c.amounts[field]); ok {
			return &v
		}
		return nil
	}
	return model.CaseAmounts{
		TotalAmount:     get(FieldTotal),
		PrincipalAmount: get(FieldPrincipal),
		Interest:        get(FieldInterest),
		Fees:            get(FieldFees),
		CollectionFees:  get(FieldCollectionFees),
		InterestOnCosts: get(FieldInterestOnCosts),
	}
}

func (p *Parser) parties(text, collector string) model.CaseParties {
	return model.CaseParties{
		DebtCollector:    collector,
		CurrentCreditor:  p.c.creditor.find(text),
		OriginalCreditor: p.c.origCreditor.find(text),
	}
}

func (p *Parser) identifiers(text string) model.CaseIdentifiers {
	var ids model.CaseIdentifiers
	if m := p.c.customer.FindStringSubmatch(text); m != nil {
		ids.CustomerNumber = m[1]
	}
	if m := p.c.reference.FindStringSubmatch(text); m != nil {
		ids.ReferenceNumber = m[1]
	}
	return ids
}

// afterBasis returns the text following the basis-for-claim label.
func (p *Parser) afterBasis(text string) (string, bool) {
	idx := strings.Index(text, p.t.BasisAnchor)
	if idx < 0 {
		return "", false
	}
	return text[idx+len(p.t.BasisAnchor):], true
}

// basisDates returns the first two dates after the basis label as
// invoice and due date. Both are empty unless two dates are present.
func (p *Parser) basisDates(text string) (string, string) {
	after, ok := p.afterBasis(text)
	if !ok {
		return "", ""
	}
	dates := p.c.date.FindAllString(after, -1)
	if len(dates) < 2 {
		return "", ""
	}
	return dates[0], dates[1]
}

// Invoices pairs consecutive dates in the invoice section as invoice and
// due date. The invoice number is the token before the invoice date and
// the amount is the first currency value after the due date.
func (p *Parser) Invoices(text string) []model.Invoice {
	after, ok := p.afterBasis(text)
	if !ok {
		return nil
	}
	search := after
	if p.t.InvoiceSection != "" {
		if idx := strings.Index(after, p.t.InvoiceSection); idx >= 0 {
			search = after[idx:]
		}
	}

	dates := p.c.date.FindAllStringIndex(search, -1)
	var invoices []model.Invoice
	for i := 0; i+1 < len(dates); i += 2 {
		inv := model.Invoice{
			InvoiceNumber: p.invoiceNumber(search[:dates[i][0]]),
			InvoiceDate:   search[dates[i][0]:dates[i][1]],
			DueDate:       search[dates[i+1][0]:dates[i+1][1]],
		}

		start := dates[i+1][1]
		end := len(search)
		if p.t.InvoiceWindow > 0 && start+p.t.InvoiceWindow < end {
			end = start + p.t.InvoiceWindow
		}
		if v, ok := p.invoiceAmount(search[start:end]); ok {
			inv.Amount = &v
		}
		invoices = append(invoices, inv)
	}
	return invoices
}

func (p *Parser) invoiceNumber(before string) string {
	for _, re := range p.c.invNumber {
		if m := re.FindStringSubmatch(before); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// invoiceAmount returns the first amount in window not directly followed by
// text matching the reject pattern, bounded to (0, invoice_max_amount).
func (p *Parser) invoiceAmount(window string) (float64, bool) {
	for off := 0; off < len(window); {
		loc := p.c.invAmount.FindStringSubmatchIndex(window[off:])
		if loc == nil {
			return 0, false
		}
		start, end := off+loc[2], off+loc[3]
		if p.c.invReject != nil && p.c.invReject.MatchString(window[end:]) {
			off = off + loc[0] + 1
			continue
		}
		v, ok := parseValue(window[start:end])
		if !ok || v <= 0 || (p.t.InvoiceMaxAmount > 0 && v >= p.t.InvoiceMaxAmount) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// InterestAndFines sums the case's interest and fee fields, or nil when
// none were found.
func InterestAndFines(a model.CaseAmounts) *float64 {
	sum := decimal.Zero
	found := false
	for _, v := range []*float64{a.Interest, a.Fees, a.CollectionFees, a.InterestOnCosts} {
		if v == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(*v))
		found = true
	}
	if !found {
		return nil
	}
	f := sum.Round(2).InexactFloat64()
	return &f
}
