package pdfparse

import (
	"regexp"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// ToCandidates maps every case in doc onto the canonical record shape.
// The original creditor falls back to the current creditor.
func ToCandidates(doc *model.StructuredDocument) []model.Candidate {
	out := make([]model.Candidate, 0, len(doc.Cases))
	for _, c := range doc.Cases {
		creditor := c.Parties.OriginalCreditor
		if creditor == "" {
			creditor = c.Parties.CurrentCreditor
		}
		collector := c.Parties.DebtCollector
		if collector == "" {
			collector = doc.DebtCollector
		}

		cand := model.Candidate{
			CaseID:               model.Ptr(c.Identifiers.CaseNumber),
			TotalAmount:          c.Amounts.TotalAmount,
			OriginalAmount:       c.Amounts.PrincipalAmount,
			InterestAndFines:     InterestAndFines(c.Amounts),
			OriginalDueDate:      model.ParseDate(c.Dates.OriginalDueDate),
			DebtCollectorName:    model.Ptr(collector),
			OriginalCreditorName: model.Ptr(creditor),
		}
		if c.Amounts.TotalAmount != nil {
			cand.TotalAmount = model.Ptr(norm.Round2(*c.Amounts.TotalAmount))
		}
		out = append(out, cand)
	}
	return out
}

func firstValue(text string, re *regexp.Regexp) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseValue(m[1])
}

func parseValue(raw string) (float64, bool) {
	d, ok := norm.ParseDecimal(raw)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}
