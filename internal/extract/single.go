package extract

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// SingleValueNote is attached to every aggregate record.
const SingleValueNote = "Nettstedet viser kun samlet beløp og antall saker; ingen oppdeling per sak er tilgjengelig."

// SingleValueSelectors locates the aggregate figures on a summary page.
type SingleValueSelectors struct {
	Amount        string
	Cases         string
	Reference     string
	PreviousOwner string
}

// DefaultSingleValueSelectors matches the PRA Group account summary.
func DefaultSingleValueSelectors() SingleValueSelectors {
	return SingleValueSelectors{
		Amount:        `.total-amount, [data-testid="total-amount"]`,
		Cases:         `.active-cases, [data-testid="active-cases"]`,
		Reference:     `.account-reference, [data-testid="account-reference"]`,
		PreviousOwner: `.previous-owner, [data-testid="previous-owner"]`,
	}
}

var (
	amountInText = regexp.MustCompile(`(?i)(?:totalt|saldo|å betale|gjeld)\s*:?\s*(\d[\d\s]*,\d{2})`)
	casesInText  = regexp.MustCompile(`(?i)antall\s+(?:aktive\s+)?saker\s*:?\s*(\d+)`)
)

// SingleValueExtractor reads sites that show one total and a case count.
type SingleValueExtractor struct {
	Collector string
	Selectors *SingleValueSelectors
	Detector  *Detector
	now       func() time.Time
}

func (e *SingleValueExtractor) selectors() SingleValueSelectors {
	if e.Selectors != nil {
		return *e.Selectors
	}
	return DefaultSingleValueSelectors()
}

// Extract returns one pseudo-record for the aggregate, carrying a note that
// no per-case breakdown exists. A zero amount with no cases is no debt.
func (e *SingleValueExtractor) Extract(_ context.Context, snap Snapshot) (*Result, error) {
	doc, err := parseHTML(snap.Content)
	if err != nil {
		return nil, err
	}
	page := text(doc.Selection)
	if res := lockedOut(e.Detector, e.Collector, page); res != nil {
		return res, nil
	}

	sel := e.selectors()
	amountRaw := text(doc.Find(sel.Amount).First())
	if amountRaw == "" {
		if m := amountInText.FindStringSubmatch(page); m != nil {
			amountRaw = m[1]
		}
	}
	casesRaw := text(doc.Find(sel.Cases).First())
	if m := casesInText.FindStringSubmatch(page); casesRaw == "" && m != nil {
		casesRaw = m[1]
	}
	if amountRaw == "" {
		return emptyPage(e.Detector, e.Collector, page, "aggregate amount"), nil
	}

	now := time.Now
	if e.now != nil {
		now = e.now
	}
	agg := &model.SingleAggregate{
		Collector:     e.Collector,
		Reference:     text(doc.Find(sel.Reference).First()),
		Amount:        norm.Round2(norm.ParseAmount(amountRaw)),
		ActiveCases:   leadingInt(casesRaw),
		PreviousOwner: text(doc.Find(sel.PreviousOwner).First()),
		Note:          SingleValueNote,
		Timestamp:     now().UTC().Format(time.RFC3339),
	}

	if agg.Amount == 0 && agg.ActiveCases == 0 {
		return &Result{Site: e.Collector, Outcome: model.OutcomeNoDebtFound, Candidates: []model.Candidate{}, Payload: agg}, nil
	}
	return &Result{
		Site:       e.Collector,
		Outcome:    model.OutcomeDebtFound,
		Candidates: []model.Candidate{AggregateCandidate(agg)},
		Payload:    agg,
		Note:       agg.Note,
	}, nil
}

// AggregateCandidate is the pseudo-record standing in for a single
// aggregate. The reference, or the collector when there is none, is the
// case ID.
func AggregateCandidate(agg *model.SingleAggregate) model.Candidate {
	caseID := agg.Reference
	if caseID == "" {
		caseID = agg.Collector
	}
	creditor := agg.PreviousOwner
	if creditor == "" {
		creditor = agg.Collector
	}
	note := agg.Note
	if note == "" {
		note = SingleValueNote
	}
	return model.Candidate{
		CaseID:               model.Ptr(caseID),
		TotalAmount:          model.Ptr(agg.Amount),
		DebtCollectorName:    model.Ptr(agg.Collector),
		OriginalCreditorName: model.Ptr(creditor),
		Comment:              note,
	}
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
