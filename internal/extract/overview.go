package extract

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// OverviewSelectors locates cases on the overview page and rows on a
// detail page.
type OverviewSelectors struct {
	Case        string
	CaseLabel   string
	CaseNumber  *regexp.Regexp
	Total       string
	Creditor    string
	DetailRow   string
	DetailLabel string
	DetailValue string
}

// DefaultOverviewSelectors matches the Intrum case list markup.
func DefaultOverviewSelectors() OverviewSelectors {
	return OverviewSelectors{
		Case:        `.case-container, .debt-case, [class*="case"]`,
		CaseLabel:   ".label",
		CaseNumber:  regexp.MustCompile(`Saksnummer\s+(\d+)`),
		Total:       ".case-total-amount-value",
		Creditor:    ".creditor-name",
		DetailRow:   ".global-table tr",
		DetailLabel: ".table-label, .bold",
		DetailValue: ".table-amount",
	}
}

// Detail labels that map onto canonical fields. Matching is on the
// lowercased label with trailing ':' and '*' removed. When a table has
// several total or principal labels, the one listed first wins.
var (
	detailTotalLabels     = []string{"totalt å betale", "å betale", "totalt", "totalbeløp", "total", "saldo"}
	detailPrincipalLabels = []string{"opprinnelig beløp", "hovedstol", "rest hovedstol"}
	detailInterestPrefix  = []string{"forsinkelsesrenter", "renter", "gebyr", "inkassosalær", "salær", "omkostninger"}
)

// OverviewExtractor reads a case list and one detail page per case.
type OverviewExtractor struct {
	Collector string
	Selectors *OverviewSelectors
	Detector  *Detector
	Fetcher   DetailFetcher
	now       func() time.Time
}

func (e *OverviewExtractor) selectors() OverviewSelectors {
	if e.Selectors != nil {
		return *e.Selectors
	}
	return DefaultOverviewSelectors()
}

// Overview returns the listed cases. Entries without a case number or an
// amount are dropped, as are repeats of the same case and amount.
func (e *OverviewExtractor) Overview(doc *goquery.Document) []model.OverviewCase {
	sel := e.selectors()
	seen := map[string]bool{}
	var cases []model.OverviewCase

	doc.Find(sel.Case).Each(func(_ int, s *goquery.Selection) {
		var c model.OverviewCase
		if m := sel.CaseNumber.FindStringSubmatch(text(s.Find(sel.CaseLabel).First())); m != nil {
			c.CaseNumber = m[1]
		}
		c.TotalAmount = amountText(s.Find(sel.Total).First().Text())
		c.CreditorName = text(s.Find(sel.Creditor).First())

		if c.CaseNumber == "" || c.TotalAmount == "" {
			return
		}
		key := c.CaseNumber + "-" + c.TotalAmount
		if seen[key] {
			return
		}
		seen[key] = true
		cases = append(cases, c)
	})
	return cases
}

// Detail reads the label to amount table of one detail page. Labels are
// kept verbatim; rows whose amount does not parse are skipped.
func (e *OverviewExtractor) Detail(doc *goquery.Document) map[string]float64 {
	sel := e.selectors()
	out := map[string]float64{}
	doc.Find(sel.DetailRow).Each(func(_ int, row *goquery.Selection) {
		label := text(row.Find(sel.DetailLabel).First())
		amount := row.Find(sel.DetailValue).First()
		if label == "" || amount.Length() == 0 {
			return
		}
		d, ok := norm.ParseDecimal(amountText(amount.Text()))
		if !ok {
			return
		}
		out[label] = d.Round(2).InexactFloat64()
	})
	return out
}

// Extract reads the overview, then each case's detail page from the
// snapshot or, failing that, the fetcher. A detail page that cannot be
// loaded leaves the case with its overview values.
func (e *OverviewExtractor) Extract(ctx context.Context, snap Snapshot) (*Result, error) {
	doc, err := parseHTML(snap.Content)
	if err != nil {
		return nil, err
	}
	page := doc.Text()
	if res := lockedOut(e.Detector, e.Collector, page); res != nil {
		return res, nil
	}

	cases := e.Overview(doc)
	if len(cases) == 0 {
		return emptyPage(e.Detector, e.Collector, page, "overview cases"), nil
	}

	details := map[string]map[string]float64{}
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, ok := snap.Details[c.CaseNumber]
		if !ok && e.Fetcher != nil {
			page, err = e.Fetcher.FetchDetail(ctx, c.CaseNumber)
			if err != nil {
				zap.L().Warn("extract: detail page not loaded",
					zap.String("site", e.Collector),
					zap.String("case_id", c.CaseNumber),
					zap.Error(err),
				)
				continue
			}
			ok = true
		}
		if !ok {
			continue
		}
		ddoc, err := parseHTML([]byte(page))
		if err != nil {
			return nil, err
		}
		if d := e.Detail(ddoc); len(d) > 0 {
			details[c.CaseNumber] = d
		}
	}

	now := time.Now
	if e.now != nil {
		now = e.now
	}
	payload := &model.OverviewDetail{
		Collector: e.Collector,
		DebtCases: cases,
		Details:   details,
		Timestamp: now().UTC().Format(time.RFC3339),
	}
	return &Result{
		Site:       e.Collector,
		Outcome:    model.OutcomeDebtFound,
		Candidates: MergeOverview(e.Collector, payload),
		Payload:    payload,
	}, nil
}

// MergeOverview combines each overview case with its detail table. A
// detail value wins over the overview value for the same field; every
// detail label is carried through in Details.
func MergeOverview(collector string, od *model.OverviewDetail) []model.Candidate {
	if od.Collector != "" {
		collector = od.Collector
	}
	out := make([]model.Candidate, 0, len(od.DebtCases))
	for _, oc := range od.DebtCases {
		c := model.Candidate{
			CaseID:               model.Ptr(oc.CaseNumber),
			DebtCollectorName:    model.Ptr(collector),
			OriginalCreditorName: model.Ptr(oc.CreditorName),
			OriginalAmount:       oc.OriginalAmount,
			InterestAndFines:     oc.InterestAndFines,
			OriginalDueDate:      oc.OriginalDueDate,
		}
		if d, ok := norm.ParseDecimal(oc.TotalAmount); ok {
			c.TotalAmount = model.Ptr(d.Round(2).InexactFloat64())
		}

		detail := od.Details[oc.CaseNumber]
		if len(detail) > 0 {
			c.Details = make(map[string]float64, len(detail))
			totalRank, principalRank := len(detailTotalLabels), len(detailPrincipalLabels)
			interest := decimal.Zero
			hasInterest := false
			for _, label := range sortedLabels(detail) {
				v := detail[label]
				c.Details[label] = v
				key := detailKey(label)
				tr, pr := slices.Index(detailTotalLabels, key), slices.Index(detailPrincipalLabels, key)
				switch {
				case tr >= 0:
					if tr < totalRank {
						totalRank = tr
						c.TotalAmount = model.Ptr(v)
					}
				case pr >= 0:
					if pr < principalRank {
						principalRank = pr
						c.OriginalAmount = model.Ptr(v)
					}
				case hasAnyPrefix(key, detailInterestPrefix):
					interest = interest.Add(decimal.NewFromFloat(v))
					hasInterest = true
				}
			}
			if hasInterest {
				c.InterestAndFines = model.Ptr(interest.Round(2).InexactFloat64())
			}
		}
		out = append(out, c)
	}
	return out
}

func detailKey(label string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(label)), ":* ")
}

// sortedLabels fixes the walk order over a detail table. Labels that
// normalize to the same key then resolve the same way on every run.
func sortedLabels(detail map[string]float64) []string {
	labels := make([]string, 0, len(detail))
	for l := range detail {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
