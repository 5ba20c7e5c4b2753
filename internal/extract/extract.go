// Package extract turns what a browser session captured on a collector's
// site into pre-validation debt candidates. Navigation and clicking happen
// elsewhere; extractors only read page content handed to them.
package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// Extractor kinds.
const (
	KindTable    = "table"
	KindOverview = "overview"
	KindSingle   = "single"
	KindClaims   = "claims"
)

// Snapshot is one capture of a site: the page (or API body) plus any detail
// pages already fetched, keyed by case number.
type Snapshot struct {
	Site    string
	URL     string
	Content []byte
	Details map[string]string
}

// Result is what one extraction produced. Candidates is empty unless the
// outcome is DebtFound; Payload is the raw shape to persist.
type Result struct {
	Site       string
	Outcome    model.Outcome
	Candidates []model.Candidate
	Payload    model.Payload
	Note       string
}

// Extractor turns a snapshot into candidates and an outcome. A lockout or
// no-debt page is an outcome, not an error.
type Extractor interface {
	Extract(ctx context.Context, snap Snapshot) (*Result, error)
}

// DetailFetcher loads a case's detail page when the snapshot lacks it.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, caseNumber string) (string, error)
}

// Options configures New.
type Options struct {
	Detector *Detector
	Fetcher  DetailFetcher
}

// New returns the extractor of the given kind for site.
func New(kind, site string, opts Options) (Extractor, error) {
	det := opts.Detector
	if det == nil {
		det = DefaultDetector()
	}
	switch kind {
	case KindTable:
		return &TableExtractor{Collector: site, Detector: det}, nil
	case KindOverview:
		return &OverviewExtractor{Collector: site, Detector: det, Fetcher: opts.Fetcher}, nil
	case KindSingle:
		return &SingleValueExtractor{Collector: site, Detector: det}, nil
	case KindClaims:
		return &ClaimsExtractor{Collector: site}, nil
	default:
		return nil, eris.Errorf("extract: unknown extractor kind %q", kind)
	}
}

// KindForSite returns the extractor kind a known site uses, or "".
func KindForSite(site string) string {
	switch strings.ToLower(site) {
	case "si", "statens innkrevingssentral":
		return KindClaims
	case "intrum":
		return KindOverview
	case "pra group":
		return KindSingle
	case "zolva", "zolva as", "tf bank":
		return KindTable
	default:
		return ""
	}
}

// lockedOut returns the result for a lockout page, or nil.
func lockedOut(det *Detector, site, text string) *Result {
	if !det.LockedOut(text) {
		return nil
	}
	return &Result{Site: site, Outcome: model.OutcomeTooManyFailedAttempts, Candidates: []model.Candidate{}}
}

// emptyPage is the result for a page where nothing could be extracted: no
// debt when the page says so, otherwise an unexpected state.
func emptyPage(det *Detector, site, text, missing string) *Result {
	if det.SaysNoDebt(text) {
		return noDebt(site)
	}
	zap.L().Warn("extract: nothing extracted and no known message",
		zap.String("site", site),
		zap.String("missing", missing),
	)
	return &Result{Site: site, Outcome: model.OutcomeUnexpectedState, Candidates: []model.Candidate{}}
}

// noDebt carries an empty collection so the visit is still recorded.
func noDebt(site string) *Result {
	c := model.NewDebtCollection(site, true, nil)
	return &Result{Site: site, Outcome: model.OutcomeNoDebtFound, Candidates: []model.Candidate{}, Payload: &c}
}

func parseHTML(content []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse html")
	}
	return doc, nil
}

// text returns the selection's text with whitespace collapsed. An empty
// selection gives "".
func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(norm.CleanText(sel.Text())), " ")
}

// amountText strips whitespace and currency from a displayed amount and
// turns the decimal comma into a point.
func amountText(s string) string {
	s = strings.Join(strings.Fields(norm.CleanText(s)), "")
	s = strings.ReplaceAll(s, "NOK", "")
	s = strings.ReplaceAll(s, "kr", "")
	return strings.Replace(s, ",", ".", 1)
}
