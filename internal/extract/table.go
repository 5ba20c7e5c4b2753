package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// TableColumns gives the cell index of each field in a case row.
type TableColumns struct {
	CaseNumber int
	Registered int
	Creditor   int
	Balance    int
}

// DefaultTableColumns is the case, registered, creditor, balance layout.
var DefaultTableColumns = TableColumns{CaseNumber: 0, Registered: 1, Creditor: 2, Balance: 3}

// TableRow is one case row as displayed. Missing cells are "".
type TableRow struct {
	CaseNumber string `json:"caseNumber"`
	Registered string `json:"registered"`
	Creditor   string `json:"creditor"`
	Balance    string `json:"balance"`
}

// TableExtractor reads row-per-case HTML tables.
type TableExtractor struct {
	Collector string
	Rows      string
	Columns   *TableColumns
	Detector  *Detector
}

func (e *TableExtractor) rowSelector() string {
	if e.Rows != "" {
		return e.Rows
	}
	return "table tbody tr"
}

func (e *TableExtractor) columns() TableColumns {
	if e.Columns != nil {
		return *e.Columns
	}
	return DefaultTableColumns
}

// ReadRows returns every row that has at least one td cell.
func (e *TableExtractor) ReadRows(doc *goquery.Document) []TableRow {
	cols := e.columns()
	var rows []TableRow
	doc.Find(e.rowSelector()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		cell := func(i int) string {
			if i < 0 || i >= cells.Length() {
				return ""
			}
			return text(cells.Eq(i))
		}
		rows = append(rows, TableRow{
			CaseNumber: cell(cols.CaseNumber),
			Registered: cell(cols.Registered),
			Creditor:   cell(cols.Creditor),
			Balance:    cell(cols.Balance),
		})
	})
	return rows
}

// Extract maps each table row to a candidate. A no-debt message only
// counts when the table has no rows.
func (e *TableExtractor) Extract(_ context.Context, snap Snapshot) (*Result, error) {
	doc, err := parseHTML(snap.Content)
	if err != nil {
		return nil, err
	}
	page := doc.Text()
	if res := lockedOut(e.Detector, e.Collector, page); res != nil {
		return res, nil
	}

	rows := e.ReadRows(doc)
	if len(rows) == 0 {
		return emptyPage(e.Detector, e.Collector, page, "rows "+e.rowSelector()), nil
	}

	res := &Result{Site: e.Collector, Outcome: model.OutcomeDebtFound}
	for _, r := range rows {
		res.Candidates = append(res.Candidates, e.candidate(r))
	}
	return res, nil
}

func (e *TableExtractor) candidate(r TableRow) model.Candidate {
	c := model.Candidate{
		CaseID:               model.Ptr(r.CaseNumber),
		DebtCollectorName:    model.Ptr(e.Collector),
		OriginalCreditorName: model.Ptr(r.Creditor),
	}
	if r.Balance != "" {
		c.TotalAmount = model.Ptr(norm.Round2(norm.ParseAmount(r.Balance)))
	}
	if r.Registered != "" {
		c.Comment = "Registrert " + r.Registered
	}
	return c
}
