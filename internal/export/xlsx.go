package export

import (
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// Sheet names in the workbook.
const (
	SheetDebts   = "Gjeld"
	SheetSummary = "Oppsummering"
)

// WriteXLSX writes a workbook with the unpaid debts (same columns as the
// CSV) and a per-creditor summary including paid totals.
func WriteXLSX(w io.Writer, agg *model.AggregatedPersonDebt) error {
	if len(agg.DetailedDebts) == 0 {
		return eris.Wrapf(ErrNoDebts, "Ingen gjeld funnet for %s", agg.PersonID)
	}

	f := xlsx.NewFile()
	debts, err := f.AddSheet(SheetDebts)
	if err != nil {
		return eris.Wrap(err, "export: add debts sheet")
	}
	t := buildTable(agg.DetailedDebts)
	addStrings(debts.AddRow(), t.header...)
	for _, row := range t.rows {
		r := debts.AddRow()
		for _, k := range t.header {
			c := r.AddCell()
			v := row[k]
			switch {
			case v.str != nil:
				c.SetString(*v.str)
			case v.num != nil:
				c.SetFloat(*v.num)
			}
		}
	}

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addStrings(summary.AddRow(), "Kreditor", "Utestående", "Betalt")
	for _, name := range creditors(agg) {
		r := summary.AddRow()
		r.AddCell().SetString(name)
		r.AddCell().SetFloat(agg.DebtsByCreditor[name])
		r.AddCell().SetFloat(agg.PaidByCreditor[name])
	}
	total := summary.AddRow()
	total.AddCell().SetString("Totalt")
	total.AddCell().SetFloat(agg.TotalDebt)
	total.AddCell().SetFloat(agg.PaidTotal)

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func addStrings(r *xlsx.Row, values ...string) {
	for _, v := range values {
		r.AddCell().SetString(v)
	}
}

// creditors lists every creditor in either bucket, sorted.
func creditors(agg *model.AggregatedPersonDebt) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range []map[string]float64{agg.DebtsByCreditor, agg.PaidByCreditor} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
