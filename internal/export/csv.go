// Package export writes an AggregatedPersonDebt as CSV or XLSX.
package export

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// ErrNoDebts is returned when there is nothing to export.
var ErrNoDebts = eris.New("export: no debts")

// value is one cell. A nil str and nil num is an empty cell.
type value struct {
	str *string
	num *float64
}

type field struct {
	key string
	val value
}

func str(s string) value { return value{str: &s} }

func num(f float64) value { return value{num: &f} }

func optNum(f *float64) value { return value{num: f} }

// flatten lists a debt's fields in a fixed order. Optional fields that are
// absent are left out, so the header depends on which records have them.
func flatten(d model.DetailedDebt) []field {
	fs := []field{
		{"creditor", str(d.Creditor)},
		{"caseID", str(d.CaseID)},
		{"totalAmount", num(d.TotalAmount)},
	}
	if d.OriginalAmount != nil {
		fs = append(fs, field{"originalAmount", optNum(d.OriginalAmount)})
	}
	if d.InterestAndFines != nil {
		fs = append(fs, field{"interestAndFines", optNum(d.InterestAndFines)})
	}
	if d.OriginalDueDate != nil && !d.OriginalDueDate.IsZero() {
		fs = append(fs, field{"originalDueDate", str(d.OriginalDueDate.String())})
	}
	fs = append(fs,
		field{"debtCollectorName", str(d.DebtCollectorName)},
		field{"originalCreditorName", str(d.OriginalCreditorName)},
	)
	if d.DebtType != "" {
		fs = append(fs, field{"debtType", str(d.DebtType)})
	}
	if d.Comment != "" {
		fs = append(fs, field{"comment", str(d.Comment)})
	}
	labels := make([]string, 0, len(d.Details))
	for l := range d.Details {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fs = append(fs, field{"details." + l, num(d.Details[l])})
	}
	return append(fs, field{"source", str(d.Source)})
}

// table is the union header plus one map per debt.
type table struct {
	header []string
	rows   []map[string]value
}

func buildTable(debts []model.DetailedDebt) table {
	var t table
	seen := map[string]bool{}
	for _, d := range debts {
		row := map[string]value{}
		for _, f := range flatten(d) {
			if !seen[f.key] {
				seen[f.key] = true
				t.header = append(t.header, f.key)
			}
			row[f.key] = f.val
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// WriteCSV writes the unpaid debts of agg. The header is the union of all
// record keys in first-seen order; strings are always quoted with inner
// quotes doubled, numbers are bare, and missing values are empty.
func WriteCSV(w io.Writer, agg *model.AggregatedPersonDebt) error {
	if len(agg.DetailedDebts) == 0 {
		return eris.Wrapf(ErrNoDebts, "Ingen gjeld funnet for %s", agg.PersonID)
	}
	t := buildTable(agg.DetailedDebts)

	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(t.header, ",")) //nolint:errcheck
	bw.WriteByte('\n')                          //nolint:errcheck
	for _, row := range t.rows {
		cells := make([]string, len(t.header))
		for i, k := range t.header {
			cells[i] = csvCell(row[k])
		}
		bw.WriteString(strings.Join(cells, ",")) //nolint:errcheck
		bw.WriteByte('\n')                       //nolint:errcheck
	}
	return eris.Wrap(bw.Flush(), "export: write csv")
}

func csvCell(v value) string {
	switch {
	case v.str != nil:
		return `"` + strings.ReplaceAll(*v.str, `"`, `""`) + `"`
	case v.num != nil:
		return strconv.FormatFloat(*v.num, 'f', -1, 64)
	default:
		return ""
	}
}
