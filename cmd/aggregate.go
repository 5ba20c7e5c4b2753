package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gjeldshjelp/debt-cli/internal/aggregate"
	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

var (
	aggregateDate string
	aggregateJSON bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <person-id>",
	Short: "Aggregate a person's stored snapshots into one debt overview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "aggregate")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		agg, err := runAggregate(ctx, st, args[0], aggregateDate)
		if err != nil {
			return err
		}
		if aggregateJSON {
			return writeJSON(cmd.OutOrStdout(), agg)
		}
		formatAggregate(cmd.OutOrStdout(), agg)
		return nil
	},
}

func runAggregate(ctx context.Context, st store.Store, personID, date string) (*model.AggregatedPersonDebt, error) {
	engine := aggregate.New(st)
	if date == "" {
		agg, err := engine.Aggregate(ctx, personID)
		return agg, eris.Wrap(err, "aggregate")
	}
	if !store.IsDateKey(date) {
		return nil, eris.Errorf("date %q must be YYYY_MM_DD", date)
	}
	agg, err := engine.AggregateAt(ctx, personID, date)
	return agg, eris.Wrap(err, "aggregate")
}

// formatAggregate prints per-creditor totals followed by the debts.
func formatAggregate(w io.Writer, agg *model.AggregatedPersonDebt) {
	fmt.Fprintf(w, "Person:   %s\n", agg.PersonID)
	if agg.SnapshotDate != "" {
		fmt.Fprintf(w, "Snapshot: %s\n", agg.SnapshotDate)
	}
	fmt.Fprintf(w, "Total:    %s\n", norm.FormatCurrency(agg.TotalDebt))
	if agg.PaidTotal > 0 {
		fmt.Fprintf(w, "Paid:     %s\n", norm.FormatCurrency(agg.PaidTotal))
	}
	if len(agg.DetailedDebts) == 0 {
		fmt.Fprintln(w, "Ingen gjeld funnet.")
	}

	creditors := make([]string, 0, len(agg.DebtsByCreditor))
	for c := range agg.DebtsByCreditor {
		creditors = append(creditors, c)
	}
	sort.Strings(creditors)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(creditors) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CREDITOR\tAMOUNT")
		for _, c := range creditors {
			fmt.Fprintf(tw, "%s\t%s\n", c, norm.FormatCurrency(agg.DebtsByCreditor[c]))
		}
	}
	if len(agg.DetailedDebts) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CREDITOR\tCASE\tAMOUNT\tDUE\tORIGINAL CREDITOR")
		for _, d := range agg.DetailedDebts {
			due := ""
			if d.OriginalDueDate != nil && !d.OriginalDueDate.IsZero() {
				due = norm.FormatNorwegianDate(d.OriginalDueDate.Time)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Creditor, d.CaseID, norm.FormatCurrency(d.TotalAmount), due, d.OriginalCreditorName)
		}
	}
	tw.Flush() //nolint:errcheck

	for _, s := range agg.Skipped {
		fmt.Fprintf(w, "skipped: %s\n", s)
	}
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateDate, "date", "", "snapshot date YYYY_MM_DD (default: newest)")
	aggregateCmd.Flags().BoolVar(&aggregateJSON, "json", false, "print the aggregate as JSON")
	rootCmd.AddCommand(aggregateCmd)
}
