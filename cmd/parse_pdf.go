package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gjeldshjelp/debt-cli/internal/pdfparse"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

var (
	parsePDFPerson string
	parsePDFSite   string
	parsePDFDate   string
	parsePDFLink   string
)

var parsePDFCmd = &cobra.Command{
	Use:   "parse-pdf <pdf>",
	Short: "Parse a collector statement PDF and store its records",
	Long:  "Extracts page text, parses cases into a structured document, validates the records, and stores them as a pdfDerived snapshot. Invalid records are kept in an unvalidated side entry.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, "parse-pdf")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		proc, err := newProcessor(st)
		if err != nil {
			return err
		}
		key, err := snapshotKey(parsePDFPerson, parsePDFDate, parsePDFSite)
		if err != nil {
			return err
		}

		res, err := proc.Process(ctx, key, args[0], pdfparse.Meta{
			PDFLink:       parsePDFLink,
			DebtCollector: parsePDFSite,
		})
		if err != nil {
			return eris.Wrap(err, "parse-pdf")
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

// snapshotKey builds a key for today unless date is given. site may be
// empty when the caller detects it later.
func snapshotKey(person, date, site string) (store.Key, error) {
	if date == "" {
		date = store.DateKey(time.Now())
	}
	if !store.IsDateKey(date) {
		return store.Key{}, eris.Errorf("date %q must be YYYY_MM_DD", date)
	}
	return store.Key{PersonID: person, Date: date, Site: site}, nil
}

func init() {
	parsePDFCmd.Flags().StringVar(&parsePDFPerson, "person", "", "person id (required)")
	parsePDFCmd.Flags().StringVar(&parsePDFSite, "site", "", "collector name (default: detected from the statement)")
	parsePDFCmd.Flags().StringVar(&parsePDFDate, "date", "", "snapshot date YYYY_MM_DD (default: today)")
	parsePDFCmd.Flags().StringVar(&parsePDFLink, "link", "", "link to the original statement")
	_ = parsePDFCmd.MarkFlagRequired("person")
	rootCmd.AddCommand(parsePDFCmd)
}
