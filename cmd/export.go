package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/export"
)

var (
	exportFormat string
	exportOut    string
	exportDate   string
)

var exportCmd = &cobra.Command{
	Use:   "export <person-id>",
	Short: "Export a person's aggregated debts as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportFormat != export.FormatCSV && exportFormat != export.FormatXLSX {
			return eris.Errorf("format must be %s or %s", export.FormatCSV, export.FormatXLSX)
		}

		st, err := initStore(ctx, "export")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		agg, err := runAggregate(ctx, st, args[0], exportDate)
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = filepath.Join(cfg.Export.Dir, export.FileName(agg, exportFormat))
		}
		if err := export.WriteFile(path, exportFormat, agg); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("person_id", agg.PersonID),
			zap.String("path", path),
			zap.Int("debts", len(agg.DetailedDebts)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: <export.dir>/<person>_gjeld_<date>.<format>)")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "snapshot date YYYY_MM_DD (default: newest)")
	rootCmd.AddCommand(exportCmd)
}
