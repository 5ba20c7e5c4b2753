package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Write writes agg in the given format.
func Write(w io.Writer, format string, agg *model.AggregatedPersonDebt) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, agg)
	case FormatXLSX:
		return WriteXLSX(w, agg)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// FileName is the default export file name for agg.
func FileName(agg *model.AggregatedPersonDebt, format string) string {
	name := agg.PersonID + "_gjeld"
	if agg.SnapshotDate != "" {
		name += "_" + agg.SnapshotDate
	}
	return name + "." + strings.ToLower(format)
}

// WriteFile writes agg to path, creating parent directories. A failed
// write leaves no partial file behind.
func WriteFile(path, format string, agg *model.AggregatedPersonDebt) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, format, agg); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
