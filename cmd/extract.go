package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gjeldshjelp/debt-cli/internal/extract"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

var (
	extractPerson    string
	extractSite      string
	extractKind      string
	extractDate      string
	extractURL       string
	extractDetails   string
	extractDetailURL string
)

var extractCmd = &cobra.Command{
	Use:   "extract <page>",
	Short: "Extract debts from a saved collector page and store them",
	Long:  "Runs the table, overview, single-value or claims extractor over a saved page (HTML, or JSON for claims) and stores the validated snapshot. Lockout and unexpected pages store nothing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		key, err := snapshotKey(extractPerson, extractDate, extractSite)
		if err != nil {
			return err
		}
		det, err := loadDetector()
		if err != nil {
			return err
		}
		details, err := readDetails(extractDetails)
		if err != nil {
			return err
		}

		st, err := initStore(ctx, "extract")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var fetcher extract.DetailFetcher
		if extractDetailURL != "" {
			if fetcher, err = extract.NewHTTPDetailFetcher(extract.HTTPDetailOptions{URLTemplate: extractDetailURL}); err != nil {
				return err
			}
		}

		saved, err := extractPage(ctx, st, extract.Options{Detector: det, Fetcher: fetcher}, key, extractKind, args[0], extractURL, details)
		if err != nil {
			return eris.Wrap(err, "extract")
		}
		return writeJSON(cmd.OutOrStdout(), saved)
	},
}

func loadDetector() (*extract.Detector, error) {
	p, err := extract.LoadPatterns(cfg.Extract.PatternsPath)
	if err != nil {
		return nil, err
	}
	return extract.NewDetector(p), nil
}

// extractPage runs the extractor for key.Site over the page at path and
// saves the result. An empty kind is resolved from the site name.
func extractPage(ctx context.Context, st store.Store, opts extract.Options, key store.Key, kind, path, url string, details map[string]string) (*extract.Saved, error) {
	if kind == "" {
		kind = extract.KindForSite(key.Site)
	}
	if kind == "" {
		return nil, eris.Errorf("no extractor known for site %q, pass --kind", key.Site)
	}
	ex, err := extract.New(kind, key.Site, opts)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	res, err := ex.Extract(ctx, extract.Snapshot{
		Site:    key.Site,
		URL:     url,
		Content: content,
		Details: details,
	})
	if err != nil {
		return nil, err
	}
	return extract.Save(ctx, st, key, res)
}

// readDetails loads saved detail pages named <case number>.html from dir.
func readDetails(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read details dir %s", dir)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "read detail %s", e.Name())
		}
		out[strings.TrimSuffix(e.Name(), ".html")] = string(data)
	}
	return out, nil
}

func init() {
	extractCmd.Flags().StringVar(&extractPerson, "person", "", "person id (required)")
	extractCmd.Flags().StringVar(&extractSite, "site", "", "collector site name (required)")
	extractCmd.Flags().StringVar(&extractKind, "kind", "", "extractor: table, overview, single or claims (default: by site)")
	extractCmd.Flags().StringVar(&extractDate, "date", "", "snapshot date YYYY_MM_DD (default: today)")
	extractCmd.Flags().StringVar(&extractURL, "url", "", "page URL, for logs")
	extractCmd.Flags().StringVar(&extractDetails, "details", "", "directory of saved detail pages named <case number>.html")
	extractCmd.Flags().StringVar(&extractDetailURL, "detail-url", "", "fetch missing detail pages from this URL, with {case} for the case number")
	_ = extractCmd.MarkFlagRequired("person")
	_ = extractCmd.MarkFlagRequired("site")
	rootCmd.AddCommand(extractCmd)
}
