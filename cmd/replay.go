package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gjeldshjelp/debt-cli/internal/extract"
	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/pdfparse"
	"github.com/gjeldshjelp/debt-cli/internal/pdftext"
	"github.com/gjeldshjelp/debt-cli/internal/session"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

var (
	replayPerson     string
	replayNationalID string
	replayDate       string
)

var replayCmd = &cobra.Command{
	Use:   "replay <dir>",
	Short: "Run saved site captures through the sequential site runner",
	Long:  "Each file in dir is one site visit: <site>.html and <site>.json go through the site's extractor, <site>.pdf through the statement parser. Sites are visited one at a time with the configured pacing, stall timeouts and retries.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sess, err := session.New(replayPerson, replayNationalID)
		if err != nil {
			return err
		}
		base, err := snapshotKey(replayPerson, replayDate, "")
		if err != nil {
			return err
		}

		st, err := initStore(ctx, "replay")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sites, err := replaySites(args[0], st, base)
		if err != nil {
			return err
		}

		pool := session.NewBrowserPool(func(context.Context) (session.Browser, error) {
			return offlineBrowser{}, nil
		})
		runner := session.NewRunner(cfg.Session, pool)
		results, err := runner.Run(ctx, sess, sites)
		formatResults(cmd.OutOrStdout(), results)
		return err
	},
}

// offlineBrowser stands in for a browser when pages are already captured.
type offlineBrowser struct{}

func (offlineBrowser) Close() error { return nil }

// replaySites builds one visit per capture file in dir, in name order.
func replaySites(dir string, st store.Store, base store.Key) ([]session.Site, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "read captures %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	det, err := loadDetector()
	if err != nil {
		return nil, err
	}
	var proc *pdfparse.Processor

	var sites []session.Site
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ext := filepath.Ext(e.Name())
		key := base
		key.Site = strings.TrimSuffix(e.Name(), ext)

		switch ext {
		case ".html", ".json":
			sites = append(sites, session.Site{Name: key.Site, Visit: func(ctx context.Context, _ session.Session, _ session.Browser) (model.Outcome, error) {
				saved, err := extractPage(ctx, st, extract.Options{Detector: det}, key, "", path, "", nil)
				if err != nil {
					return model.OutcomeUnexpectedState, err
				}
				return saved.Outcome, nil
			}})
		case ".pdf":
			if proc == nil {
				if proc, err = newProcessor(st); err != nil {
					return nil, err
				}
			}
			p := proc
			sites = append(sites, session.Site{Name: key.Site, Visit: func(ctx context.Context, _ session.Session, _ session.Browser) (model.Outcome, error) {
				res, err := p.Process(ctx, key, path, pdfparse.Meta{DebtCollector: key.Site})
				if err != nil {
					return model.OutcomeUnexpectedState, err
				}
				if len(res.Records) == 0 {
					return model.OutcomeNoDebtFound, nil
				}
				return model.OutcomeDebtFound, nil
			}})
		}
	}
	if len(sites) == 0 {
		return nil, eris.Errorf("no .html, .json or .pdf captures in %s", dir)
	}
	return sites, nil
}

func newProcessor(st store.Store) (*pdfparse.Processor, error) {
	src, err := pdftext.NewPageSource(cfg.PDF)
	if err != nil {
		return nil, err
	}
	tmpl, err := pdfparse.LoadTemplates(cfg.PDF.TemplatesPath)
	if err != nil {
		return nil, err
	}
	parser, err := pdfparse.New(tmpl)
	if err != nil {
		return nil, err
	}
	return &pdfparse.Processor{Source: src, Parser: parser, Store: st}, nil
}

// formatResults prints one row per site. Failures show the Norwegian
// category message; the raw error is only logged.
func formatResults(w io.Writer, results []session.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tSTATUS\tOUTCOME\tATTEMPTS\tMESSAGE")
	for _, r := range results {
		_, msg := r.Outcome.UserMessage(r.Site)
		if r.Err != nil {
			msg = model.CategoryOf(r.Err).Message()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Site, r.Outcome.Semantic(), r.Outcome, r.Attempts, msg)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	replayCmd.Flags().StringVar(&replayPerson, "person", "", "person id (required)")
	replayCmd.Flags().StringVar(&replayNationalID, "national-id", "", "the person's fødselsnummer (required)")
	replayCmd.Flags().StringVar(&replayDate, "date", "", "snapshot date YYYY_MM_DD (default: today)")
	_ = replayCmd.MarkFlagRequired("person")
	_ = replayCmd.MarkFlagRequired("national-id")
	rootCmd.AddCommand(replayCmd)
}
