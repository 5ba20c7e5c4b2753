package pdfparse

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/pdftext"
	"github.com/gjeldshjelp/debt-cli/internal/schema"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

// Result is the outcome of processing one statement.
type Result struct {
	Document *model.StructuredDocument `json:"document"`
	Records  []model.DebtRecord        `json:"records"`
	Issues   []schema.Issue            `json:"issues,omitempty"`
	Key      store.Key                 `json:"key"`
}

// Valid reports whether the document and all its records passed validation.
func (r *Result) Valid() bool {
	return len(r.Issues) == 0
}

// unvalidated is the side document written when validation fails.
type unvalidated struct {
	Document   *model.StructuredDocument `json:"document"`
	Candidates []model.Candidate         `json:"candidates"`
	Issues     []schema.Issue            `json:"issues"`
}

// Processor reads a PDF, parses it, and persists the result.
type Processor struct {
	Source pdftext.PageSource
	Parser *Parser
	Store  store.Store
}

// Process parses the PDF at pdfPath and writes a pdfDerived snapshot under
// key. Records are persisted whether or not they validate; on any issue
// the document and candidates are also written as an unvalidated side
// entry. When key.Site is empty the detected collector is used.
func (p *Processor) Process(ctx context.Context, key store.Key, pdfPath string, meta Meta) (*Result, error) {
	pages, err := p.Source.Pages(ctx, pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfparse: read pages of %s", pdfPath)
	}

	if meta.PDFPath == "" {
		if abs, err := filepath.Abs(pdfPath); err == nil {
			meta.PDFPath = abs
		} else {
			meta.PDFPath = pdfPath
		}
	}

	doc, err := p.Parser.Parse(pages, meta)
	if err != nil {
		zap.L().Error("pdfparse: statement rejected",
			zap.String("pdf", pdfPath),
			zap.String("kind", string(model.KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}
	if key.Site == "" {
		key.Site = doc.DebtCollector
	}

	res := &Result{Document: doc, Key: key, Records: []model.DebtRecord{}}
	res.Issues = append(res.Issues, schema.ValidateDocument(doc)...)

	candidates := ToCandidates(doc)
	for i, c := range candidates {
		v := schema.ValidateAt(fmt.Sprintf("records.%d.", i), c)
		res.Records = append(res.Records, v.Value)
		res.Issues = append(res.Issues, v.Issues...)
	}

	snap := model.NewSnapshot(key.Site, &model.PDFDerived{
		Collector: doc.DebtCollector,
		Records:   res.Records,
	})
	if err := p.Store.Put(ctx, key, snap); err != nil {
		return nil, err
	}

	if !res.Valid() {
		zap.L().Warn("pdfparse: statement failed validation, saved unvalidated copy",
			zap.String("pdf", pdfPath),
			zap.String("key", key.String()),
			zap.String("issues", schema.IssuesString(res.Issues)),
		)
		side := unvalidated{Document: doc, Candidates: candidates, Issues: res.Issues}
		if err := p.Store.PutUnvalidated(ctx, key, side); err != nil {
			return nil, err
		}
	}

	zap.L().Info("pdfparse: statement processed",
		zap.String("pdf", pdfPath),
		zap.String("collector", doc.DebtCollector),
		zap.Int("cases", doc.NumberOfCases),
		zap.Float64("total", doc.TotalAmount),
		zap.Bool("valid", res.Valid()),
	)
	return res, nil
}
