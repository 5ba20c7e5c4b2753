package pdftext

import (
	"context"
	"os"

	"github.com/dslipak/pdf"
	"github.com/rotisserie/eris"
)

// Native reads page text in-process, without external tools.
type Native struct {
	open func(name string) (*os.File, error)
}

// NewNative creates a Native page source.
func NewNative() *Native {
	return &Native{open: os.Open}
}

// Pages returns one string per page. Pages without a content object yield
// an empty string so page numbers stay aligned.
func (n *Native) Pages(ctx context.Context, pdfPath string) ([]string, error) {
	open := n.open
	if open == nil {
		open = os.Open
	}
	f, err := open(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "pdftext: open %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	fi, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "pdftext: stat %s", pdfPath)
	}
	r, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return nil, eris.Wrapf(err, "pdftext: open %s", pdfPath)
	}

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pdftext: cancelled")
		}
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, eris.Wrapf(err, "pdftext: page %d of %s", i, pdfPath)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
