package pdfparse

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

type fakePages struct {
	pages []string
	err   error
}

func (f fakePages) Pages(context.Context, string) ([]string, error) {
	return f.pages, f.err
}

func newTestProcessor(t *testing.T, pages []string) (*Processor, *store.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	st := store.NewFile(dir)
	return &Processor{Source: fakePages{pages: pages}, Parser: newTestParser(t), Store: st}, st, dir
}

func TestProcess_ValidStatement(t *testing.T) {
	proc, st, dir := newTestProcessor(t, []string{
		"Kredinor AS Totalbeløp: 15 000,00",
		"20001/23 Oppdragsgiver: Telenor ASA Kundenummer: 555 Rest hovedstol: 10 000,00 Renter: 500,00 Totalbeløp: 10 500,00",
	})
	key := store.Key{PersonID: "p1", Date: "2024_06_01"}

	res, err := proc.Process(context.Background(), key, "statement.pdf", Meta{})
	require.NoError(t, err)
	assert.True(t, res.Valid(), "issues: %v", res.Issues)
	assert.Equal(t, "Kredinor", res.Key.Site)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 10500.0, res.Records[0].TotalAmount)
	assert.True(t, filepath.IsAbs(res.Document.DocumentMetadata.PDFPath))

	data, err := st.Get(context.Background(), res.Key)
	require.NoError(t, err)
	var snap model.RawSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, model.KindPDFDerived, snap.Kind)
	payload := snap.Payload.(*model.PDFDerived)
	assert.Equal(t, "Kredinor", payload.Collector)
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "20001/23", payload.Records[0].CaseID)

	assert.NoFileExists(t, filepath.Join(dir, "p1", "2024_06_01", "Kredinor_extracted_data_unvalidated.json"))
}

func TestProcess_InvalidStatementStillPersisted(t *testing.T) {
	proc, st, dir := newTestProcessor(t, []string{
		"Zolva AS Totalbeløp: 800,00",
		"60001/23 Renter: 50,00",
	})
	key := store.Key{PersonID: "p1", Date: "2024_06_01", Site: "Zolva"}

	res, err := proc.Process(context.Background(), key, "zolva.pdf", Meta{})
	require.NoError(t, err)
	assert.False(t, res.Valid())

	var paths []string
	for _, is := range res.Issues {
		paths = append(paths, is.Path)
	}
	assert.Contains(t, paths, "cases.0.amounts.totalAmount")
	assert.Contains(t, paths, "records.0.totalAmount")

	_, err = st.Get(context.Background(), key)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "p1", "2024_06_01", "Zolva_extracted_data_unvalidated.json"))
}

func TestProcess_MissingAnchorWritesNothing(t *testing.T) {
	proc, st, _ := newTestProcessor(t, []string{"no totals anywhere"})
	key := store.Key{PersonID: "p1", Date: "2024_06_01", Site: "Intrum"}

	_, err := proc.Process(context.Background(), key, "broken.pdf", Meta{})
	require.Error(t, err)
	assert.Equal(t, model.KindAnchorMissing, model.KindOf(err))

	sites, err := st.ListSites(context.Background(), "p1", "2024_06_01")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestProcess_SourceError(t *testing.T) {
	proc := &Processor{
		Source: fakePages{err: errors.New("pdftotext missing")},
		Parser: newTestParser(t),
		Store:  store.NewFile(t.TempDir()),
	}
	_, err := proc.Process(context.Background(), store.Key{PersonID: "p1", Date: "2024_06_01"}, "x.pdf", Meta{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read pages")
}
