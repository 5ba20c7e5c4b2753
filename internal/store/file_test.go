package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	exerciseStore(t, NewFile(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(dir)
	ctx := context.Background()
	key := Key{PersonID: "p1", Date: "2024_05_01", Site: "Kredinor"}

	require.NoError(t, s.Put(ctx, key, sampleSnapshot()))
	require.NoError(t, s.PutUnvalidated(ctx, key, map[string]string{"caseID": ""}))

	assert.FileExists(t, filepath.Join(dir, "p1", "2024_05_01", "Kredinor_extracted_data.json"))
	assert.FileExists(t, filepath.Join(dir, "p1", "2024_05_01", "Kredinor_extracted_data_unvalidated.json"))

	entries, err := os.ReadDir(filepath.Join(dir, "p1", "2024_05_01"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")
}

func TestFileStore_ReadsLegacyFiles(t *testing.T) {
	dir := t.TempDir()
	day := filepath.Join(dir, "p1", "2023_11_30")
	require.NoError(t, os.MkdirAll(day, 0o755))
	legacy := `{"krav":[{"identifikator":"1","belop":100}]}`
	require.NoError(t, os.WriteFile(filepath.Join(day, "SI_extracted_data.json"), []byte(legacy), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(day, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "p1", "not-a-date"), 0o755))

	s := NewFile(dir)
	ctx := context.Background()

	dates, err := s.ListDates(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023_11_30"}, dates)

	sites, err := s.ListSites(ctx, "p1", "2023_11_30")
	require.NoError(t, err)
	assert.Equal(t, []string{"SI"}, sites)

	data, err := s.Get(ctx, Key{PersonID: "p1", Date: "2023_11_30", Site: "SI"})
	require.NoError(t, err)
	assert.JSONEq(t, legacy, string(data))
}

func TestFileStore_RejectsUnsafeKey(t *testing.T) {
	s := NewFile(t.TempDir())
	err := s.Put(context.Background(), Key{PersonID: "p1", Date: "2024_05_01", Site: "../x"}, sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path separator")
}
