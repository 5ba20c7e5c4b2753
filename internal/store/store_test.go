package store

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

func TestKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr string
	}{
		{"valid", Key{PersonID: "p1", Date: "2024_05_01", Site: "Intrum"}, ""},
		{"site with space", Key{PersonID: "p1", Date: "2024_05_01", Site: "PRA Group"}, ""},
		{"missing person", Key{Date: "2024_05_01", Site: "SI"}, "person id is required"},
		{"bad date", Key{PersonID: "p1", Date: "2024-05-01", Site: "SI"}, "invalid snapshot date"},
		{"traversal", Key{PersonID: "../etc", Date: "2024_05_01", Site: "SI"}, "path separator"},
		{"missing site", Key{PersonID: "p1", Date: "2024_05_01"}, "site is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDateKey(t *testing.T) {
	assert.Equal(t, "2024_03_07", DateKey(time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)))
	assert.True(t, IsDateKey("2024_03_07"))
	assert.False(t, IsDateKey("latest"))
}

func TestSortDatesDesc(t *testing.T) {
	got := sortDatesDesc([]string{"2024_01_02", "junk", "2024_03_01", "2024_01_02", "2023_12_31"})
	assert.Equal(t, []string{"2024_03_01", "2024_01_02", "2023_12_31"}, got)
}

func sampleSnapshot() model.RawSnapshot {
	c := model.NewDebtCollection("Kredinor", true, []model.DebtRecord{
		{CaseID: "K-1", TotalAmount: 1200.5, DebtCollectorName: "Kredinor", OriginalCreditorName: "Telenor"},
		{CaseID: "K-2", TotalAmount: 300, DebtCollectorName: "Kredinor", OriginalCreditorName: "Kredinor"},
	})
	return model.NewSnapshot("Kredinor", &c)
}

// exerciseStore runs the shared Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	k1 := Key{PersonID: "p1", Date: "2024_05_01", Site: "Kredinor"}
	k2 := Key{PersonID: "p1", Date: "2024_06_01", Site: "Intrum"}
	k3 := Key{PersonID: "p1", Date: "2024_06_01", Site: "SI"}

	require.NoError(t, s.Put(ctx, k1, sampleSnapshot()))
	require.NoError(t, s.Put(ctx, k2, sampleSnapshot()))
	require.NoError(t, s.Put(ctx, k3, sampleSnapshot()))
	require.NoError(t, s.PutUnvalidated(ctx, Key{PersonID: "p1", Date: "2024_06_01", Site: "Zolva"}, map[string]any{"broken": true}))

	data, err := s.Get(ctx, k1)
	require.NoError(t, err)
	var snap model.RawSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, model.KindTabular, snap.Kind)
	coll, ok := snap.Payload.(*model.DebtCollection)
	require.True(t, ok)
	assert.Len(t, coll.Debts, 2)
	assert.InDelta(t, 1500.5, coll.TotalAmount, 0.001)

	dates, err := s.ListDates(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024_06_01", "2024_05_01"}, dates)

	sites, err := s.ListSites(ctx, "p1", "2024_06_01")
	require.NoError(t, err)
	assert.Equal(t, []string{"Intrum", "SI"}, sites)

	_, err = s.Get(ctx, Key{PersonID: "p1", Date: "2024_06_01", Site: "Zolva"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	dates, err = s.ListDates(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, dates)

	// Overwrite keeps a single entry.
	require.NoError(t, s.Put(ctx, k1, sampleSnapshot()))
	sites, err = s.ListSites(ctx, "p1", "2024_05_01")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kredinor"}, sites)
}
