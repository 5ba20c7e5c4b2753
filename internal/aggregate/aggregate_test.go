package aggregate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

func writeRaw(t *testing.T, st *store.FileStore, key store.Key, body string) {
	t.Helper()
	path := st.Path(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func putSnap(t *testing.T, st store.Store, key store.Key, p model.Payload) {
	t.Helper()
	require.NoError(t, st.Put(context.Background(), key, model.NewSnapshot(key.Site, p)))
}

func key(date, site string) store.Key {
	return store.Key{PersonID: "p1", Date: date, Site: site}
}

func seedMixed(t *testing.T) *store.FileStore {
	t.Helper()
	st := store.NewFile(t.TempDir())
	d := "2024_06_01"

	writeRaw(t, st, key(d, "SI"), `{"krav":[
		{"identifikator":"K1","belop":1500.5,"forfall":[{"gjenstaaendeBeloep":0},{"gjenstaaendeBeloep":150}]},
		{"identifikator":"K2","belop":800,"forfall":[{"gjenstaaendeBeloep":0},{"gjenstaaendeBeloep":0}]}
	]}`)
	writeRaw(t, st, key(d, "Intrum"), `{"debtCases":[
		{"caseNumber":"123","totalAmount":"4481.63","creditorName":"Telia"},
		{"caseNumber":"123","totalAmount":"4481.63","creditorName":"Telia"},
		{"caseNumber":"124","totalAmount":"","creditorName":"X"}
	]}`)
	writeRaw(t, st, key(d, "Kredinor"), `[
		{"type":"grandTotal","saksnummer":"sum","totalbeløp":9999},
		{"saksnummer":"K-9","totalbeløp":"2500.00","oppdragsgiver":"Telenor"},
		{"caseID":"K-10","totalAmount":0}
	]`)
	writeRaw(t, st, key(d, "PRA Group"), `{"accountReference":"PRA-1","amountNumber":"950.5","accountDetails":{"Tidligere eier":"Santander"}}`)
	writeRaw(t, st, key(d, "Broken"), `{"hello":"world"}`)
	putSnap(t, st, key(d, "Zolva AS"), &model.DebtCollection{
		CreditSite: "Zolva AS",
		IsCurrent:  true,
		Debts:      []model.DebtRecord{{CaseID: "Z-1", TotalAmount: 300, DebtCollectorName: "Zolva AS", OriginalCreditorName: "Elkjøp"}},
	})
	return st
}

func TestAggregate_NoSnapshots(t *testing.T) {
	e := New(store.NewFile(t.TempDir()))
	out, err := e.Aggregate(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.TotalDebt)
	assert.Empty(t, out.DetailedDebts)
	assert.NotNil(t, out.DebtsByCreditor)
}

func TestAggregate_MixedShapes(t *testing.T) {
	e := New(seedMixed(t))

	out, err := e.Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "2024_06_01", out.SnapshotDate)
	assert.Equal(t, 9732.63, out.TotalDebt)
	assert.Equal(t, map[string]float64{
		"Intrum":    4481.63,
		"Kredinor":  2500,
		"PRA Group": 950.5,
		"SI":        1500.5,
		"Zolva AS":  300,
	}, out.DebtsByCreditor)

	var ids []string
	for _, d := range out.DetailedDebts {
		ids = append(ids, d.CaseID)
	}
	assert.Equal(t, []string{"123", "K-9", "PRA-1", "K1", "Z-1"}, ids)
	assert.Equal(t, "Telenor", out.DetailedDebts[1].OriginalCreditorName)
	assert.Equal(t, "Santander", out.DetailedDebts[2].OriginalCreditorName)
	assert.Equal(t, "p1/2024_06_01/SI", out.DetailedDebts[3].Source)

	assert.Equal(t, 800.0, out.PaidTotal)
	assert.Equal(t, map[string]float64{"SI": 800}, out.PaidByCreditor)
	require.Len(t, out.PaidDebts, 1)
	assert.Equal(t, "K2", out.PaidDebts[0].CaseID)

	assert.Equal(t, []string{"p1/2024_06_01/Broken"}, out.Skipped)
}

func TestAggregate_Idempotent(t *testing.T) {
	e := New(seedMixed(t))

	first, err := e.Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	second, err := e.Aggregate(context.Background(), "p1")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("aggregation not idempotent (-first +second):\n%s", diff)
	}
}

func TestAggregate_LatestDateOnly(t *testing.T) {
	st := store.NewFile(t.TempDir())
	rec := func(id string, amount float64) model.DebtRecord {
		return model.DebtRecord{CaseID: id, TotalAmount: amount, DebtCollectorName: "Kredinor", OriginalCreditorName: "Telenor"}
	}
	putSnap(t, st, key("2024_01_15", "Kredinor"), &model.PDFDerived{Records: []model.DebtRecord{rec("old", 100)}})
	putSnap(t, st, key("2024_02_01", "Kredinor"), &model.PDFDerived{Records: []model.DebtRecord{rec("new", 250)}})

	out, err := New(st).Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "2024_02_01", out.SnapshotDate)
	assert.Equal(t, 250.0, out.TotalDebt)
	require.Len(t, out.DetailedDebts, 1)
	assert.Equal(t, "new", out.DetailedDebts[0].CaseID)
}

func TestAggregate_DedupAcrossSnapshots(t *testing.T) {
	st := store.NewFile(t.TempDir())
	d := "2024_06_01"
	r := model.DebtRecord{CaseID: "20001/23", TotalAmount: 10500, DebtCollectorName: "Kredinor", OriginalCreditorName: "Telenor ASA"}

	putSnap(t, st, key(d, "Kredinor"), &model.DebtCollection{CreditSite: "Kredinor", IsCurrent: true, Debts: []model.DebtRecord{r}})
	putSnap(t, st, key(d, "Kredinor_pdf"), &model.PDFDerived{Collector: "Kredinor", Records: []model.DebtRecord{r}})

	out, err := New(st).Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 10500.0, out.TotalDebt)
	assert.Equal(t, 10500.0, out.DebtsByCreditor["Kredinor"])
	assert.Len(t, out.DetailedDebts, 1)
}

func TestAggregate_PaidAndUnpaidKeptApart(t *testing.T) {
	st := store.NewFile(t.TempDir())
	d := "2024_06_01"
	r := model.DebtRecord{CaseID: "A", TotalAmount: 100, DebtCollectorName: "Intrum", OriginalCreditorName: "X"}

	putSnap(t, st, key(d, "Intrum"), &model.DebtCollection{CreditSite: "Intrum", IsCurrent: true, Debts: []model.DebtRecord{r}})
	putSnap(t, st, key(d, "Intrum_history"), &model.DebtCollection{CreditSite: "Intrum", IsCurrent: false, Debts: []model.DebtRecord{r}})

	out, err := New(st).Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.TotalDebt)
	assert.Equal(t, 100.0, out.PaidTotal)
	assert.Equal(t, 100.0, out.PaidByCreditor["Intrum"])
}

func TestAggregate_DecimalSums(t *testing.T) {
	st := store.NewFile(t.TempDir())
	var debts []model.DebtRecord
	for _, id := range []string{"a", "b", "c"} {
		debts = append(debts, model.DebtRecord{CaseID: id, TotalAmount: 0.1, DebtCollectorName: "SI", OriginalCreditorName: "SI"})
	}
	putSnap(t, st, key("2024_06_01", "SI"), &model.DebtCollection{CreditSite: "SI", IsCurrent: true, Debts: debts})

	out, err := New(st).Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0.3, out.TotalDebt)
}

func TestRecords_Claims(t *testing.T) {
	snap := model.NewSnapshot("SI", &model.Claims{Krav: []model.Krav{
		{Identifikator: "1", Belop: 50, Forfall: []model.Forfall{{GjenstaaendeBeloep: 0}, {GjenstaaendeBeloep: 150}}},
		{Identifikator: "2", Belop: 70, Forfall: []model.Forfall{{GjenstaaendeBeloep: 0}, {GjenstaaendeBeloep: 0}}},
	}})
	unpaid, paid := Records(snap)
	require.Len(t, unpaid, 1)
	require.Len(t, paid, 1)
	assert.Equal(t, "1", unpaid[0].CaseID)
	assert.Equal(t, "2", paid[0].CaseID)
}

func TestRecords_OverviewDetailPrefersDetail(t *testing.T) {
	snap := model.NewSnapshot("Intrum", &model.OverviewDetail{
		Collector: "Intrum",
		DebtCases: []model.OverviewCase{{CaseNumber: "9", TotalAmount: "100.00", CreditorName: "Y"}},
		Details:   map[string]map[string]float64{"9": {"Totalt": 120, "Forsinkelsesrenter*": 20}},
	})
	unpaid, paid := Records(snap)
	assert.Empty(t, paid)
	require.Len(t, unpaid, 1)
	assert.Equal(t, 120.0, unpaid[0].TotalAmount)
	assert.Equal(t, 20.0, *unpaid[0].InterestAndFines)
	assert.Equal(t, 20.0, unpaid[0].Details["Forsinkelsesrenter*"])
}

func TestAggregate_IdempotentWithCompetingDetailTotals(t *testing.T) {
	st := store.NewFile(t.TempDir())
	putSnap(t, st, key("2024_06_01", "Intrum"), &model.OverviewDetail{
		Collector: "Intrum",
		DebtCases: []model.OverviewCase{{CaseNumber: "9", TotalAmount: "100.00", CreditorName: "Y"}},
		Details:   map[string]map[string]float64{"9": {"Totalt": 120, "Å betale": 130, "Saldo": 140}},
	})
	e := New(st)

	first, err := e.Aggregate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 130.0, first.TotalDebt)

	for range 50 {
		again, err := e.Aggregate(context.Background(), "p1")
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("aggregation changed between runs (-first +again):\n%s", diff)
		}
	}
}
