// Package aggregate folds a person's stored collector snapshots into one
// AggregatedPersonDebt. It only reads snapshots and holds no state between
// calls, so aggregating an unchanged store twice gives identical results.
package aggregate

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gjeldshjelp/debt-cli/internal/extract"
	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/schema"
	"github.com/gjeldshjelp/debt-cli/internal/store"
)

// Engine aggregates snapshots read from a store.
type Engine struct {
	Store store.Store
}

// New returns an engine over st.
func New(st store.Store) *Engine {
	return &Engine{Store: st}
}

// Aggregate folds every snapshot on the person's most recent date. A
// person with no snapshots gets an empty result, not an error.
func (e *Engine) Aggregate(ctx context.Context, personID string) (*model.AggregatedPersonDebt, error) {
	dates, err := e.Store.ListDates(ctx, personID)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		zap.L().Info("aggregate: no snapshots", zap.String("person_id", personID))
		return model.NewAggregatedPersonDebt(personID), nil
	}
	return e.AggregateAt(ctx, personID, dates[0])
}

// AggregateAt folds every snapshot stored for the person on date.
// Snapshots that cannot be read or classified are skipped and listed in
// the result's Skipped field.
func (e *Engine) AggregateAt(ctx context.Context, personID, date string) (*model.AggregatedPersonDebt, error) {
	sites, err := e.Store.ListSites(ctx, personID, date)
	if err != nil {
		return nil, err
	}
	sort.Strings(sites)

	acc := newAccumulator()
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := store.Key{PersonID: personID, Date: date, Site: site}
		raw, err := e.Store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			acc.skip(key, err)
			continue
		}
		snap, err := Classify(raw)
		if err != nil {
			acc.skip(key, err)
			continue
		}
		unpaid, paid := Records(snap)
		for _, r := range unpaid {
			acc.unpaid.add(r, key.String())
		}
		for _, r := range paid {
			acc.paid.add(r, key.String())
		}
	}

	out := acc.result(personID)
	out.SnapshotDate = date
	zap.L().Info("aggregate: done",
		zap.String("person_id", personID),
		zap.String("date", date),
		zap.Int("snapshots", len(sites)),
		zap.Int("debts", len(out.DetailedDebts)),
		zap.Float64("total", out.TotalDebt),
		zap.Float64("paid_total", out.PaidTotal),
		zap.Int("skipped", len(out.Skipped)),
	)
	return out, nil
}

// Records maps a snapshot to its unpaid and paid records, one mapper per
// kind.
func Records(snap model.RawSnapshot) (unpaid, paid []model.DebtRecord) {
	switch p := snap.Payload.(type) {
	case *model.DebtCollection:
		recs := withCollector(p.Debts, p.CreditSite)
		if p.IsCurrent {
			return recs, nil
		}
		return nil, recs
	case *model.OverviewDetail:
		return promote(extract.MergeOverview(snap.Site, p)), nil
	case *model.SingleAggregate:
		if p.Amount <= 0 {
			return nil, nil
		}
		return promote([]model.Candidate{extract.AggregateCandidate(p)}), nil
	case *model.PDFDerived:
		return withCollector(p.Records, p.Collector), nil
	case *model.Claims:
		u, pd := extract.SplitClaims(p)
		return promote(u), promote(pd)
	default:
		return nil, nil
	}
}

func promote(cands []model.Candidate) []model.DebtRecord {
	out := make([]model.DebtRecord, 0, len(cands))
	for _, c := range cands {
		if c.TotalAmount == nil {
			continue
		}
		out = append(out, schema.Validate(c).Value)
	}
	return out
}

// withCollector fills a missing collector name from the snapshot.
func withCollector(recs []model.DebtRecord, collector string) []model.DebtRecord {
	out := make([]model.DebtRecord, 0, len(recs))
	for _, r := range recs {
		if r.DebtCollectorName == "" {
			r.DebtCollectorName = collector
		}
		out = append(out, r)
	}
	return out
}

// bucket is one running total with its own de-duplication set.
type bucket struct {
	total      decimal.Decimal
	byCreditor map[string]decimal.Decimal
	seen       map[string]bool
	debts      []model.DetailedDebt
}

func newBucket() *bucket {
	return &bucket{byCreditor: map[string]decimal.Decimal{}, seen: map[string]bool{}}
}

// add counts r once per (collector, case, amount). Records without a
// positive amount are not counted.
func (b *bucket) add(r model.DebtRecord, source string) bool {
	if r.TotalAmount <= 0 {
		return false
	}
	amount := decimal.NewFromFloat(r.TotalAmount).Round(2)
	collector := r.DebtCollectorName
	key := collector + "\x00" + r.CaseID + "\x00" + amount.StringFixed(2)
	if b.seen[key] {
		return false
	}
	b.seen[key] = true

	b.total = b.total.Add(amount)
	b.byCreditor[collector] = b.byCreditor[collector].Add(amount)
	b.debts = append(b.debts, model.DetailedDebt{DebtRecord: r, Creditor: collector, Source: source})
	return true
}

type accumulator struct {
	unpaid  *bucket
	paid    *bucket
	skipped []string
}

func newAccumulator() *accumulator {
	return &accumulator{unpaid: newBucket(), paid: newBucket()}
}

func (a *accumulator) skip(key store.Key, err error) {
	zap.L().Warn("aggregate: snapshot skipped",
		zap.String("person_id", key.PersonID),
		zap.String("site", key.Site),
		zap.String("path", key.String()),
		zap.String("kind", string(model.KindOf(err))),
		zap.Error(err),
	)
	a.skipped = append(a.skipped, key.String())
}

func (a *accumulator) result(personID string) *model.AggregatedPersonDebt {
	out := model.NewAggregatedPersonDebt(personID)
	out.TotalDebt = round(a.unpaid.total)
	for k, v := range a.unpaid.byCreditor {
		out.DebtsByCreditor[k] = round(v)
	}
	out.DetailedDebts = append(out.DetailedDebts, a.unpaid.debts...)

	out.PaidTotal = round(a.paid.total)
	for k, v := range a.paid.byCreditor {
		out.PaidByCreditor[k] = round(v)
	}
	out.PaidDebts = append(out.PaidDebts, a.paid.debts...)
	out.Skipped = a.skipped
	return out
}

func round(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
