package model

// DetailedDebt is a record plus where it came from.
type DetailedDebt struct {
	DebtRecord
	Creditor string `json:"creditor"`
	Source   string `json:"source"`
}

// AggregatedPersonDebt is the per-person projection rebuilt on every
// aggregation. Unpaid debts feed TotalDebt; paid debts are tracked apart.
type AggregatedPersonDebt struct {
	PersonID        string             `json:"personId"`
	SnapshotDate    string             `json:"snapshotDate,omitempty"`
	TotalDebt       float64            `json:"totalDebt"`
	DebtsByCreditor map[string]float64 `json:"debtsByCreditor"`
	DetailedDebts   []DetailedDebt     `json:"detailedDebts"`
	PaidTotal       float64            `json:"paidTotal"`
	PaidByCreditor  map[string]float64 `json:"paidByCreditor"`
	PaidDebts       []DetailedDebt     `json:"paidDebts"`
	Skipped         []string           `json:"skipped,omitempty"`
}

// NewAggregatedPersonDebt returns an empty result with non-nil collections.
func NewAggregatedPersonDebt(personID string) *AggregatedPersonDebt {
	return &AggregatedPersonDebt{
		PersonID:        personID,
		DebtsByCreditor: map[string]float64{},
		DetailedDebts:   []DetailedDebt{},
		PaidByCreditor:  map[string]float64{},
		PaidDebts:       []DetailedDebt{},
	}
}
