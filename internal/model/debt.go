package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// Date is a calendar date serialized as YYYY-MM-DD. It decodes either ISO
// dates or Norwegian DD.MM.YYYY; anything else decodes to the zero Date.
type Date struct {
	time.Time
}

// NewDate truncates t to a calendar date.
func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate returns nil when raw is not a recognizable date.
func ParseDate(raw string) *Date {
	t, ok := norm.ParseDate(raw)
	if !ok {
		return nil
	}
	d := NewDate(t)
	return &d
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	if t, ok := norm.ParseDate(s); ok {
		d.Time = t
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DebtRecord is one validated case or claim.
type DebtRecord struct {
	CaseID               string             `json:"caseID"`
	TotalAmount          float64            `json:"totalAmount"`
	OriginalAmount       *float64           `json:"originalAmount,omitempty"`
	InterestAndFines     *float64           `json:"interestAndFines,omitempty"`
	OriginalDueDate      *Date              `json:"originalDueDate,omitempty"`
	DebtCollectorName    string             `json:"debtCollectorName"`
	OriginalCreditorName string             `json:"originalCreditorName"`
	DebtType             string             `json:"debtType,omitempty"`
	Comment              string             `json:"comment,omitempty"`
	Details              map[string]float64 `json:"details,omitempty"`
}

// Candidate is the pre-validation shape extractors produce. Required
// fields are pointers so absence can be told apart from an empty value.
type Candidate struct {
	CaseID               *string            `json:"caseID,omitempty"`
	TotalAmount          *float64           `json:"totalAmount,omitempty"`
	OriginalAmount       *float64           `json:"originalAmount,omitempty"`
	InterestAndFines     *float64           `json:"interestAndFines,omitempty"`
	OriginalDueDate      *Date              `json:"originalDueDate,omitempty"`
	DebtCollectorName    *string            `json:"debtCollectorName,omitempty"`
	OriginalCreditorName *string            `json:"originalCreditorName,omitempty"`
	DebtType             string             `json:"debtType,omitempty"`
	Comment              string             `json:"comment,omitempty"`
	Details              map[string]float64 `json:"details,omitempty"`
}

// DebtCollection is one collector's submission for one person at one point in time.
type DebtCollection struct {
	CreditSite  string       `json:"creditSite"`
	Debts       []DebtRecord `json:"debts"`
	IsCurrent   bool         `json:"isCurrent"`
	TotalAmount float64      `json:"totalAmount"`
}

// NewDebtCollection builds a collection whose total is the sum of its debts.
func NewDebtCollection(site string, isCurrent bool, debts []DebtRecord) DebtCollection {
	if debts == nil {
		debts = []DebtRecord{}
	}
	return DebtCollection{
		CreditSite:  site,
		Debts:       debts,
		IsCurrent:   isCurrent,
		TotalAmount: SumDebts(debts),
	}
}

// SumDebts adds the records' totals exactly and rounds to øre.
func SumDebts(debts []DebtRecord) float64 {
	sum := decimal.Zero
	for _, d := range debts {
		sum = sum.Add(decimal.NewFromFloat(d.TotalAmount))
	}
	return sum.Round(2).InexactFloat64()
}

// CollectionCandidate is the pre-validation shape of a DebtCollection.
type CollectionCandidate struct {
	CreditSite  *string     `json:"creditSite,omitempty"`
	Debts       []Candidate `json:"debts"`
	IsCurrent   *bool       `json:"isCurrent,omitempty"`
	TotalAmount *float64    `json:"totalAmount,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
