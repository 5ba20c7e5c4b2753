package schema

import (
	"fmt"
	"math"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// CollectionResult is the outcome of validating a collection. Value always
// carries the recomputed total, whatever total the input declared.
type CollectionResult struct {
	OK        bool                      `json:"ok"`
	Value     model.DebtCollection      `json:"value"`
	Issues    []Issue                   `json:"issues,omitempty"`
	Records   []Result                  `json:"records"`
	Candidate model.CollectionCandidate `json:"candidate"`
}

// ValidateCollection validates every debt, requires creditSite and
// isCurrent, and recomputes totalAmount as the sum of the debts. A declared
// total that disagrees with the sum is reported as an issue.
func ValidateCollection(c model.CollectionCandidate) CollectionResult {
	res := CollectionResult{Candidate: c}
	var issues []Issue

	site := ""
	if c.CreditSite == nil {
		issues = append(issues, Issue{Path: "creditSite", Message: "required"})
	} else {
		site = *c.CreditSite
	}
	isCurrent := false
	if c.IsCurrent == nil {
		issues = append(issues, Issue{Path: "isCurrent", Message: "required"})
	} else {
		isCurrent = *c.IsCurrent
	}

	debts := make([]model.DebtRecord, 0, len(c.Debts))
	res.Records = make([]Result, 0, len(c.Debts))
	for i, d := range c.Debts {
		r := validateAt(fmt.Sprintf("debts.%d.", i), d)
		res.Records = append(res.Records, r)
		issues = append(issues, r.Issues...)
		debts = append(debts, r.Value)
	}

	res.Value = model.NewDebtCollection(site, isCurrent, debts)

	if c.TotalAmount != nil && math.Abs(*c.TotalAmount-res.Value.TotalAmount) > 0.005 {
		issues = append(issues, Issue{
			Path:    "totalAmount",
			Message: fmt.Sprintf("declared %.2f, sum of debts is %.2f", *c.TotalAmount, res.Value.TotalAmount),
		})
	}

	res.Issues = issues
	res.OK = len(issues) == 0
	return res
}
