// Package schema validates extraction candidates against the canonical
// debt record shape. Validation never panics and never discards input:
// a failed result still carries the candidate it was given.
package schema

import (
	"fmt"
	"math"
	"strings"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// Issue is one reason a candidate failed validation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Path + ": " + i.Message
}

// Result is the outcome of validating one candidate. When OK is false,
// Candidate holds the input unchanged and Value is the best-effort record.
type Result struct {
	OK        bool             `json:"ok"`
	Value     model.DebtRecord `json:"value"`
	Issues    []Issue          `json:"issues,omitempty"`
	Candidate model.Candidate  `json:"candidate"`
}

// Validate checks the required fields (caseID, totalAmount,
// debtCollectorName, originalCreditorName) and promotes the candidate.
func Validate(c model.Candidate) Result {
	return validateAt("", c)
}

// ValidateAt is Validate with every issue path prefixed, for candidates
// nested inside a larger document.
func ValidateAt(prefix string, c model.Candidate) Result {
	return validateAt(prefix, c)
}

func validateAt(prefix string, c model.Candidate) Result {
	res := Result{Candidate: c}
	var issues []Issue
	add := func(field, msg string) {
		issues = append(issues, Issue{Path: prefix + field, Message: msg})
	}

	if c.CaseID == nil {
		add("caseID", "required")
	}
	switch {
	case c.TotalAmount == nil:
		add("totalAmount", "required")
	case !isFinite(*c.TotalAmount):
		add("totalAmount", "must be a finite number")
	case *c.TotalAmount < 0:
		add("totalAmount", fmt.Sprintf("must be non-negative, got %v", *c.TotalAmount))
	}
	if c.DebtCollectorName == nil {
		add("debtCollectorName", "required")
	}
	if c.OriginalCreditorName == nil {
		add("originalCreditorName", "required")
	}
	if c.OriginalAmount != nil && !isFinite(*c.OriginalAmount) {
		add("originalAmount", "must be a finite number")
	}
	if c.InterestAndFines != nil && !isFinite(*c.InterestAndFines) {
		add("interestAndFines", "must be a finite number")
	}

	res.Value = promote(c)
	res.Issues = issues
	res.OK = len(issues) == 0
	return res
}

// promote copies whatever the candidate has into a record.
func promote(c model.Candidate) model.DebtRecord {
	r := model.DebtRecord{
		OriginalAmount:   c.OriginalAmount,
		InterestAndFines: c.InterestAndFines,
		OriginalDueDate:  c.OriginalDueDate,
		DebtType:         c.DebtType,
		Comment:          c.Comment,
		Details:          c.Details,
	}
	if c.CaseID != nil {
		r.CaseID = *c.CaseID
	}
	if c.TotalAmount != nil && isFinite(*c.TotalAmount) {
		r.TotalAmount = *c.TotalAmount
	}
	if c.DebtCollectorName != nil {
		r.DebtCollectorName = *c.DebtCollectorName
	}
	if c.OriginalCreditorName != nil {
		r.OriginalCreditorName = *c.OriginalCreditorName
	}
	return r
}

// IssuesString joins issues the way they are logged.
func IssuesString(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, ", ")
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
