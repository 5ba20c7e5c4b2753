package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

func collectionCandidate(declared *float64, amounts ...float64) model.CollectionCandidate {
	debts := make([]model.Candidate, 0, len(amounts))
	for i, a := range amounts {
		c := validCandidate()
		c.CaseID = model.Ptr(string(rune('A' + i)))
		c.TotalAmount = model.Ptr(a)
		debts = append(debts, c)
	}
	return model.CollectionCandidate{
		CreditSite:  model.Ptr("Kredinor"),
		Debts:       debts,
		IsCurrent:   model.Ptr(true),
		TotalAmount: declared,
	}
}

func TestValidateCollection_RecomputesTotal(t *testing.T) {
	res := ValidateCollection(collectionCandidate(model.Ptr(300.0), 100, 200))
	require.True(t, res.OK)
	assert.Equal(t, 300.0, res.Value.TotalAmount)
	assert.Len(t, res.Records, 2)
}

func TestValidateCollection_MismatchIsIssueRecomputedWins(t *testing.T) {
	res := ValidateCollection(collectionCandidate(model.Ptr(999.0), 100, 200.5))
	assert.False(t, res.OK)
	assert.Equal(t, 300.5, res.Value.TotalAmount)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "totalAmount", res.Issues[0].Path)
	assert.Contains(t, res.Issues[0].Message, "declared 999.00")
}

func TestValidateCollection_TotalAlwaysSumOfDebts(t *testing.T) {
	for _, declared := range []*float64{nil, model.Ptr(0.0), model.Ptr(-5.0), model.Ptr(1e9)} {
		res := ValidateCollection(collectionCandidate(declared, 0.1, 0.2, 41.7))
		assert.Equal(t, 42.0, res.Value.TotalAmount)
	}
}

func TestValidateCollection_MissingFlags(t *testing.T) {
	res := ValidateCollection(model.CollectionCandidate{})
	assert.False(t, res.OK)
	assert.Len(t, res.Issues, 2)
	assert.NotNil(t, res.Value.Debts)
}

func TestValidateCollection_NestedIssuePaths(t *testing.T) {
	c := collectionCandidate(nil, 10, 20)
	c.Debts[1].CaseID = nil
	res := ValidateCollection(c)
	require.False(t, res.OK)
	assert.Equal(t, "debts.1.caseID", res.Issues[0].Path)
	assert.Len(t, res.Value.Debts, 2)
}
