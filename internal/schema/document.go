package schema

import (
	"fmt"
	"time"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// ValidateDocument checks a parsed statement: metadata, and for every case
// a case number, a total, and a principal amount.
func ValidateDocument(doc *model.StructuredDocument) []Issue {
	if doc == nil {
		return []Issue{{Path: "", Message: "document is nil"}}
	}
	var issues []Issue
	meta := doc.DocumentMetadata
	if meta.Source == "" {
		issues = append(issues, Issue{Path: "documentMetadata.source", Message: "required"})
	}
	if meta.DocumentType == "" {
		issues = append(issues, Issue{Path: "documentMetadata.documentType", Message: "required"})
	}
	if _, err := time.Parse(time.RFC3339, meta.ExtractionDate); err != nil {
		issues = append(issues, Issue{Path: "documentMetadata.extractionDate", Message: "invalid ISO 8601 datetime string"})
	}
	if doc.NumberOfCases != len(doc.Cases) {
		issues = append(issues, Issue{
			Path:    "numberOfCases",
			Message: fmt.Sprintf("declared %d, document has %d cases", doc.NumberOfCases, len(doc.Cases)),
		})
	}
	for i, c := range doc.Cases {
		p := fmt.Sprintf("cases.%d.", i)
		if c.Identifiers.CaseNumber == "" {
			issues = append(issues, Issue{Path: p + "identifiers.caseNumber", Message: "required"})
		}
		if c.Amounts.TotalAmount == nil {
			issues = append(issues, Issue{Path: p + "amounts.totalAmount", Message: "required"})
		}
		if c.Amounts.PrincipalAmount == nil {
			issues = append(issues, Issue{Path: p + "amounts.principalAmount", Message: "required"})
		}
		if c.Parties.DebtCollector == "" {
			issues = append(issues, Issue{Path: p + "parties.debtCollector", Message: "required"})
		}
	}
	return issues
}
