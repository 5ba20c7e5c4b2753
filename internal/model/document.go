package model

// DocumentTypeStatement is the document type recorded for collection statements.
const DocumentTypeStatement = "Debt Collection Statement"

// StructuredDocument is a parsed multi-case collection statement.
type StructuredDocument struct {
	DocumentMetadata DocumentMetadata `json:"documentMetadata"`
	TotalAmount      float64          `json:"totalAmount"`
	NumberOfCases    int              `json:"numberOfCases"`
	DebtCollector    string           `json:"debtCollector"`
	Cases            []DocumentCase   `json:"cases"`
}

type DocumentMetadata struct {
	Source         string `json:"source"`
	DocumentType   string `json:"documentType"`
	ExtractionDate string `json:"extractionDate"`
	PDFPath        string `json:"pdfPath,omitempty"`
	PDFLink        string `json:"pdfLink,omitempty"`
	DocumentDate   string `json:"documentDate,omitempty"`
}

type DocumentCase struct {
	Identifiers CaseIdentifiers `json:"identifiers"`
	Amounts     CaseAmounts     `json:"amounts"`
	Dates       CaseDates       `json:"dates"`
	Parties     CaseParties     `json:"parties"`
	Details     *CaseDetails    `json:"details,omitempty"`
}

type CaseIdentifiers struct {
	CaseNumber      string `json:"caseNumber"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	CustomerNumber  string `json:"customerNumber,omitempty"`
}

// CaseAmounts holds a case's figures. Nil means the field was not found.
type CaseAmounts struct {
	TotalAmount     *float64 `json:"totalAmount"`
	PrincipalAmount *float64 `json:"principalAmount"`
	Interest        *float64 `json:"interest,omitempty"`
	Fees            *float64 `json:"fees,omitempty"`
	CollectionFees  *float64 `json:"collectionFees,omitempty"`
	InterestOnCosts *float64 `json:"interestOnCosts,omitempty"`
}

type CaseDates struct {
	InvoiceDate     string `json:"invoiceDate,omitempty"`
	OriginalDueDate string `json:"originalDueDate,omitempty"`
	IssuedDate      string `json:"issuedDate,omitempty"`
	PaymentDeadline string `json:"paymentDeadline,omitempty"`
}

type CaseParties struct {
	DebtCollector    string `json:"debtCollector"`
	CurrentCreditor  string `json:"currentCreditor,omitempty"`
	OriginalCreditor string `json:"originalCreditor,omitempty"`
}

type CaseDetails struct {
	BasisForClaim string    `json:"basisForClaim,omitempty"`
	Invoices      []Invoice `json:"invoices,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

type Invoice struct {
	InvoiceNumber string   `json:"invoiceNumber,omitempty"`
	InvoiceDate   string   `json:"invoiceDate,omitempty"`
	DueDate       string   `json:"dueDate,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
}
