package aggregate

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
	"github.com/gjeldshjelp/debt-cli/internal/pdfparse"
	"github.com/gjeldshjelp/debt-cli/internal/schema"
)

// probe holds just enough of a stored document to tell its shape.
type probe struct {
	Kind             *string         `json:"kind"`
	Payload          json.RawMessage `json:"payload"`
	Krav             json.RawMessage `json:"krav"`
	DebtCases        json.RawMessage `json:"debtCases"`
	Value            json.RawMessage `json:"value"`
	AccountReference json.RawMessage `json:"accountReference"`
	AmountNumber     json.RawMessage `json:"amountNumber"`
	CreditSite       json.RawMessage `json:"creditSite"`
	Debts            json.RawMessage `json:"debts"`
	DocumentMetadata json.RawMessage `json:"documentMetadata"`
	Cases            json.RawMessage `json:"cases"`
}

// Classify decodes a stored document into a tagged snapshot. Enveloped
// documents decode directly; older unenveloped shapes are recognized by
// their fields. Anything else is an UNRECOGNIZED_SHAPE error.
func Classify(raw []byte) (model.RawSnapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return model.RawSnapshot{}, unrecognized("empty document")
	}
	if trimmed[0] == '[' {
		return legacyKredinor(trimmed)
	}

	var p probe
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return model.RawSnapshot{}, model.NewKindError(model.KindUnrecognizedShape, "", eris.Wrap(err, "aggregate: decode document"))
	}

	switch {
	case p.Kind != nil && len(p.Payload) > 0:
		var snap model.RawSnapshot
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			if model.KindOf(err) != "" {
				return model.RawSnapshot{}, err
			}
			return model.RawSnapshot{}, decodeErr("envelope", err)
		}
		return snap, nil
	case isArray(p.Krav):
		var c model.Claims
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return model.RawSnapshot{}, decodeErr("krav", err)
		}
		c.Collector = "SI"
		return model.NewSnapshot("SI", &c), nil
	case isArray(p.DebtCases):
		return legacyIntrum(p.DebtCases)
	case isArray(p.Value):
		return legacyKredinor(p.Value)
	case len(p.AccountReference) > 0 && len(p.AmountNumber) > 0:
		return legacyPRA(trimmed)
	case len(p.CreditSite) > 0 && isArray(p.Debts):
		var c model.DebtCollection
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return model.RawSnapshot{}, decodeErr("collection", err)
		}
		c.TotalAmount = model.SumDebts(c.Debts)
		return model.NewSnapshot(c.CreditSite, &c), nil
	case len(p.DocumentMetadata) > 0 && isArray(p.Cases):
		return legacyDocument(trimmed)
	default:
		return model.RawSnapshot{}, unrecognized("no known fields")
	}
}

type intrumCase struct {
	CaseNumber       model.FlexString `json:"caseNumber"`
	TotalAmount      model.FlexString `json:"totalAmount"`
	CreditorName     string           `json:"creditorName"`
	OriginalAmount   *float64         `json:"originalAmount"`
	InterestAndFines *float64         `json:"interestAndFines"`
	OriginalDueDate  *model.Date      `json:"originalDueDate"`
}

// legacyIntrum keeps cases that have a number, an amount, and a creditor.
func legacyIntrum(data json.RawMessage) (model.RawSnapshot, error) {
	var in []intrumCase
	if err := json.Unmarshal(data, &in); err != nil {
		return model.RawSnapshot{}, decodeErr("debtCases", err)
	}
	od := &model.OverviewDetail{Collector: "Intrum", DebtCases: []model.OverviewCase{}}
	for _, c := range in {
		if c.CaseNumber == "" || c.TotalAmount == "" || c.CreditorName == "" {
			continue
		}
		if _, ok := norm.ParseDecimal(string(c.TotalAmount)); !ok {
			continue
		}
		od.DebtCases = append(od.DebtCases, model.OverviewCase{
			CaseNumber:       string(c.CaseNumber),
			TotalAmount:      string(c.TotalAmount),
			CreditorName:     c.CreditorName,
			OriginalAmount:   c.OriginalAmount,
			InterestAndFines: c.InterestAndFines,
			OriginalDueDate:  c.OriginalDueDate,
		})
	}
	return model.NewSnapshot("Intrum", od), nil
}

type kredinorItem struct {
	CaseID               model.FlexString `json:"caseID"`
	TotalAmount          any              `json:"totalAmount"`
	OriginalAmount       *float64         `json:"originalAmount"`
	InterestAndFines     *float64         `json:"interestAndFines"`
	OriginalDueDate      *model.Date      `json:"originalDueDate"`
	DebtCollectorName    string           `json:"debtCollectorName"`
	OriginalCreditorName string           `json:"originalCreditorName"`

	Type                     string           `json:"type"`
	Saksnummer               model.FlexString `json:"saksnummer"`
	Totalbelop               any              `json:"totalbeløp"`
	Oppdragsgiver            string           `json:"oppdragsgiver"`
	OpprinneligOppdragsgiver string           `json:"opprinneligOppdragsgiver"`
}

// legacyKredinor reads the bare-array statement shape. Items in the record
// shape are kept as they are; items in the older statement shape skip the
// grand-total row. Only positive amounts count.
func legacyKredinor(data []byte) (model.RawSnapshot, error) {
	var in []kredinorItem
	if err := json.Unmarshal(data, &in); err != nil {
		return model.RawSnapshot{}, decodeErr("kredinor", err)
	}
	out := &model.PDFDerived{Collector: "Kredinor", Records: []model.DebtRecord{}}
	for _, it := range in {
		switch {
		case it.CaseID != "" && it.TotalAmount != nil:
			amount := norm.ParseAmount(it.TotalAmount)
			if amount <= 0 {
				continue
			}
			collector := it.DebtCollectorName
			if collector == "" {
				collector = "Kredinor"
			}
			creditor := it.OriginalCreditorName
			if creditor == "" {
				creditor = collector
			}
			out.Records = append(out.Records, model.DebtRecord{
				CaseID:               string(it.CaseID),
				TotalAmount:          norm.Round2(amount),
				OriginalAmount:       it.OriginalAmount,
				InterestAndFines:     it.InterestAndFines,
				OriginalDueDate:      it.OriginalDueDate,
				DebtCollectorName:    collector,
				OriginalCreditorName: creditor,
			})
		case it.Type != "grandTotal" && it.Saksnummer != "" && it.Totalbelop != nil:
			amount := norm.ParseAmount(it.Totalbelop)
			if amount <= 0 {
				continue
			}
			creditor := it.OpprinneligOppdragsgiver
			if creditor == "" {
				creditor = it.Oppdragsgiver
			}
			if creditor == "" {
				creditor = "Kredinor"
			}
			out.Records = append(out.Records, model.DebtRecord{
				CaseID:               string(it.Saksnummer),
				TotalAmount:          norm.Round2(amount),
				DebtCollectorName:    "Kredinor",
				OriginalCreditorName: creditor,
				DebtType:             it.Oppdragsgiver,
			})
		}
	}
	return model.NewSnapshot("Kredinor", out), nil
}

type praAccount struct {
	AccountReference model.FlexString  `json:"accountReference"`
	AmountNumber     any               `json:"amountNumber"`
	AccountDetails   map[string]string `json:"accountDetails"`
}

// legacyPRA reads the PRA Group account summary.
func legacyPRA(data []byte) (model.RawSnapshot, error) {
	var in praAccount
	if err := json.Unmarshal(data, &in); err != nil {
		return model.RawSnapshot{}, decodeErr("account", err)
	}
	return model.NewSnapshot("PRA Group", &model.SingleAggregate{
		Collector:     "PRA Group",
		Reference:     string(in.AccountReference),
		Amount:        norm.Round2(norm.ParseAmount(in.AmountNumber)),
		PreviousOwner: in.AccountDetails["Tidligere eier"],
	}), nil
}

// legacyDocument maps a bare structured statement to its records.
func legacyDocument(data []byte) (model.RawSnapshot, error) {
	var doc model.StructuredDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.RawSnapshot{}, decodeErr("document", err)
	}
	out := &model.PDFDerived{Collector: doc.DebtCollector, Records: []model.DebtRecord{}}
	for _, c := range pdfparse.ToCandidates(&doc) {
		out.Records = append(out.Records, schema.Validate(c).Value)
	}
	return model.NewSnapshot(doc.DebtCollector, out), nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func unrecognized(msg string) error {
	return model.NewKindError(model.KindUnrecognizedShape, "", eris.New("aggregate: "+msg))
}

func decodeErr(shape string, err error) error {
	return model.NewKindError(model.KindUnrecognizedShape, "", eris.Wrapf(err, "aggregate: decode %s", shape))
}
