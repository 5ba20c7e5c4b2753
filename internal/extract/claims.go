package extract

import (
	"context"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

// kravTypes describes the claim type codes the API may send without text.
var kravTypes = map[string]string{
	"110": "Bot - forenklet forelegg",
	"111": "Bot - forenklet forelegg ATK",
	"113": "Bot - Vanlig forelegg",
	"129": "Erstatning - Dom",
	"627": "Studielån - oppsagt studielån",
}

// KravTypeDescription prefers the API's own text, then the known code
// description, then the code itself.
func KravTypeDescription(code, text string) string {
	if text != "" {
		return text
	}
	if d, ok := kravTypes[code]; ok {
		return d
	}
	return code
}

// ClaimsExtractor reads the government creditor's krav JSON.
type ClaimsExtractor struct {
	Collector string
}

func (e *ClaimsExtractor) collector() string {
	if e.Collector != "" {
		return e.Collector
	}
	return "SI"
}

// Extract decodes the krav list. Candidates cover the unpaid claims only;
// the payload keeps every claim so paid ones reach aggregation.
func (e *ClaimsExtractor) Extract(_ context.Context, snap Snapshot) (*Result, error) {
	var claims model.Claims
	if err := json.Unmarshal(snap.Content, &claims); err != nil {
		return nil, model.NewKindError(model.KindUnrecognizedShape, snap.URL, eris.Wrap(err, "extract: decode krav"))
	}
	claims.Collector = e.collector()
	if claims.Krav == nil {
		claims.Krav = []model.Krav{}
	}

	unpaid, _ := SplitClaims(&claims)
	res := &Result{Site: claims.Collector, Payload: &claims, Candidates: unpaid}
	res.Outcome = model.OutcomeNoDebtFound
	for _, c := range unpaid {
		if c.TotalAmount != nil && *c.TotalAmount > 0 {
			res.Outcome = model.OutcomeDebtFound
			break
		}
	}
	return res, nil
}

// SplitClaims maps each krav to a candidate and splits them by paid status.
func SplitClaims(claims *model.Claims) (unpaid, paid []model.Candidate) {
	collector := claims.Collector
	if collector == "" {
		collector = "SI"
	}
	unpaid, paid = []model.Candidate{}, []model.Candidate{}
	for _, k := range claims.Krav {
		c := KravCandidate(collector, k)
		if k.Paid() {
			paid = append(paid, c)
		} else {
			unpaid = append(unpaid, c)
		}
	}
	return unpaid, paid
}

// KravCandidate maps one krav. The first installment's due date is the
// original due date; the original creditor defaults to the collector.
func KravCandidate(collector string, k model.Krav) model.Candidate {
	creditor := k.OpprinneligKreditor
	if creditor == "" {
		creditor = collector
	}
	c := model.Candidate{
		CaseID:               model.Ptr(string(k.Identifikator)),
		TotalAmount:          model.Ptr(norm.Round2(k.Belop)),
		DebtCollectorName:    model.Ptr(collector),
		OriginalCreditorName: model.Ptr(creditor),
		DebtType:             KravTypeDescription(string(k.Kravtype), k.Kravtypetekst),
	}
	if len(k.Forfall) > 0 {
		c.OriginalDueDate = model.ParseDate(k.Forfall[0].Forfallsdato)
	}
	return c
}
