package model

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// SnapshotKind tags the raw shape a collector persisted.
type SnapshotKind string

const (
	KindTabular         SnapshotKind = "tabular"
	KindOverviewDetail  SnapshotKind = "overviewDetail"
	KindSingleAggregate SnapshotKind = "singleAggregate"
	KindPDFDerived      SnapshotKind = "pdfDerived"
	KindClaims          SnapshotKind = "claims"
)

// Payload is implemented by every snapshot payload type.
type Payload interface {
	SnapshotKind() SnapshotKind
}

// RawSnapshot is the persisted envelope: a kind tag plus its payload.
type RawSnapshot struct {
	Kind    SnapshotKind `json:"kind"`
	Site    string       `json:"site,omitempty"`
	Payload Payload      `json:"payload"`
}

// NewSnapshot wraps p in an envelope tagged with its kind.
func NewSnapshot(site string, p Payload) RawSnapshot {
	return RawSnapshot{Kind: p.SnapshotKind(), Site: site, Payload: p}
}

type rawEnvelope struct {
	Kind    SnapshotKind    `json:"kind"`
	Site    string          `json:"site,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func (s *RawSnapshot) UnmarshalJSON(b []byte) error {
	var env rawEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return eris.Wrap(err, "model: decode snapshot envelope")
	}

	var p Payload
	switch env.Kind {
	case KindTabular:
		p = &DebtCollection{}
	case KindOverviewDetail:
		p = &OverviewDetail{}
	case KindSingleAggregate:
		p = &SingleAggregate{}
	case KindPDFDerived:
		p = &PDFDerived{}
	case KindClaims:
		p = &Claims{}
	default:
		return NewKindError(KindUnrecognizedShape, "", eris.Errorf("model: unknown snapshot kind %q", env.Kind))
	}
	if len(env.Payload) == 0 {
		return NewKindError(KindUnrecognizedShape, "", eris.New("model: snapshot has no payload"))
	}
	if err := json.Unmarshal(env.Payload, p); err != nil {
		return eris.Wrapf(err, "model: decode %s payload", env.Kind)
	}

	s.Kind = env.Kind
	s.Site = env.Site
	s.Payload = p
	return nil
}

func (*DebtCollection) SnapshotKind() SnapshotKind { return KindTabular }

// OverviewCase is one row of an overview list page. TotalAmount keeps the
// site's text (decimal point already normalized).
type OverviewCase struct {
	CaseNumber       string   `json:"caseNumber"`
	TotalAmount      string   `json:"totalAmount"`
	CreditorName     string   `json:"creditorName"`
	OriginalAmount   *float64 `json:"originalAmount,omitempty"`
	InterestAndFines *float64 `json:"interestAndFines,omitempty"`
	OriginalDueDate  *Date    `json:"originalDueDate,omitempty"`
}

// OverviewDetail is an overview list merged with per-case detail tables
// (label to amount) keyed by case number.
type OverviewDetail struct {
	Collector string                        `json:"collector,omitempty"`
	DebtCases []OverviewCase                `json:"debtCases"`
	Details   map[string]map[string]float64 `json:"details,omitempty"`
	Timestamp string                        `json:"timestamp,omitempty"`
}

func (*OverviewDetail) SnapshotKind() SnapshotKind { return KindOverviewDetail }

// SingleAggregate is a site that exposes one total and a case count.
type SingleAggregate struct {
	Collector     string  `json:"collector"`
	Reference     string  `json:"reference,omitempty"`
	Amount        float64 `json:"amount"`
	ActiveCases   int     `json:"activeCases"`
	PreviousOwner string  `json:"previousOwner,omitempty"`
	Note          string  `json:"note,omitempty"`
	Timestamp     string  `json:"timestamp,omitempty"`
}

func (*SingleAggregate) SnapshotKind() SnapshotKind { return KindSingleAggregate }

// PDFDerived holds the canonical records mapped from a parsed statement.
type PDFDerived struct {
	Collector string       `json:"collector,omitempty"`
	Records   []DebtRecord `json:"records"`
}

func (*PDFDerived) SnapshotKind() SnapshotKind { return KindPDFDerived }

// Claims is a government creditor's krav list with installments.
type Claims struct {
	Collector string `json:"collector,omitempty"`
	Krav      []Krav `json:"krav"`
}

func (*Claims) SnapshotKind() SnapshotKind { return KindClaims }

// Krav is one claim from the SI API.
type Krav struct {
	Identifikator       FlexString `json:"identifikator"`
	Belop               float64    `json:"belop"`
	Kravtype            FlexString `json:"kravtype,omitempty"`
	Kravtypetekst       string     `json:"kravtypetekst,omitempty"`
	OpprinneligKreditor string     `json:"opprinneligKreditor,omitempty"`
	Forfall             []Forfall  `json:"forfall,omitempty"`
}

// Forfall is one installment of a krav.
type Forfall struct {
	GjenstaaendeBeloep float64 `json:"gjenstaaendeBeloep"`
	Forfallsdato       string  `json:"forfallsdato,omitempty"`
}

// Paid reports whether every installment has zero remaining. A krav with
// no installments counts as paid.
func (k Krav) Paid() bool {
	for _, f := range k.Forfall {
		if f.GjenstaaendeBeloep != 0 {
			return false
		}
	}
	return true
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return eris.Wrap(err, "model: decode string")
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}
