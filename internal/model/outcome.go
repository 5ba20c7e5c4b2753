package model

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// Outcome is the terminal result of one site visit. These are the only
// values orchestration may branch on.
type Outcome int

const (
	OutcomeUnexpectedState Outcome = iota
	OutcomeDebtFound
	OutcomeNoDebtFound
	OutcomeTooManyFailedAttempts
	OutcomeHandlerTimeout
)

var outcomeNames = map[Outcome]string{
	OutcomeUnexpectedState:       "UNEXPECTED_STATE",
	OutcomeDebtFound:             "DEBT_FOUND",
	OutcomeNoDebtFound:           "NO_DEBT_FOUND",
	OutcomeTooManyFailedAttempts: "TOO_MANY_FAILED_ATTEMPTS",
	OutcomeHandlerTimeout:        "HANDLER_TIMEOUT",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "Outcome(" + strconv.Itoa(int(o)) + ")"
}

// ParseOutcome maps a wire name back to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return o, nil
		}
	}
	return OutcomeUnexpectedState, eris.Errorf("model: unknown outcome %q", s)
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	parsed, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Semantic is what the display layer distinguishes.
type Semantic string

const (
	SemanticDebt    Semantic = "debt"
	SemanticNoDebt  Semantic = "no_debt"
	SemanticLockout Semantic = "lockout"
	SemanticError   Semantic = "error"
)

// Semantic collapses the outcome into one of the display categories.
func (o Outcome) Semantic() Semantic {
	switch o {
	case OutcomeDebtFound:
		return SemanticDebt
	case OutcomeNoDebtFound:
		return SemanticNoDebt
	case OutcomeTooManyFailedAttempts:
		return SemanticLockout
	case OutcomeHandlerTimeout, OutcomeUnexpectedState:
		return SemanticError
	default:
		return SemanticError
	}
}

// Successful reports whether the visit completed, with or without debt.
func (o Outcome) Successful() bool {
	return o == OutcomeDebtFound || o == OutcomeNoDebtFound
}

// UserMessage returns the Norwegian title and body shown for a site visit.
func (o Outcome) UserMessage(site string) (title, body string) {
	switch o {
	case OutcomeDebtFound:
		return "Gjeld funnet", fmt.Sprintf("Gjeldsinformasjon fra %s er hentet.", site)
	case OutcomeNoDebtFound:
		return "Ingen gjeld", fmt.Sprintf("Det er ingen gjeld hos %s.", site)
	case OutcomeTooManyFailedAttempts:
		return "For mange mislykkede påloggingsforsøk", fmt.Sprintf("For mange mislykkede påloggingsforsøk fra %s.", site)
	case OutcomeHandlerTimeout:
		return "Tidsavbrudd", fmt.Sprintf("Tidsavbrudd ved henting av gjeldsinformasjon fra %s.", site)
	case OutcomeUnexpectedState:
		return "Uventet tilstand", fmt.Sprintf("Innhenting av gjeldsinformasjon fra %s fullførte ikke siden et forventet element mangler.", site)
	default:
		return "Feil under innhenting", fmt.Sprintf("Noe gikk galt under innhenting av gjeldsinformasjon fra %s.", site)
	}
}
