package schema

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ValidateNationalID checks that a fødselsnummer is present and exactly
// 11 digits. Error messages are user-facing.
func ValidateNationalID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return eris.New("Fødselsnummer er påkrevd")
	}
	if len(trimmed) != 11 || strings.TrimFunc(trimmed, isDigit) != "" {
		return eris.New("Fødselsnummer må være nøyaktig 11 siffer")
	}
	return nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
