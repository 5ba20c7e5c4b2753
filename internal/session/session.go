// Package session carries per-run context through site visits and owns the
// shared browser handle. Sites are visited one at a time.
package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gjeldshjelp/debt-cli/internal/schema"
)

// Session is the explicit context for one person's run. It is passed into
// every site visit instead of living in globals.
type Session struct {
	RunID      uuid.UUID
	PersonID   string
	NationalID string
	Site       string
	UserName   string
}

// New starts a run for a person. The national ID must be a valid
// fødselsnummer.
func New(personID, nationalID string) (Session, error) {
	if err := schema.ValidateNationalID(nationalID); err != nil {
		return Session{}, err
	}
	return Session{
		RunID:      uuid.New(),
		PersonID:   personID,
		NationalID: strings.TrimSpace(nationalID),
	}, nil
}

// ForSite returns a copy positioned on site.
func (s Session) ForSite(site string) Session {
	s.Site = site
	return s
}
