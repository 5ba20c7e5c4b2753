package extract

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/gjeldshjelp/debt-cli/internal/model"
	"github.com/gjeldshjelp/debt-cli/internal/norm"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Patterns lists the page phrases that end a visit without extraction.
type Patterns struct {
	Lockout []string `yaml:"lockout"`
	NoDebt  []string `yaml:"no_debt"`
}

// DefaultPatterns returns the built-in phrase lists.
func DefaultPatterns() (*Patterns, error) {
	var p Patterns
	if err := yaml.Unmarshal(defaultPatterns, &p); err != nil {
		return nil, eris.Wrap(err, "extract: parse patterns")
	}
	return &p, nil
}

// LoadPatterns reads phrase lists from path, or the built-in set when path
// is empty. A list present in the file replaces the built-in one.
func LoadPatterns(path string) (*Patterns, error) {
	p, err := DefaultPatterns()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read patterns %s", path)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrapf(err, "extract: parse patterns %s", path)
	}
	return p, nil
}

// Detector recognizes lockout and no-debt pages.
type Detector struct {
	lockout []string
	noDebt  []string
}

// NewDetector lowercases and keeps the non-empty phrases of p.
func NewDetector(p *Patterns) *Detector {
	return &Detector{lockout: lowerAll(p.Lockout), noDebt: lowerAll(p.NoDebt)}
}

// DefaultDetector returns a detector over the built-in phrases.
func DefaultDetector() *Detector {
	p, err := DefaultPatterns()
	if err != nil {
		panic(err)
	}
	return NewDetector(p)
}

// Detect reports TooManyFailedAttempts or NoDebtFound when text carries one
// of the configured phrases, lockout first. ok is false when neither matched.
func (d *Detector) Detect(text string) (outcome model.Outcome, ok bool) {
	page := pageText(text)
	switch {
	case containsAny(page, d.lockout):
		return model.OutcomeTooManyFailedAttempts, true
	case containsAny(page, d.noDebt):
		return model.OutcomeNoDebtFound, true
	}
	return model.OutcomeUnexpectedState, false
}

// LockedOut reports whether text carries a lockout phrase.
func (d *Detector) LockedOut(text string) bool {
	return containsAny(pageText(text), d.lockout)
}

// SaysNoDebt reports whether text carries a no-debt phrase. Callers only
// ask when the page had nothing to extract.
func (d *Detector) SaysNoDebt(text string) bool {
	return containsAny(pageText(text), d.noDebt)
}

func pageText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.CleanText(text))), " ")
}

func containsAny(page string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(page, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
