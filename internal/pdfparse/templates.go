package pdfparse

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Templates holds the label patterns used to pull fields out of statement text.
type Templates struct {
	Anchor     string            `yaml:"anchor"`
	CaseNumber string            `yaml:"case_number"`
	Date       string            `yaml:"date"`
	Amounts    map[string]string `yaml:"amounts"`

	Creditor         NameTemplate `yaml:"creditor"`
	OriginalCreditor NameTemplate `yaml:"original_creditor"`

	CustomerNumber string `yaml:"customer_number"`
	Reference      string `yaml:"reference"`

	BasisAnchor         string   `yaml:"basis_anchor"`
	InvoiceSection      string   `yaml:"invoice_section"`
	InvoiceNumber       []string `yaml:"invoice_number"`
	InvoiceAmount       string   `yaml:"invoice_amount"`
	InvoiceAmountReject string   `yaml:"invoice_amount_reject"`
	InvoiceWindow       int      `yaml:"invoice_window"`
	InvoiceMaxAmount    float64  `yaml:"invoice_max_amount"`

	FallbackDateIndexes []int `yaml:"fallback_date_indexes"`

	Collectors       []CollectorTemplate `yaml:"collectors"`
	UnknownCollector string              `yaml:"unknown_collector"`
}

// NameTemplate captures a party name after Label, up to the first stop label.
type NameTemplate struct {
	Label      string   `yaml:"label"`
	SkipPrefix string   `yaml:"skip_prefix"`
	Charset    string   `yaml:"charset"`
	Stops      []string `yaml:"stops"`
	SingleLine bool     `yaml:"single_line"`
	Strip      string   `yaml:"strip"`
}

// CollectorTemplate maps a lowercase marker on the anchor page to a collector name.
type CollectorTemplate struct {
	Contains string `yaml:"contains"`
	Name     string `yaml:"name"`
}

// Amount field keys.
const (
	FieldTotal           = "total"
	FieldPrincipal       = "principal"
	FieldInterest        = "interest"
	FieldFees            = "fees"
	FieldCollectionFees  = "collection_fees"
	FieldInterestOnCosts = "interest_on_costs"
)

var requiredAmountFields = []string{
	FieldTotal, FieldPrincipal, FieldInterest, FieldFees, FieldCollectionFees, FieldInterestOnCosts,
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() (*Templates, error) {
	return parseTemplates(defaultTemplates)
}

// LoadTemplates reads templates from path, or the built-in set when path is empty.
// Fields missing from the file keep their built-in values.
func LoadTemplates(path string) (*Templates, error) {
	if path == "" {
		return DefaultTemplates()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pdfparse: read templates %s", path)
	}

	t, err := DefaultTemplates()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, eris.Wrapf(err, "pdfparse: parse templates %s", path)
	}
	return t, nil
}

func parseTemplates(data []byte) (*Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "pdfparse: parse templates")
	}
	return &t, nil
}

type nameMatcher struct {
	label      *regexp.Regexp
	skipPrefix *regexp.Regexp
	charset    *regexp.Regexp
	stop       *regexp.Regexp
	strip      *regexp.Regexp
	singleLine bool
}

// find returns the first well-formed name following the label, or "".
func (m nameMatcher) find(text string) string {
	for _, loc := range m.label.FindAllStringIndex(text, -1) {
		if m.skipPrefix != nil && m.skipPrefix.MatchString(text[:loc[0]]) {
			continue
		}
		rest := text[loc[1]:]
		if m.singleLine {
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				rest = rest[:nl]
			}
		}
		end := len(rest)
		if m.stop != nil {
			if s := m.stop.FindStringIndex(rest); s != nil {
				end = s[0]
			}
		}
		name := rest[:end]
		if m.charset != nil && name != "" && !m.charset.MatchString(name) {
			continue
		}
		if m.strip != nil {
			name = m.strip.ReplaceAllString(name, "")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		return name
	}
	return ""
}

type compiled struct {
	anchor       *regexp.Regexp
	caseNumber   *regexp.Regexp
	date         *regexp.Regexp
	amounts      map[string]*regexp.Regexp
	creditor     nameMatcher
	origCreditor nameMatcher
	customer     *regexp.Regexp
	reference    *regexp.Regexp
	invNumber    []*regexp.Regexp
	invAmount    *regexp.Regexp
	invReject    *regexp.Regexp
}

func compileTemplates(t *Templates) (*compiled, error) {
	c := &compiled{amounts: make(map[string]*regexp.Regexp, len(t.Amounts))}
	var err error

	must := func(name, pattern string) *regexp.Regexp {
		if err != nil {
			return nil
		}
		if pattern == "" {
			err = eris.Errorf("pdfparse: template %s is empty", name)
			return nil
		}
		re, cerr := regexp.Compile(pattern)
		if cerr != nil {
			err = eris.Wrapf(cerr, "pdfparse: compile template %s", name)
		}
		return re
	}
	optional := func(name, pattern string) *regexp.Regexp {
		if pattern == "" {
			return nil
		}
		return must(name, pattern)
	}

	c.anchor = must("anchor", t.Anchor)
	c.caseNumber = must("case_number", t.CaseNumber)
	c.date = must("date", t.Date)
	for _, field := range requiredAmountFields {
		c.amounts[field] = must("amounts."+field, t.Amounts[field])
	}
	c.customer = must("customer_number", t.CustomerNumber)
	c.reference = must("reference", t.Reference)
	c.invAmount = must("invoice_amount", t.InvoiceAmount)
	c.invReject = optional("invoice_amount_reject", t.InvoiceAmountReject)
	for _, p := range t.InvoiceNumber {
		c.invNumber = append(c.invNumber, must("invoice_number", p))
	}

	name := func(key string, nt NameTemplate) nameMatcher {
		m := nameMatcher{singleLine: nt.SingleLine}
		m.label = must(key+".label", nt.Label)
		m.skipPrefix = optional(key+".skip_prefix", nt.SkipPrefix)
		m.charset = optional(key+".charset", nt.Charset)
		m.strip = optional(key+".strip", nt.Strip)
		if len(nt.Stops) > 0 {
			m.stop = must(key+".stops", `(?i)\s*(?:`+strings.Join(nt.Stops, "|")+`)`)
		}
		return m
	}
	c.creditor = name("creditor", t.Creditor)
	c.origCreditor = name("original_creditor", t.OriginalCreditor)

	if err != nil {
		return nil, err
	}
	if t.BasisAnchor == "" {
		return nil, eris.New("pdfparse: template basis_anchor is empty")
	}
	return c, nil
}
