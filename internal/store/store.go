package store

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// DateLayout is the snapshot date format used in keys and paths.
const DateLayout = "2006_01_02"

var dateKeyPattern = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}$`)

// ErrNotFound is returned by Get when no snapshot exists for a key.
var ErrNotFound = errors.New("store: snapshot not found")

// Key addresses one collector's snapshot for one person on one date.
type Key struct {
	PersonID string `json:"personId"`
	Date     string `json:"date"`
	Site     string `json:"site"`
}

// DateKey formats t as a snapshot date.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// IsDateKey reports whether s is a YYYY_MM_DD snapshot date.
func IsDateKey(s string) bool {
	return dateKeyPattern.MatchString(s)
}

// Validate rejects keys that are incomplete or unsafe to use as path segments.
func (k Key) Validate() error {
	if err := validSegment("person id", k.PersonID); err != nil {
		return err
	}
	if !IsDateKey(k.Date) {
		return eris.Errorf("store: invalid snapshot date %q", k.Date)
	}
	return validSegment("site", k.Site)
}

func validSegment(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return eris.Errorf("store: %s is required", name)
	}
	if strings.ContainsAny(v, `/\`) || strings.Contains(v, "..") {
		return eris.Errorf("store: %s %q contains a path separator", name, v)
	}
	return nil
}

func (k Key) String() string {
	return k.PersonID + "/" + k.Date + "/" + k.Site
}

// Store persists raw collector snapshots keyed by person, date and site.
// Get returns the stored bytes untouched so older, unenveloped shapes
// remain readable.
type Store interface {
	Put(ctx context.Context, key Key, snap model.RawSnapshot) error
	// PutUnvalidated stores a rejected object for debugging. It is never
	// listed or read back by aggregation.
	PutUnvalidated(ctx context.Context, key Key, v any) error
	Get(ctx context.Context, key Key) ([]byte, error)
	// ListDates returns the person's snapshot dates, newest first.
	ListDates(ctx context.Context, personID string) ([]string, error)
	// ListSites returns the sites with a snapshot on date, sorted.
	ListSites(ctx context.Context, personID, date string) ([]string, error)

	Migrate(ctx context.Context) error
	Close() error
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "store: encode snapshot")
	}
	return data, nil
}

// sortDatesDesc keeps well-formed dates, deduplicated, newest first.
func sortDatesDesc(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, d := range in {
		if IsDateKey(d) && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
