package norm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	norwegianDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	isoDate       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
)

// ParseNorwegianDate parses DD.MM.YYYY. Impossible calendar dates such as
// 31.02.2024 are rejected.
func ParseNorwegianDate(raw string) (time.Time, bool) {
	m := norwegianDate.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, false
	}
	return civil(m[3], m[2], m[1])
}

// ParseDate accepts DD.MM.YYYY as well as the ISO form used by JSON APIs
// (YYYY-MM-DD, optionally followed by a time component).
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if t, ok := ParseNorwegianDate(s); ok {
		return t, true
	}
	m := isoDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return civil(m[1], m[2], m[3])
}

// FormatNorwegianDate renders t as DD.MM.YYYY.
func FormatNorwegianDate(t time.Time) string {
	return t.Format("02.01.2006")
}

func civil(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != mo {
		return time.Time{}, false
	}
	return t, true
}
