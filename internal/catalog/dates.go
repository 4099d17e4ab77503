package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rolling windows accepted by the "data" criterion, in normalized form.
const (
	WindowThisYear  = "este ano"
	WindowThisMonth = "este mes"
	WindowThisWeek  = "esta semana"
)

var ptMonths = map[string]time.Month{
	"jan": time.January,
	"fev": time.February,
	"mar": time.March,
	"abr": time.April,
	"mai": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August,
	"set": time.September,
	"out": time.October,
	"nov": time.November,
	"dez": time.December,
}

// matches "13 de mar de 2024" and "13 de março de 2024" once normalized
var localizedDatePattern = regexp.MustCompile(`^(\d{1,2})\s+de\s+([a-z]+)\.?\s+de\s+(\d{4})$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Fallback forms only used when ordering by date.
var lenientLayouts = []string{
	"2/1/2006",
	"1/2006",
	"2006",
}

// ParseDateLabel parses an entry's free-text date label. ISO-8601 and the
// localized "D de MMM de YYYY" form are supported. Dates without an explicit
// zone are interpreted in loc.
func ParseDateLabel(label string, loc *time.Location) (time.Time, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, label, loc); err == nil {
			return t.In(loc), true
		}
	}

	return parseLocalized(Normalize(label), loc)
}

// ParseDateLabelLenient extends ParseDateLabel with the "DD/MM/YYYY",
// "MM/YYYY" and "YYYY" forms.
func ParseDateLabelLenient(label string, loc *time.Location) (time.Time, bool) {
	if t, ok := ParseDateLabel(label, loc); ok {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	label = strings.TrimSpace(label)
	for _, layout := range lenientLayouts {
		if t, err := time.ParseInLocation(layout, label, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseLocalized(label string, loc *time.Location) (time.Time, bool) {
	m := localizedDatePattern.FindStringSubmatch(label)
	if m == nil {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	name := m[2]
	if len(name) < 3 {
		return time.Time{}, false
	}
	month, ok := ptMonths[name[:3]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow; "31 de fev" is not a date
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// isKnownWindow reports whether w (normalized) names a supported window.
func isKnownWindow(w string) bool {
	switch w {
	case WindowThisYear, WindowThisMonth, WindowThisWeek:
		return true
	}
	return false
}

// inWindow reports whether d falls in the rolling window w relative to now.
func inWindow(d, now time.Time, w string) bool {
	d = d.In(now.Location())
	switch w {
	case WindowThisYear:
		return d.Year() == now.Year()
	case WindowThisMonth:
		return d.Year() == now.Year() && d.Month() == now.Month()
	case WindowThisWeek:
		days := calendarDaysBetween(d, now)
		return days >= 0 && days <= 7
	}
	return false
}

// calendarDaysBetween returns the number of calendar days from a to b.
func calendarDaysBetween(a, b time.Time) int {
	loc := b.Location()
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, loc)
	return int(math.Round(db.Sub(da).Hours() / 24))
}
