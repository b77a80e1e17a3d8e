// Package lexicon holds the static word tables the intake parser reads:
// weekday and month names, person aliases, category keywords and display
// colors. Everything here is built once at startup and only read afterwards.
package lexicon

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"famcal/internal/config"
	"famcal/internal/model"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Weekday looks up a full or abbreviated weekday name (case-insensitive).
func Weekday(word string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(word)]
	return wd, ok
}

// Month looks up a full or abbreviated month name (case-insensitive).
func Month(word string) (time.Month, bool) {
	m, ok := months[strings.ToLower(word)]
	return m, ok
}

// WeekdayPattern returns a regexp alternation of every weekday name, longest
// first, for use inside larger patterns.
func WeekdayPattern() string { return alternation(keys(weekdays)) }

// WeekdayFullPattern is WeekdayPattern limited to full names ("saturday").
func WeekdayFullPattern() string { return alternation(weekdayNames(true)) }

// WeekdayShortPattern is WeekdayPattern limited to abbreviations ("sat").
func WeekdayShortPattern() string { return alternation(weekdayNames(false)) }

func weekdayNames(full bool) []string {
	var out []string
	for k := range weekdays {
		if strings.HasSuffix(k, "day") == full {
			out = append(out, k)
		}
	}
	return out
}

// MonthPattern returns a regexp alternation of every month name, longest first.
func MonthPattern() string { return alternation(keys(months)) }

// Aliases maps spoken names to person identities.
type Aliases struct {
	byAlias map[string]string
	re      *regexp.Regexp
}

// NewAliases builds the alias table. Keys are identities, values the names
// that refer to them. An identity always matches itself.
func NewAliases(entries map[string][]string) *Aliases {
	a := &Aliases{byAlias: make(map[string]string)}
	for id, names := range entries {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		a.byAlias[id] = id
		for _, n := range names {
			n = strings.ToLower(strings.TrimSpace(n))
			if n != "" {
				a.byAlias[n] = id
			}
		}
	}
	if len(a.byAlias) > 0 {
		a.re = regexp.MustCompile(`(?i)\b(?:` + alternation(keys(a.byAlias)) + `)\b`)
	}
	return a
}

// Find returns the identity for the earliest alias in text. When two aliases
// start at the same position the longer one wins.
func (a *Aliases) Find(text string) (string, bool) {
	if a == nil || a.re == nil {
		return "", false
	}
	m := a.re.FindString(text)
	if m == "" {
		return "", false
	}
	return a.byAlias[strings.ToLower(m)], true
}

// Identity resolves an exact alias or identity name.
func (a *Aliases) Identity(name string) (string, bool) {
	if a == nil {
		return "", false
	}
	id, ok := a.byAlias[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Keywords is a whole-word, case-insensitive keyword set.
type Keywords struct {
	re *regexp.Regexp
}

func NewKeywords(words []string) Keywords {
	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 {
		return Keywords{}
	}
	return Keywords{re: regexp.MustCompile(`(?i)\b(?:` + alternation(clean) + `)\b`)}
}

// AnyIn reports whether any keyword occurs in text.
func (k Keywords) AnyIn(text string) bool {
	return k.re != nil && k.re.MatchString(text)
}

// Tables bundles everything the parser needs to look words up.
type Tables struct {
	Aliases *Aliases
	Sports  Keywords
	Colors  map[string]string
}

// Color returns the display color for a person, or "" if none is configured.
func (t *Tables) Color(person string) string {
	if t == nil {
		return ""
	}
	return t.Colors[person]
}

// FromConfig builds the lookup tables from the loaded configuration.
func FromConfig(cfg *config.Config) *Tables {
	entries := map[string][]string{
		model.FamilyPerson: cfg.FamilyAliases,
	}
	colors := make(map[string]string)
	for _, u := range cfg.Users {
		id := strings.ToLower(strings.TrimSpace(u.ID))
		if id == "" {
			continue
		}
		entries[id] = append(entries[id], u.Aliases...)
		if u.Color != "" {
			colors[id] = u.Color
		}
	}
	return &Tables{
		Aliases: NewAliases(entries),
		Sports:  NewKeywords(cfg.SportsKeywords),
		Colors:  colors,
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// alternation quotes words and orders them longest first (then
// alphabetically) so the regexp prefers "saturday" over "sat".
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}
