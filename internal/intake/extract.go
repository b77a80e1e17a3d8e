package intake

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"famcal/internal/lexicon"
)

// found is the outcome of one extractor: a value, or nothing.
type found[T any] struct {
	Value T
	OK    bool
}

func present[T any](v T) found[T] { return found[T]{Value: v, OK: true} }

// monthDay is an explicit calendar date as written. Year is 0 when the
// utterance did not name one.
type monthDay struct {
	Month time.Month
	Day   int
	Year  int
}

var (
	clockPattern = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`

	locationMarkerRe = regexp.MustCompile(`(?i)@|\bat\b`)
	clockRe          = regexp.MustCompile(`(?i)\b` + clockPattern)
	endClockRe       = regexp.MustCompile(`(?i)^\s*(?:-|–|—|\bto\b)\s*` + clockPattern)
	relativeDayRe    = regexp.MustCompile(`(?i)\b(today|tomorrow)\b`)
	wordRe           = regexp.MustCompile(`[A-Za-z]+`)
	weekdayLeadRe    = regexp.MustCompile(`(?i)\b(?:on|this|next)\s+$`)
	dateLeadRe       = regexp.MustCompile(`(?i)\bon\s+$`)
	monthDayRe       = regexp.MustCompile(`(?i)\b(` + lexicon.MonthPattern() + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b(?:,?\s+(\d{4})\b)?`)
	slashDateRe      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)

	// Tokens that end a location span. A short weekday ("sat") only ends it
	// when nothing but punctuation, a number or a connector follows, so
	// names like "Sat Nam Yoga" stay whole.
	locationStopRe = regexp.MustCompile(`(?i)\b(?:` +
		clockPattern +
		`|today\b|tomorrow\b` +
		`|(?:` + lexicon.WeekdayFullPattern() + `)\b` +
		`|(?:` + lexicon.WeekdayShortPattern() + `)\.?(?:\s*$|\s*[,;@]|\s+\d|\s+(?:at|on)\b)` +
		`|(?:` + lexicon.MonthPattern() + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?\b` +
		`|\d{1,2}/\d{1,2}(?:/\d{2,4})?\b)`)
)

// extractLocation takes the text after "@" or "at" up to the next time,
// day or date token. Markers followed directly by such a token ("at 6pm")
// are skipped.
func extractLocation(rest string) (found[string], string) {
	for _, m := range locationMarkerRe.FindAllStringIndex(rest, -1) {
		after := rest[m[1]:]
		end := len(after)
		if stop := locationStopRe.FindStringIndex(after); stop != nil {
			end = stop[0]
		}
		loc := strings.Join(trimConnectors(strings.Fields(strings.Trim(after[:end], " \t,;"))), " ")
		if loc == "" {
			continue
		}
		return present(loc), rest[:m[0]] + " " + after[end:]
	}
	return found[string]{}, rest
}

// extractPerson returns the identity of the earliest alias in rest. The
// alias stays in the text so it remains part of the title.
func extractPerson(rest string, aliases *lexicon.Aliases) found[string] {
	if id, ok := aliases.Find(rest); ok {
		return present(id)
	}
	return found[string]{}
}

// extractClockTime finds the first valid 12-hour time and returns it as
// minutes after midnight, plus the offset where it was cut out of rest.
func extractClockTime(rest string) (found[int], int, string) {
	for _, m := range clockRe.FindAllStringSubmatchIndex(rest, -1) {
		mins, ok := clockMinutes(rest, m)
		if !ok {
			continue
		}
		return present(mins), m[0], rest[:m[0]] + rest[m[1]:]
	}
	return found[int]{}, -1, rest
}

// extractEndClockTime matches "- 5pm" or "to 5:30pm" right where the start
// time was removed.
func extractEndClockTime(rest string, at int) (found[int], string) {
	if at < 0 || at > len(rest) {
		return found[int]{}, rest
	}
	tail := rest[at:]
	m := endClockRe.FindStringSubmatchIndex(tail)
	if m == nil {
		return found[int]{}, rest
	}
	mins, ok := clockMinutes(tail, m)
	if !ok {
		return found[int]{}, rest
	}
	return present(mins), rest[:at] + " " + tail[m[1]:]
}

// clockMinutes converts submatches (hour, minute, meridiem) of a clock
// pattern into minutes after midnight.
func clockMinutes(s string, m []int) (int, bool) {
	h, err := strconv.Atoi(s[m[2]:m[3]])
	if err != nil || h < 1 || h > 12 {
		return 0, false
	}
	mins := 0
	if m[4] >= 0 {
		mins, err = strconv.Atoi(s[m[4]:m[5]])
		if err != nil || mins > 59 {
			return 0, false
		}
	}
	pm := strings.EqualFold(s[m[6]:m[7]], "pm")
	switch {
	case h == 12 && !pm:
		h = 0
	case h != 12 && pm:
		h += 12
	}
	return h*60 + mins, true
}

// extractRelativeDay recognizes "today" (0) and "tomorrow" (1).
func extractRelativeDay(rest string) (found[int], string) {
	m := relativeDayRe.FindStringSubmatchIndex(rest)
	if m == nil {
		return found[int]{}, rest
	}
	offset := 0
	if strings.EqualFold(rest[m[2]:m[3]], "tomorrow") {
		offset = 1
	}
	return present(offset), rest[:m[0]] + " " + rest[m[1]:]
}

// extractWeekdayName looks each word up in the weekday table and takes the
// first hit. A leading "on", "this" or "next" is consumed with it.
func extractWeekdayName(rest string) (found[time.Weekday], string) {
	for _, m := range wordRe.FindAllStringIndex(rest, -1) {
		wd, ok := lexicon.Weekday(rest[m[0]:m[1]])
		if !ok {
			continue
		}
		start := m[0]
		if lead := weekdayLeadRe.FindStringIndex(rest[:start]); lead != nil {
			start = lead[0]
		}
		return present(wd), rest[:start] + " " + rest[m[1]:]
	}
	return found[time.Weekday]{}, rest
}

// extractExplicitDate matches "Feb 14", "February 14th, 2027", "2/14" or
// "2/14/27", whichever valid form comes first in the text.
func extractExplicitDate(rest string) (found[monthDay], string) {
	best := found[monthDay]{}
	bestStart, bestEnd := -1, -1

	consider := func(md monthDay, start, end int) {
		if !validMonthDay(md) {
			return
		}
		if bestStart < 0 || start < bestStart {
			best, bestStart, bestEnd = present(md), start, end
		}
	}

	for _, m := range monthDayRe.FindAllStringSubmatchIndex(rest, -1) {
		month, _ := lexicon.Month(rest[m[2]:m[3]])
		day, _ := strconv.Atoi(rest[m[4]:m[5]])
		year := 0
		if m[6] >= 0 {
			year, _ = strconv.Atoi(rest[m[6]:m[7]])
		}
		consider(monthDay{Month: month, Day: day, Year: year}, m[0], m[1])
	}
	for _, m := range slashDateRe.FindAllStringSubmatchIndex(rest, -1) {
		month, _ := strconv.Atoi(rest[m[2]:m[3]])
		day, _ := strconv.Atoi(rest[m[4]:m[5]])
		year := 0
		if m[6] >= 0 {
			year, _ = strconv.Atoi(rest[m[6]:m[7]])
			if year < 100 {
				year += 2000
			}
		}
		consider(monthDay{Month: time.Month(month), Day: day, Year: year}, m[0], m[1])
	}

	if !best.OK {
		return best, rest
	}
	if lead := dateLeadRe.FindStringIndex(rest[:bestStart]); lead != nil {
		bestStart = lead[0]
	}
	return best, rest[:bestStart] + " " + rest[bestEnd:]
}

// validMonthDay rejects impossible dates. Without a year, Feb 29 is allowed.
func validMonthDay(md monthDay) bool {
	if md.Month < time.January || md.Month > time.December || md.Day < 1 {
		return false
	}
	year := md.Year
	if year == 0 {
		year = 2000
	}
	return md.Day <= daysIn(year, md.Month)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// extractCategory flags sports events from keywords anywhere in the
// original utterance.
func extractCategory(utterance string, sports lexicon.Keywords) bool {
	return sports.AnyIn(utterance)
}

var connectorWords = map[string]bool{"at": true, "on": true, "@": true}

// deriveTitle collapses whitespace, strips leading dashes and dangling
// connector words, and falls back to the utterance when nothing is left.
func deriveTitle(rest, utterance string) string {
	words := strings.Fields(rest)
lead:
	for len(words) > 0 {
		first := strings.TrimLeft(words[0], "-–—")
		switch {
		case first == "":
			words = words[1:]
		case first != words[0]:
			words[0] = first
		case connectorWords[strings.ToLower(first)]:
			words = words[1:]
		default:
			break lead
		}
	}
	title := strings.Join(trimConnectors(words), " ")
	if title == "" {
		return utterance
	}
	return title
}

// trimConnectors drops trailing connector words and bare dashes.
func trimConnectors(words []string) []string {
	for len(words) > 0 {
		last := words[len(words)-1]
		if !connectorWords[strings.ToLower(last)] && strings.Trim(last, "-–—,") != "" {
			break
		}
		words = words[:len(words)-1]
	}
	return words
}
