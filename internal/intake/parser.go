// Package intake turns short freeform utterances ("Mason practice Saturday
// 8am @ Mountain West") into structured calendar events, routes them to a
// calendar and writes them through a Writer.
//
// Parsing is a fixed, ordered pipeline of extractors. Each one reads the
// remaining text and cuts out what it matched so later extractors cannot
// match it again:
//
//  1. location ("@ place", "at place")
//  2. person alias (classifier, left in the title)
//  3. start clock time
//  4. end clock time ("- 5pm", "to 5pm")
//  5. date group, first match wins: explicit date, weekday name, today/tomorrow
//  6. category keywords (classifier, read from the original utterance)
//
// Whatever text survives becomes the title.
package intake

import (
	"time"

	"famcal/internal/lexicon"
	"famcal/internal/model"
)

// Parser is safe for concurrent use; it holds only read-only tables.
type Parser struct {
	tables *lexicon.Tables
	loc    *time.Location
	now    func() time.Time
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// NewParser builds a parser interpreting utterances in loc.
func NewParser(tables *lexicon.Tables, loc *time.Location, opts ...Option) *Parser {
	if tables == nil {
		tables = &lexicon.Tables{}
	}
	if loc == nil {
		loc = time.Local
	}
	p := &Parser{tables: tables, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse never fails: every missing field falls back to a default. personHint
// is used only when the text names nobody and must already be a known
// identity (see ResolvePerson).
func (p *Parser) Parse(utterance, personHint string) model.StructuredEvent {
	x := p.extract(utterance)
	date := resolveDate(x.date, midnight(p.now(), p.loc))
	return assemble(x, date, personHint, p.tables.Color)
}

// ResolvePerson maps a caller-supplied name to a known identity.
func (p *Parser) ResolvePerson(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	return p.tables.Aliases.Identity(name)
}

func (p *Parser) extract(utterance string) extraction {
	var x extraction
	rest := utterance

	x.location, rest = extractLocation(rest)
	x.person = extractPerson(rest, p.tables.Aliases)

	var at int
	x.start, at, rest = extractClockTime(rest)
	if x.start.OK {
		x.end, rest = extractEndClockTime(rest, at)
	}

	x.date.explicit, rest = extractExplicitDate(rest)
	if !x.date.explicit.OK {
		x.date.weekday, rest = extractWeekdayName(rest)
	}
	if !x.date.explicit.OK && !x.date.weekday.OK {
		x.date.relative, rest = extractRelativeDay(rest)
	}

	x.sports = extractCategory(utterance, p.tables.Sports)
	x.title = deriveTitle(rest, utterance)
	return x
}
