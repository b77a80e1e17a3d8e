package intake

import (
	"time"

	"famcal/internal/model"
)

const (
	defaultStartMinutes = 9 * 60
	defaultDuration     = time.Hour
)

// extraction is everything the extractors pulled out of one utterance.
type extraction struct {
	title    string
	location found[string]
	person   found[string]
	start    found[int]
	end      found[int]
	date     dateHints
	sports   bool
}

// assemble merges extracted fields onto the resolved date and applies the
// defaults: 09:00 start, one hour long, family as the person.
func assemble(x extraction, date time.Time, personHint string, colors func(string) string) model.StructuredEvent {
	startMin := defaultStartMinutes
	if x.start.OK {
		startMin = x.start.Value
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), startMin/60, startMin%60, 0, 0, date.Location())

	var end time.Time
	if x.end.OK && x.end.Value > startMin {
		end = time.Date(date.Year(), date.Month(), date.Day(), x.end.Value/60, x.end.Value%60, 0, 0, date.Location())
	} else {
		end = start.Add(defaultDuration)
		// Keep the event on its own date.
		if lastSecond := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, date.Location()); end.After(lastSecond) {
			end = lastSecond
		}
	}

	person := model.FamilyPerson
	switch {
	case x.person.OK:
		person = x.person.Value
	case personHint != "":
		person = personHint
	}

	category := model.CategoryNone
	if x.sports {
		category = model.CategorySports
	}

	return model.StructuredEvent{
		Title:    x.title,
		Person:   person,
		Category: category,
		Start:    start,
		End:      end,
		Location: x.location.Value,
		Color:    colors(person),
	}
}
