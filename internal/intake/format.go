package intake

import (
	"fmt"
	"time"

	"famcal/internal/model"
)

// Confirmation renders the sentence read back over voice or SMS, e.g.
// "Added Mason practice on Saturday, October 17 at 8:00 AM, at Mountain West".
func Confirmation(ev model.StructuredEvent) string {
	s := fmt.Sprintf("Added %s on %s at %s", ev.Title, ev.Start.Format("Monday, January 2"), ev.Start.Format("3:04 PM"))
	if ev.Location != "" {
		s += ", at " + ev.Location
	}
	return s
}

// Summary is the machine-readable echo of a routed event.
type Summary struct {
	Title      string  `json:"title"`
	Person     string  `json:"person"`
	Category   *string `json:"category"`
	Date       string  `json:"date"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Location   *string `json:"location"`
	CalendarID string  `json:"calendar_id"`
	Color      string  `json:"color,omitempty"`
	EventID    string  `json:"event_id,omitempty"`
	Link       string  `json:"link,omitempty"`
}

// Summarize projects an event, its calendar and the write receipt.
func Summarize(ev model.StructuredEvent, calendarID string, receipt model.Receipt) Summary {
	s := Summary{
		Title:      ev.Title,
		Person:     ev.Person,
		Date:       ev.Start.Format(time.DateOnly),
		Start:      ev.Start.Format(time.RFC3339),
		End:        ev.End.Format(time.RFC3339),
		CalendarID: calendarID,
		Color:      ev.Color,
		EventID:    receipt.ID,
		Link:       receipt.Link,
	}
	if ev.Category != model.CategoryNone {
		c := string(ev.Category)
		s.Category = &c
	}
	if ev.Location != "" {
		l := ev.Location
		s.Location = &l
	}
	return s
}
