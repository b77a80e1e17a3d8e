package model

import "time"

// Category is the routing hint inferred from keywords in the utterance.
type Category string

const (
	CategoryNone   Category = ""
	CategorySports Category = "sports"
)

// FamilyPerson is the generic identity used when no person alias resolves.
const FamilyPerson = "family"

// StructuredEvent is the fully resolved form of one utterance, ready to be
// routed and written.
type StructuredEvent struct {
	Title    string
	Person   string
	Category Category

	// Start / End are in the configured zone. End is always after Start
	// on the same calendar date.
	Start time.Time
	End   time.Time

	// Location is empty when the utterance named none.
	Location string

	// Color is a display color id; it never affects routing.
	Color string
}

// WriteRequest is what the engine hands to a calendar writer.
type WriteRequest struct {
	CalendarID string
	Title      string
	Location   string
	Start      time.Time
	End        time.Time
	ColorHint  string
}

// Receipt identifies an event after a successful write.
type Receipt struct {
	ID   string
	Link string
}
