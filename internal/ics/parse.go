package ics

import (
	"bytes"
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "famcal/internal/log"
)

// ParsedEvent is the normalized view of a stored VEVENT.
type ParsedEvent struct {
	CalendarID string `json:"calendar_id"`

	UID      string `json:"uid"`
	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`
	Color    string `json:"color,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseICS parses one stored calendar file into events.
//
//   - It relies on the library's TZID handling to build time.Time values.
//   - VEVENTs without a UID are logged and skipped; the rest are kept.
func ParseICS(calendarID string, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "calendar", calendarID)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(calendarID, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "calendar", calendarID)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "calendar", calendarID, "event_count", len(events))
	return events, nil
}

func parseVEvent(calendarID string, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.CalendarID = calendarID

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(propertyColor); p != nil {
		out.Color = p.Value
	}

	// GetStartAt/GetEndAt handle TZID and UTC forms for us.
	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	out.End = end

	return out, nil
}
