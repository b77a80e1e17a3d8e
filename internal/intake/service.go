package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appLog "famcal/internal/log"
	"famcal/internal/model"
	"famcal/internal/route"
)

// InputError means the request carried no usable text.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "invalid input: " + e.Reason }

// WriteError wraps a failure from the calendar writer. The engine does not
// retry; callers may resubmit.
type WriteError struct {
	CalendarID string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("calendar write to %q failed: %v", e.CalendarID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer is the calendar-write collaborator.
type Writer interface {
	WriteEvent(ctx context.Context, req model.WriteRequest) (model.Receipt, error)
}

// Router picks a calendar for a routing key.
type Router interface {
	Route(person string, category model.Category) (string, error)
}

// Request is one utterance from either entry point.
type Request struct {
	Text string
	// User is who sent the request (logged only).
	User string
	// Person is an optional hint used when the text names nobody.
	Person string
	// Channel names the entry point for logging ("api", "sms").
	Channel string
}

// Result is a successfully written event.
type Result struct {
	Event      model.StructuredEvent
	CalendarID string
	Receipt    model.Receipt
	Speak      string
	Summary    Summary
}

// Service runs parse → route → write → format for both entry points.
type Service struct {
	parser *Parser
	router Router
	writer Writer
}

func NewService(parser *Parser, router Router, writer Writer) *Service {
	return &Service{parser: parser, router: router, writer: writer}
}

// Parse exposes the parser for callers that only want the structured event.
func (s *Service) Parse(text, personHint string) model.StructuredEvent {
	hint, _ := s.parser.ResolvePerson(personHint)
	return s.parser.Parse(strings.TrimSpace(text), hint)
}

// Add parses, routes and writes one utterance. Errors are *InputError,
// *route.ConfigurationError or *WriteError.
func (s *Service) Add(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, &InputError{Reason: "text is required"}
	}

	ev := s.Parse(text, req.Person)

	calendarID, err := s.router.Route(ev.Person, ev.Category)
	if err != nil {
		var cfgErr *route.ConfigurationError
		if errors.As(err, &cfgErr) {
			appLog.Error("intake: no calendar for routing key", err,
				"channel", req.Channel, "person", ev.Person, "category", string(ev.Category))
		}
		return Result{}, err
	}

	receipt, err := s.writer.WriteEvent(ctx, model.WriteRequest{
		CalendarID: calendarID,
		Title:      ev.Title,
		Location:   ev.Location,
		Start:      ev.Start,
		End:        ev.End,
		ColorHint:  ev.Color,
	})
	if err != nil {
		appLog.Error("intake: calendar write failed", err, "channel", req.Channel, "calendar", calendarID)
		return Result{}, &WriteError{CalendarID: calendarID, Err: err}
	}

	appLog.Info("intake: event added",
		"channel", req.Channel,
		"user", req.User,
		"person", ev.Person,
		"category", string(ev.Category),
		"calendar", calendarID,
		"start", ev.Start.Format("2006-01-02T15:04"),
		"event_id", receipt.ID,
	)

	return Result{
		Event:      ev,
		CalendarID: calendarID,
		Receipt:    receipt,
		Speak:      Confirmation(ev),
		Summary:    Summarize(ev, calendarID, receipt),
	}, nil
}
