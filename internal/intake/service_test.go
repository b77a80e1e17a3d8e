package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/model"
	"famcal/internal/route"
)

type fakeWriter struct {
	calls []model.WriteRequest
	err   error
}

func (w *fakeWriter) WriteEvent(_ context.Context, req model.WriteRequest) (model.Receipt, error) {
	w.calls = append(w.calls, req)
	if w.err != nil {
		return model.Receipt{}, w.err
	}
	return model.Receipt{ID: "evt-1", Link: "file:///cal.ics#evt-1"}, nil
}

func newTestService(w Writer, calendars map[string]string) *Service {
	reg := route.NewRegistry(calendars, []string{"mason"})
	return NewService(newTestParser(testNow()), reg, w)
}

func TestServiceAddRoutesSports(t *testing.T) {
	w := &fakeWriter{}
	svc := newTestService(w, map[string]string{
		"family":         "fam-cal",
		"mason":          "mason-cal",
		"mason-baseball": "mason-bb-cal",
	})

	res, err := svc.Add(context.Background(), Request{
		Text:    "  Mason practice Saturday 8am @ Mountain West ",
		Channel: "api",
	})
	require.NoError(t, err)
	assert.Equal(t, "mason-bb-cal", res.CalendarID)
	assert.Equal(t, "Added Mason practice on Saturday, October 17 at 8:00 AM, at Mountain West", res.Speak)
	assert.Equal(t, "evt-1", res.Summary.EventID)

	require.Len(t, w.calls, 1)
	call := w.calls[0]
	assert.Equal(t, "mason-bb-cal", call.CalendarID)
	assert.Equal(t, "Mason practice", call.Title)
	assert.Equal(t, "Mountain West", call.Location)
	assert.Equal(t, "9", call.ColorHint)
	assert.Equal(t, at(2026, 10, 17, 8, 0), call.Start)
	assert.Equal(t, at(2026, 10, 17, 9, 0), call.End)
}

func TestServiceAddPersonHint(t *testing.T) {
	w := &fakeWriter{}
	svc := newTestService(w, map[string]string{"family": "fam-cal", "mason": "mason-cal"})

	res, err := svc.Add(context.Background(), Request{Text: "Dentist tomorrow", Person: "Mase"})
	require.NoError(t, err)
	assert.Equal(t, "mason", res.Event.Person)
	assert.Equal(t, "mason-cal", res.CalendarID)

	// Unknown hints are dropped.
	res, err = svc.Add(context.Background(), Request{Text: "Dentist tomorrow", Person: "grandpa"})
	require.NoError(t, err)
	assert.Equal(t, "family", res.Event.Person)
	assert.Equal(t, "fam-cal", res.CalendarID)
}

func TestServiceAddEmptyText(t *testing.T) {
	w := &fakeWriter{}
	svc := newTestService(w, map[string]string{"family": "fam-cal"})

	_, err := svc.Add(context.Background(), Request{Text: "   "})
	var inErr *InputError
	require.True(t, errors.As(err, &inErr))
	assert.Empty(t, w.calls)
}

func TestServiceAddNoCalendar(t *testing.T) {
	w := &fakeWriter{}
	svc := newTestService(w, map[string]string{"mason": "mason-cal"})

	_, err := svc.Add(context.Background(), Request{Text: "Family dinner"})
	var cfgErr *route.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, w.calls)
}

func TestServiceAddWriteFailure(t *testing.T) {
	boom := errors.New("calendar API unavailable")
	w := &fakeWriter{err: boom}
	svc := newTestService(w, map[string]string{"family": "fam-cal"})

	_, err := svc.Add(context.Background(), Request{Text: "Family dinner"})
	var wErr *WriteError
	require.True(t, errors.As(err, &wErr))
	assert.Equal(t, "fam-cal", wErr.CalendarID)
	assert.ErrorIs(t, err, boom)
	// No retry.
	assert.Len(t, w.calls, 1)
}
