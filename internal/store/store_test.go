package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteEventAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, time.October, 17, 14, 0, 0, 0, time.UTC)
	receipt, err := s.WriteEvent(ctx, model.WriteRequest{
		CalendarID: "mason-bb",
		Title:      "Mason practice",
		Location:   "Mountain West",
		Start:      start,
		End:        start.Add(time.Hour),
		ColorHint:  "9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.True(t, strings.HasSuffix(receipt.Link, receipt.ID))

	_, err = s.WriteEvent(ctx, model.WriteRequest{
		CalendarID: "mason-bb",
		Title:      "Earlier",
		Start:      start.Add(-48 * time.Hour),
		End:        start.Add(-47 * time.Hour),
	})
	require.NoError(t, err)

	events, err := s.Events(ctx, "mason-bb")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Earlier", events[0].Title)
	assert.Equal(t, "Mason practice", events[1].Title)
	assert.Equal(t, "Mountain West", events[1].Location)
	assert.Equal(t, "9", events[1].Color)
	assert.True(t, events[1].Start.Equal(start))

	other, err := s.Events(ctx, "family")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestWriteEventValidation(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	_, err := s.WriteEvent(context.Background(), model.WriteRequest{Title: "x", Start: now, End: now.Add(time.Hour)})
	assert.Error(t, err)

	_, err = s.WriteEvent(context.Background(), model.WriteRequest{CalendarID: "fam", Title: "x", Start: now, End: now.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	recent := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	for _, start := range []time.Time{old, recent} {
		_, err := s.WriteEvent(ctx, model.WriteRequest{CalendarID: "family", Title: "e", Start: start, End: start.Add(time.Hour)})
		require.NoError(t, err)
	}

	n, err := s.Prune(ctx, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events, err := s.Events(ctx, "family")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Start.Equal(recent))
}
