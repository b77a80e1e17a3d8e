package ics

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/model"
)

func TestStoreWriteAndReadBack(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	start := time.Date(2026, time.October, 17, 8, 0, 0, 0, time.FixedZone("MST", -7*60*60))
	receipt, err := store.WriteEvent(ctx, model.WriteRequest{
		CalendarID: "mason-bb@group.calendar.example.com",
		Title:      "Mason practice",
		Location:   "Mountain West",
		Start:      start,
		End:        start.Add(time.Hour),
		ColorHint:  "9",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)
	assert.True(t, strings.HasPrefix(receipt.Link, "file://"))
	assert.True(t, strings.HasSuffix(receipt.Link, "#"+receipt.ID))

	_, err = store.WriteEvent(ctx, model.WriteRequest{
		CalendarID: "mason-bb@group.calendar.example.com",
		Title:      "Mason game",
		Start:      start.AddDate(0, 0, 1),
		End:        start.AddDate(0, 0, 1).Add(time.Hour),
	})
	require.NoError(t, err)

	events, err := store.Events("mason-bb@group.calendar.example.com")
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, receipt.ID, first.UID)
	assert.Equal(t, "Mason practice", first.Summary)
	assert.Equal(t, "Mountain West", first.Location)
	assert.Equal(t, "9", first.Color)
	assert.True(t, first.Start.Equal(start))
	assert.True(t, first.End.Equal(start.Add(time.Hour)))

	info, err := os.Stat(store.pathFor("mason-bb@group.calendar.example.com"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreEventsMissingCalendar(t *testing.T) {
	store := NewStore(t.TempDir())
	events, err := store.Events("nobody")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStoreRejectsBadRequests(t *testing.T) {
	store := NewStore(t.TempDir())
	now := time.Now()

	_, err := store.WriteEvent(context.Background(), model.WriteRequest{Title: "x", Start: now, End: now.Add(time.Hour)})
	assert.Error(t, err)

	_, err = store.WriteEvent(context.Background(), model.WriteRequest{CalendarID: "fam", Title: "x", Start: now, End: now})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.WriteEvent(ctx, model.WriteRequest{CalendarID: "fam", Title: "x", Start: now, End: now.Add(time.Hour)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStorePrune(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	old := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	recent := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	for _, req := range []model.WriteRequest{
		{CalendarID: "family", Title: "Old", Start: old, End: old.Add(time.Hour)},
		{CalendarID: "family", Title: "Recent", Start: recent, End: recent.Add(time.Hour)},
		{CalendarID: "mason", Title: "Old too", Start: old, End: old.Add(time.Hour)},
	} {
		_, err := store.WriteEvent(ctx, req)
		require.NoError(t, err)
	}

	removed, err := store.Prune(ctx, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	events, err := store.Events("family")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Recent", events[0].Summary)

	events, err = store.Events("mason")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "mason-bb_group_calendar", safeName("Mason-BB@group.calendar"))
	assert.Equal(t, "calendar", safeName(""))
	assert.Len(t, safeName(strings.Repeat("a", 100)), 48)
}
