package ics

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"famcal/internal/config"
	appLog "famcal/internal/log"
	"famcal/internal/model"
)

const propertyColor = ical.ComponentProperty("COLOR")

const productID = "-//famcal//intake//EN"

// Store writes routed events into one iCalendar file per calendar ID.
// Calendar apps can subscribe to the files directly.
type Store struct {
	dir string
	now func() time.Time

	// mu serializes read-modify-write cycles on the calendar files.
	mu sync.Mutex
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	if dir == "" {
		// Caller should set this explicitly; we fallback to a relative dir
		// so that development runs without root permissions.
		dir = "./var/calendars"
	}
	return &Store{dir: dir, now: time.Now}
}

// WriteEvent appends one VEVENT to the calendar's file, creating the file
// on first use.
func (s *Store) WriteEvent(ctx context.Context, req model.WriteRequest) (model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, err
	}
	if req.CalendarID == "" {
		return model.Receipt{}, errors.New("calendar ID is empty")
	}
	if !req.End.After(req.Start) {
		return model.Receipt{}, fmt.Errorf("event end %s is not after start %s", req.End, req.Start)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.pathFor(req.CalendarID)
	cal, err := s.load(path)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("load calendar %q: %w", req.CalendarID, err)
	}

	uid := uuid.NewString()
	now := s.now().UTC()

	ev := cal.AddEvent(uid)
	ev.SetCreatedTime(now)
	ev.SetDtStampTime(now)
	ev.SetModifiedAt(now)
	ev.SetSummary(req.Title)
	if req.Location != "" {
		ev.SetLocation(req.Location)
	}
	ev.SetStartAt(req.Start)
	ev.SetEndAt(req.End)
	if req.ColorHint != "" {
		ev.SetProperty(propertyColor, req.ColorHint)
	}

	if err := config.WriteFileAtomic(path, []byte(cal.Serialize()), ".famcal-ics-*.tmp"); err != nil {
		return model.Receipt{}, fmt.Errorf("save calendar %q: %w", req.CalendarID, err)
	}

	appLog.Debug("ics event written", "calendar", req.CalendarID, "uid", uid, "path", path)
	return model.Receipt{ID: uid, Link: "file://" + path + "#" + uid}, nil
}

// Events returns every stored event of one calendar.
func (s *Store) Events(calendarID string) ([]ParsedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := os.ReadFile(s.pathFor(calendarID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return ParseICS(calendarID, body)
}

// Prune removes events that ended before the cutoff from every calendar
// file and reports how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.ics"))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := s.prunePath(path, before)
		if err != nil {
			appLog.Error("ics prune failed", err, "path", path)
			continue
		}
		removed += n
	}
	return removed, nil
}

func (s *Store) prunePath(path string, before time.Time) (int, error) {
	cal, err := s.load(path)
	if err != nil {
		return 0, err
	}

	kept := cal.Components[:0]
	removed := 0
	for _, comp := range cal.Components {
		if ve, ok := comp.(*ical.VEvent); ok {
			if end, err := ve.GetEndAt(); err == nil && end.Before(before) {
				removed++
				continue
			}
		}
		kept = append(kept, comp)
	}
	cal.Components = kept

	if removed == 0 {
		return 0, nil
	}
	if err := config.WriteFileAtomic(path, []byte(cal.Serialize()), ".famcal-ics-*.tmp"); err != nil {
		return 0, err
	}
	return removed, nil
}

// load reads a calendar file, or starts a new calendar if none exists yet.
func (s *Store) load(path string) (*ical.Calendar, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cal := ical.NewCalendar()
			cal.SetMethod(ical.MethodPublish)
			cal.SetProductId(productID)
			return cal, nil
		}
		return nil, err
	}
	return ical.ParseCalendar(bytes.NewReader(body))
}

// pathFor maps a calendar ID to a file name. IDs are often email-like, so
// the readable part is sanitized and a short hash keeps names unique.
func (s *Store) pathFor(calendarID string) string {
	sum := sha256.Sum256([]byte(calendarID))
	return filepath.Join(s.dir, safeName(calendarID)+"-"+hex.EncodeToString(sum[:4])+".ics")
}

func safeName(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= 48 {
			break
		}
	}
	if b.Len() == 0 {
		return "calendar"
	}
	return b.String()
}
