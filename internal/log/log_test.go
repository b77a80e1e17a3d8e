package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" Warn "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelError)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Info("hidden line", "k", "v")
	assert.Empty(t, buf.String())

	Error("write failed", errors.New("disk full"), "calendar", "family")
	out := buf.String()
	assert.Contains(t, out, "write failed")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "calendar=family")
}

func TestWarnPassesWarnLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Info("hidden line")
	Warn("sms throttled", "from", "+18015550100")
	out := buf.String()
	assert.NotContains(t, out, "hidden line")
	assert.Contains(t, out, "sms throttled")
	assert.Contains(t, out, "from=+18015550100")
}
