package lexicon

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"famcal/internal/config"
)

func TestWeekdayAndMonth(t *testing.T) {
	wd, ok := Weekday("Thurs")
	assert.True(t, ok)
	assert.Equal(t, time.Thursday, wd)

	_, ok = Weekday("someday")
	assert.False(t, ok)

	m, ok := Month("SEPT")
	assert.True(t, ok)
	assert.Equal(t, time.September, m)
}

func TestAliasesFindEarliest(t *testing.T) {
	a := NewAliases(map[string][]string{
		"family": {"family", "everyone"},
		"mason":  {"mase", "mason jr"},
		"ava":    nil,
	})

	id, ok := a.Find("ava and mason at the park")
	assert.True(t, ok)
	assert.Equal(t, "ava", id)

	id, ok = a.Find("Pickup MASE from school")
	assert.True(t, ok)
	assert.Equal(t, "mason", id)

	// Whole words only.
	_, ok = a.Find("lavalamp shopping")
	assert.False(t, ok)

	var empty *Aliases
	_, ok = empty.Find("anything")
	assert.False(t, ok)
}

func TestKeywords(t *testing.T) {
	k := NewKeywords(config.DefaultConfig().SportsKeywords)
	assert.True(t, k.AnyIn("Baseball tryouts"))
	assert.True(t, k.AnyIn("away GAME"))
	assert.False(t, k.AnyIn("gamer night"))
	assert.False(t, Keywords{}.AnyIn("game"))
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Users = []config.UserConfig{
		{ID: "Mason", Aliases: []string{"mase"}, Color: "9"},
		{ID: "ava"},
	}
	tables := FromConfig(cfg)

	id, ok := tables.Aliases.Identity("everyone")
	assert.True(t, ok)
	assert.Equal(t, "family", id)

	id, ok = tables.Aliases.Identity("Mase")
	assert.True(t, ok)
	assert.Equal(t, "mason", id)

	assert.Equal(t, "9", tables.Color("mason"))
	assert.Equal(t, "", tables.Color("ava"))
	assert.True(t, tables.Sports.AnyIn("tournament"))
}

func TestWeekdayPatternsSplit(t *testing.T) {
	full := regexp.MustCompile(`(?i)^(?:` + WeekdayFullPattern() + `)$`)
	short := regexp.MustCompile(`(?i)^(?:` + WeekdayShortPattern() + `)$`)

	assert.True(t, full.MatchString("Saturday"))
	assert.False(t, full.MatchString("sat"))
	assert.True(t, short.MatchString("sat"))
	assert.True(t, short.MatchString("Thurs"))
	assert.False(t, short.MatchString("thursday"))
}
