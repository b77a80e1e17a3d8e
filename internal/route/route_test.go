package route

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/config"
	"famcal/internal/model"
)

func TestRoute(t *testing.T) {
	reg := NewRegistry(map[string]string{
		"family":         "fam-cal",
		"mason":          "mason-cal",
		"mason-baseball": "mason-bb-cal",
		"ava":            "ava-cal",
		"ava-baseball":   "ava-bb-cal",
	}, []string{"Mason"})

	tests := []struct {
		name     string
		person   string
		category model.Category
		want     string
	}{
		{"person only", "mason", model.CategoryNone, "mason-cal"},
		{"sports override", "mason", model.CategorySports, "mason-bb-cal"},
		{"override needs sports flag", "ava", model.CategorySports, "ava-cal"},
		{"unknown person falls back", "grandma", model.CategoryNone, "fam-cal"},
		{"unknown person sports falls back", "grandma", model.CategorySports, "fam-cal"},
		{"family", "family", model.CategorySports, "fam-cal"},
		{"case insensitive", "MASON", model.CategoryNone, "mason-cal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Route(tt.person, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouteSportsWithoutSubCalendar(t *testing.T) {
	reg := NewRegistry(map[string]string{"family": "fam", "mason": "m"}, []string{"mason"})
	got, err := reg.Route("mason", model.CategorySports)
	require.NoError(t, err)
	assert.Equal(t, "m", got)
}

func TestRouteFailsClosed(t *testing.T) {
	reg := NewRegistry(map[string]string{"mason-baseball": "mb"}, []string{"mason"})

	_, err := reg.Route("mason", model.CategorySports)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "mason", cfgErr.Person)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Users = []config.UserConfig{{ID: "mason", SportsCalendar: true}, {ID: "ava"}}
	cfg.Calendars = map[string]string{
		"family":         "fam",
		"mason":          "m",
		"mason-baseball": "mb",
		"ava":            "a",
		"ava-baseball":   "ab",
		"empty":          "",
	}
	reg := FromConfig(cfg)
	assert.Equal(t, 5, reg.Len())

	got, err := reg.Route("mason", model.CategorySports)
	require.NoError(t, err)
	assert.Equal(t, "mb", got)

	got, err = reg.Route("ava", model.CategorySports)
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}
