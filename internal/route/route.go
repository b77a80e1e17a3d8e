package route

import (
	"fmt"
	"strings"

	"famcal/internal/config"
	"famcal/internal/model"
)

// SportsSuffix is appended to a person key to find their sports calendar.
const SportsSuffix = "-baseball"

// ConfigurationError reports that no calendar is configured for a routing
// key, including the family fallback. Nothing is written when it occurs.
type ConfigurationError struct {
	Person   string
	Category model.Category
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no calendar configured for %q (family fallback also missing)", e.Person)
}

// Registry maps routing keys to calendar identifiers. It is immutable once
// built and safe for concurrent use.
type Registry struct {
	calendars map[string]string
	sports    map[string]bool
}

// NewRegistry copies calendars and the set of persons owning a dedicated
// sports calendar.
func NewRegistry(calendars map[string]string, sportsPersons []string) *Registry {
	r := &Registry{
		calendars: make(map[string]string, len(calendars)),
		sports:    make(map[string]bool, len(sportsPersons)),
	}
	for k, v := range calendars {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && v != "" {
			r.calendars[k] = v
		}
	}
	for _, p := range sportsPersons {
		r.sports[strings.ToLower(strings.TrimSpace(p))] = true
	}
	return r
}

// FromConfig builds the registry from calendars and users' sports flags.
func FromConfig(cfg *config.Config) *Registry {
	var sports []string
	for _, u := range cfg.Users {
		if u.SportsCalendar {
			sports = append(sports, u.ID)
		}
	}
	return NewRegistry(cfg.Calendars, sports)
}

// Route picks the calendar for a (person, category) routing key.
func (r *Registry) Route(person string, category model.Category) (string, error) {
	person = strings.ToLower(person)

	id, ok := r.calendars[person]
	if !ok {
		id, ok = r.calendars[model.FamilyPerson]
	}
	if !ok {
		return "", &ConfigurationError{Person: person, Category: category}
	}

	if category == model.CategorySports && r.sports[person] {
		if sub, ok := r.calendars[person+SportsSuffix]; ok {
			return sub, nil
		}
	}
	return id, nil
}

// Len returns the number of configured calendars, for startup logging.
func (r *Registry) Len() int { return len(r.calendars) }
