package intake

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "famcal/internal/log"
)

// dateHints carries the outcome of the three date extractors. At most one
// is set because the date group stops at the first match.
type dateHints struct {
	explicit found[monthDay]
	weekday  found[time.Weekday]
	relative found[int]
}

// resolveDate turns the hints into one calendar date at midnight in the
// zone of today. Precedence: explicit date, weekday name, relative day,
// then today itself.
func resolveDate(h dateHints, today time.Time) time.Time {
	switch {
	case h.explicit.OK:
		return resolveExplicit(h.explicit.Value, today)
	case h.weekday.OK:
		return nextWeekday(h.weekday.Value, today)
	case h.relative.OK:
		return addDays(today, h.relative.Value)
	default:
		return today
	}
}

// resolveExplicit places a month/day in the current year, rolling forward
// to the next year that has the date once it is already in the past.
func resolveExplicit(md monthDay, today time.Time) time.Time {
	loc := today.Location()
	if md.Year != 0 {
		return time.Date(md.Year, md.Month, md.Day, 0, 0, 0, 0, loc)
	}
	// Feb 29 may need several years to come round again.
	for year := today.Year(); year <= today.Year()+8; year++ {
		if md.Day > daysIn(year, md.Month) {
			continue
		}
		d := time.Date(year, md.Month, md.Day, 0, 0, 0, 0, loc)
		if !d.Before(today) {
			return d
		}
	}
	return today
}

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// nextWeekday returns the first day strictly after today that falls on wd,
// so naming today's weekday means one week out.
func nextWeekday(wd time.Weekday, today time.Time) time.Time {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[wd]},
		Dtstart:   addDays(today, 1),
		Count:     1,
	})
	if err == nil {
		if occ := r.All(); len(occ) > 0 {
			o := occ[0].In(today.Location())
			return time.Date(o.Year(), o.Month(), o.Day(), 0, 0, 0, 0, today.Location())
		}
	} else {
		appLog.Error("weekday rrule failed; using day arithmetic", err, "weekday", wd.String())
	}

	delta := int(wd) - int(today.Weekday())
	if delta <= 0 {
		delta += 7
	}
	return addDays(today, delta)
}

func addDays(d time.Time, n int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day()+n, 0, 0, 0, 0, d.Location())
}

// midnight truncates t to the start of its day in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
