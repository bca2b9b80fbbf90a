// Package workcal answers working-hour and weekly-window questions for a
// fixed studio work week. Every function takes the evaluation instant
// explicitly; nothing reads the wall clock.
package workcal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"studiodesk/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	secondsPerDay  = 24 * 60 * 60
	secondsPerWeek = 7 * secondsPerDay
)

var Module = fx.Module("workcal", fx.Provide(FromConfig))

// Window is a weekly interval [start, end) in seconds since Sunday 00:00
// local time. end < start wraps over the week boundary.
type Window struct {
	start int
	end   int
	valid bool
}

func (w Window) contains(sec int) bool {
	if !w.valid || w.start == w.end {
		return false
	}
	if w.start < w.end {
		return sec >= w.start && sec < w.end
	}
	return sec >= w.start || sec < w.end
}

type Calendar struct {
	loc      *time.Location
	workDays [7]bool
	dayStart int
	dayEnd   int
	freeze   Window
	boost    Window
}

// New builds a Calendar and fails on any malformed field.
func New(cfg config.WorkCalendar) (*Calendar, error) {
	c, errs := build(cfg)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// FromConfig never fails. Bad fields are logged and degrade to UTC for the
// timezone and to never-matching windows, so scoring continues unfrozen and
// unboosted.
func FromConfig(cfg *config.Config) *Calendar {
	c, errs := build(cfg.WorkCalendar)
	for _, err := range errs {
		zap.L().Warn("invalid work calendar setting", zap.Error(err))
	}
	return c
}

func build(cfg config.WorkCalendar) (*Calendar, []error) {
	var errs []error
	c := &Calendar{loc: time.UTC}

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("timezone %q: %w", cfg.Timezone, err))
		} else {
			c.loc = loc
		}
	}

	for _, d := range cfg.WorkDays {
		wd, err := parseWeekday(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.workDays[wd] = true
	}

	start, errStart := parseClock(cfg.DayStart)
	end, errEnd := parseClock(cfg.DayEnd)
	switch {
	case errStart != nil || errEnd != nil:
		errs = append(errs, errors.Join(errStart, errEnd))
	case end <= start:
		errs = append(errs, fmt.Errorf("day end %s must be after day start %s", cfg.DayEnd, cfg.DayStart))
	default:
		c.dayStart, c.dayEnd = start, end
	}

	var err error
	if c.freeze, err = parseWindow(cfg.Freeze); err != nil {
		errs = append(errs, fmt.Errorf("freeze window: %w", err))
	}
	if c.boost, err = parseWindow(cfg.Boost); err != nil {
		errs = append(errs, fmt.Errorf("boost window: %w", err))
	}

	return c, errs
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// WorkingHoursBetween counts hours of [a, b) that fall inside work-day hours.
// Returns 0 when b is not after a.
func (c *Calendar) WorkingHoursBetween(a, b time.Time) float64 {
	if !b.After(a) || c.dayEnd <= c.dayStart {
		return 0
	}

	a, b = a.In(c.loc), b.In(c.loc)
	var total time.Duration

	y, m, d := a.Date()
	for day := time.Date(y, m, d, 0, 0, 0, 0, c.loc); day.Before(b); day = time.Date(y, m, d+1, 0, 0, 0, 0, c.loc) {
		y, m, d = day.Date()
		if !c.workDays[day.Weekday()] {
			continue
		}

		open := atClock(day, c.dayStart)
		closing := atClock(day, c.dayEnd)
		from, to := later(a, open), earlier(b, closing)
		if to.After(from) {
			total += to.Sub(from)
		}
	}

	return total.Hours()
}

func (c *Calendar) IsInWeeklyFreezeWindow(now time.Time) bool {
	return c.freeze.contains(c.secondOfWeek(now))
}

func (c *Calendar) IsInBoostWindow(now time.Time) bool {
	return c.boost.contains(c.secondOfWeek(now))
}

// NextFreezeEdge returns the next instant strictly after now at which the
// freeze window opens or closes, and whether it is an opening. ok is false
// when no freeze window is configured.
func (c *Calendar) NextFreezeEdge(now time.Time) (at time.Time, opening bool, ok bool) {
	if !c.freeze.valid || c.freeze.start == c.freeze.end {
		return time.Time{}, false, false
	}

	open := c.nextOccurrence(now, c.freeze.start)
	closing := c.nextOccurrence(now, c.freeze.end)
	if open.Before(closing) {
		return open, true, true
	}
	return closing, false, true
}

func (c *Calendar) nextOccurrence(now time.Time, sec int) time.Time {
	now = now.In(c.loc)
	weekday := time.Weekday(sec / secondsPerDay)
	tod := sec % secondsPerDay

	y, m, d := now.Date()
	for offset := 0; offset <= 7; offset++ {
		t := time.Date(y, m, d+offset, tod/3600, (tod%3600)/60, tod%60, 0, c.loc)
		if t.Weekday() == weekday && t.After(now) {
			return t
		}
	}
	return time.Date(y, m, d+7, tod/3600, (tod%3600)/60, tod%60, 0, c.loc)
}

func (c *Calendar) secondOfWeek(t time.Time) int {
	t = t.In(c.loc)
	return int(t.Weekday())*secondsPerDay + t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func atClock(day time.Time, sec int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, sec/3600, (sec%3600)/60, sec%60, 0, day.Location())
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

var weekdays = map[string]time.Weekday{
	"SUN": time.Sunday, "SUNDAY": time.Sunday,
	"MON": time.Monday, "MONDAY": time.Monday,
	"TUE": time.Tuesday, "TUESDAY": time.Tuesday,
	"WED": time.Wednesday, "WEDNESDAY": time.Wednesday,
	"THU": time.Thursday, "THURSDAY": time.Thursday,
	"FRI": time.Friday, "FRIDAY": time.Friday,
	"SAT": time.Saturday, "SATURDAY": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}

// parseClock accepts "HH:MM" and "24:00"; returns seconds since midnight.
func parseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return secondsPerDay, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour()*3600 + t.Minute()*60, nil
}

func parseWindow(w config.Window) (Window, error) {
	if w.StartDay == "" && w.EndDay == "" {
		return Window{}, nil
	}

	startDay, err := parseWeekday(w.StartDay)
	if err != nil {
		return Window{}, err
	}
	endDay, err := parseWeekday(w.EndDay)
	if err != nil {
		return Window{}, err
	}
	startTime, err := parseClock(w.StartTime)
	if err != nil {
		return Window{}, err
	}
	endTime, err := parseClock(w.EndTime)
	if err != nil {
		return Window{}, err
	}

	return Window{
		start: (int(startDay)*secondsPerDay + startTime) % secondsPerWeek,
		end:   (int(endDay)*secondsPerDay + endTime) % secondsPerWeek,
		valid: true,
	}, nil
}
