package gatekit

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule presets for common assignment windows, in standard five-field
// cron syntax (minute hour day-of-month month day-of-week).
const (
	ScheduleAlways        = ""
	ScheduleBusinessHours = "* 9-17 * * 1-5"
	ScheduleWeekdays      = "* * * * 1-5"
	ScheduleWeekends      = "* * * * 0,6"
	ScheduleNightShift    = "* 22-23,0-5 * * *"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ValidateSchedule checks that a cron expression is parseable. An empty
// expression is valid and means "always active".
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return NewError(ErrInvalidSchedule, err.Error())
	}
	return nil
}

// WithinSchedule reports whether t falls inside the recurring window
// described by a cron expression. Cron describes firing instants, not
// windows, so the window is taken as the set of minutes the expression
// matches: t is inside when the next firing after the top of t's minute is
// that same minute. An empty expression is always inside.
func WithinSchedule(expr string, t time.Time) (bool, error) {
	if expr == "" {
		return true, nil
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return false, NewError(ErrInvalidSchedule, err.Error())
	}
	minute := t.Truncate(time.Minute)
	next := sched.Next(minute.Add(-time.Second))
	return next.Equal(minute), nil
}
