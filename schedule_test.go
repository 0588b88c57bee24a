package gatekit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestValidateSchedule tests cron expression validation
func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("* * * * *"))
	assert.NoError(t, ValidateSchedule(ScheduleBusinessHours))
	assert.NoError(t, ValidateSchedule(ScheduleWeekdays))
	assert.NoError(t, ValidateSchedule(ScheduleWeekends))
	assert.NoError(t, ValidateSchedule(ScheduleNightShift))

	err := ValidateSchedule("not a cron")
	assert.Error(t, err)
	assert.True(t, IsInvalidSchedule(err))

	// Six fields (with seconds) are rejected, this is a five-field parser.
	assert.Error(t, ValidateSchedule("0 * * * * *"))
}

// TestWithinSchedule tests window membership at concrete instants
func TestWithinSchedule(t *testing.T) {
	// Monday 2025-06-16.
	monday10 := time.Date(2025, 6, 16, 10, 30, 45, 0, time.UTC)
	monday20 := time.Date(2025, 6, 16, 20, 0, 0, 0, time.UTC)
	// Sunday 2025-06-15.
	sunday10 := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		expr string
		at   time.Time
		want bool
	}{
		{"empty is always inside", "", sunday10, true},
		{"every minute", "* * * * *", monday20, true},
		{"business hours weekday morning", ScheduleBusinessHours, monday10, true},
		{"business hours weekday evening", ScheduleBusinessHours, monday20, false},
		{"business hours sunday", ScheduleBusinessHours, sunday10, false},
		{"weekdays on monday", ScheduleWeekdays, monday10, true},
		{"weekdays on sunday", ScheduleWeekdays, sunday10, false},
		{"weekends on sunday", ScheduleWeekends, sunday10, true},
		{"weekends on monday", ScheduleWeekends, monday10, false},
		{"night shift at 20", ScheduleNightShift, monday20, false},
		{"night shift at 23", ScheduleNightShift, time.Date(2025, 6, 16, 23, 15, 0, 0, time.UTC), true},
		{"night shift at 3", ScheduleNightShift, time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := WithinSchedule(tc.expr, tc.at)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestWithinScheduleInvalidExpression tests the error path
func TestWithinScheduleInvalidExpression(t *testing.T) {
	_, err := WithinSchedule("garbage", time.Now())
	assert.Error(t, err)
	assert.True(t, IsInvalidSchedule(err))
}

// TestWithinScheduleHourBoundaries tests inclusive cron hour ranges: 9-17
// covers 09:00 through 17:59
func TestWithinScheduleHourBoundaries(t *testing.T) {
	day := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC) // Monday

	in, err := WithinSchedule(ScheduleBusinessHours, day.Add(9*time.Hour))
	assert.NoError(t, err)
	assert.True(t, in)

	in, err = WithinSchedule(ScheduleBusinessHours, day.Add(17*time.Hour+59*time.Minute))
	assert.NoError(t, err)
	assert.True(t, in)

	in, err = WithinSchedule(ScheduleBusinessHours, day.Add(18*time.Hour))
	assert.NoError(t, err)
	assert.False(t, in)

	in, err = WithinSchedule(ScheduleBusinessHours, day.Add(8*time.Hour+59*time.Minute))
	assert.NoError(t, err)
	assert.False(t, in)
}

// TestScheduledAssignmentActivation tests that a cron schedule gates an
// assignment during checks. The fixture clock is a Sunday at noon.
func TestScheduledAssignmentActivation(t *testing.T) {
	build := func(cron string, now time.Time) *Snapshot {
		return newSnapshotBuilder().
			at(now).
			class("c1", "node").
			entity("e", "c1", nil).
			role("r-viewer", "viewer", 10, "read").
			assignScheduled("u1", "r-viewer", strPtr("e"), cron).
			build()
	}

	sundayNoon := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mondayNoon := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)

	assert.False(t, build(ScheduleBusinessHours, sundayNoon).CheckPermission("u1", "e", "read", "").Allowed)
	assert.True(t, build(ScheduleBusinessHours, mondayNoon).CheckPermission("u1", "e", "read", "").Allowed)
	assert.True(t, build(ScheduleWeekends, sundayNoon).CheckPermission("u1", "e", "read", "").Allowed)
}

// TestInvalidScheduleMakesAssignmentInactive tests the fail-closed handling
// of an unparseable stored expression
func TestInvalidScheduleMakesAssignmentInactive(t *testing.T) {
	snap := newSnapshotBuilder().
		class("c1", "node").
		entity("e", "c1", nil).
		role("r-viewer", "viewer", 10, "read").
		assignScheduled("u1", "r-viewer", strPtr("e"), "bogus cron").
		build()

	assert.False(t, snap.CheckPermission("u1", "e", "read", "").Allowed)
}
