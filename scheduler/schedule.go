// Package scheduler drives the weekly tournament cycle: close the open match,
// then open the next one.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/movie-tournament/config"
)

// Schedule yields the next firing strictly after the given time.
// It has the same shape as river.PeriodicSchedule.
type Schedule interface {
	Next(current time.Time) time.Time
}

// WeeklySchedule fires once a week at a wall-clock time in a fixed location.
type WeeklySchedule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

func (s WeeklySchedule) Next(current time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := current.In(loc)
	days := (int(s.Weekday) - int(local.Weekday()) + 7) % 7

	// time.Date normalizes day overflow and resolves DST gaps per wall clock.
	next := time.Date(local.Year(), local.Month(), local.Day()+days, s.Hour, s.Minute, 0, 0, loc)
	if !next.After(current) {
		next = time.Date(local.Year(), local.Month(), local.Day()+days+7, s.Hour, s.Minute, 0, 0, loc)
	}
	return next
}

func (s WeeklySchedule) String() string {
	loc := "UTC"
	if s.Location != nil {
		loc = s.Location.String()
	}
	return fmt.Sprintf("%s %02d:%02d %s", s.Weekday, s.Hour, s.Minute, loc)
}

// ParseWeekday accepts English day names ("monday", "Mon") or 0-6 with Sunday as 0.
func ParseWeekday(v string) (time.Weekday, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", v)
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q, want HH:MM: %w", v, err)
	}
	return t.Hour(), t.Minute(), nil
}

// WeeklyFromConfig builds the schedule from TOURNAMENT_WEEKDAY and TOURNAMENT_TIME.
func WeeklyFromConfig(tc config.TournamentConfig) (WeeklySchedule, error) {
	weekday, err := ParseWeekday(tc.Weekday)
	if err != nil {
		return WeeklySchedule{}, fmt.Errorf("invalid TOURNAMENT_WEEKDAY: %w", err)
	}
	hour, minute, err := ParseClock(tc.Time)
	if err != nil {
		return WeeklySchedule{}, fmt.Errorf("invalid TOURNAMENT_TIME: %w", err)
	}
	return WeeklySchedule{Weekday: weekday, Hour: hour, Minute: minute, Location: tc.Timezone}, nil
}
