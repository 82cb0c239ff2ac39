// Package recurrence expands a weekly ScheduleSpec into dated occurrences.
//
// Generation is pure: the same spec, anchor date, and folder name always
// produce the same ordered list. Nothing here touches the database.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/therapytrack/internal/domain/models"
)

// Limits for a schedule spec.
const (
	MinWeeks           = 1
	MaxWeeks           = 52
	MinSessionsPerWeek = 1
	MaxSessionsPerWeek = 7
)

// DateLayout is the calendar-day format stored on sessions.
const DateLayout = "2006-01-02"

var (
	ErrInvalidWeeks           = errors.New("total weeks must be between 1 and 52")
	ErrInvalidSessionsPerWeek = errors.New("sessions per week must be between 1 and 7")
	ErrNoTemplates            = errors.New("at least one session template is required")
	ErrInvalidWeekday         = errors.New("invalid day of week")
	ErrInvalidDuration        = errors.New("duration must be greater than zero minutes")
	ErrInvalidTime            = errors.New("time must be in HH:MM form")
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday maps a weekday name (short or long, any case) to time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return d, nil
}

// Validate checks a spec before anything is written.
// Templates beyond SessionsPerWeek are ignored by Generate but still validated.
func Validate(spec models.ScheduleSpec) error {
	if spec.TotalWeeks < MinWeeks || spec.TotalWeeks > MaxWeeks {
		return fmt.Errorf("%w (got %d)", ErrInvalidWeeks, spec.TotalWeeks)
	}
	if spec.SessionsPerWeek < MinSessionsPerWeek || spec.SessionsPerWeek > MaxSessionsPerWeek {
		return fmt.Errorf("%w (got %d)", ErrInvalidSessionsPerWeek, spec.SessionsPerWeek)
	}
	if len(spec.SessionTemplates) == 0 {
		return ErrNoTemplates
	}
	for i, t := range spec.SessionTemplates {
		if _, err := ParseWeekday(t.DayOfWeek); err != nil {
			return fmt.Errorf("template %d: %w", i+1, err)
		}
		if t.DurationMinutes <= 0 {
			return fmt.Errorf("template %d: %w", i+1, ErrInvalidDuration)
		}
		if t.Time != "" {
			if _, err := time.Parse("15:04", t.Time); err != nil {
				return fmt.Errorf("template %d: %w (got %q)", i+1, ErrInvalidTime, t.Time)
			}
		}
	}
	return nil
}

// Total returns the number of occurrences a spec produces.
func Total(spec models.ScheduleSpec) int {
	return spec.TotalWeeks * spec.SessionsPerWeek
}

// Occurrence is one generated session before numbering and persistence.
type Occurrence struct {
	Ordinal         int
	Date            time.Time
	Time            string
	DurationMinutes int
	Title           string
	Description     string
}

// DateString returns the occurrence date as YYYY-MM-DD.
func (o Occurrence) DateString() string {
	return o.Date.Format(DateLayout)
}

// Generate expands spec into TotalWeeks × SessionsPerWeek occurrences with
// ordinals 1..N in generation order.
//
// Each week's base day is anchor + 7·week. A slot's date is the base day shifted
// by (template weekday − base weekday), which may be negative. That means an
// occurrence can land before its week's base day, and in week 0 before the
// anchor itself. Existing data depends on this rule; do not replace it with a
// "next matching weekday" search.
//
// Generate assumes spec has passed Validate. A template with an unknown
// weekday is treated as falling on the base day.
func Generate(spec models.ScheduleSpec, anchor time.Time) []Occurrence {
	total := Total(spec)
	if total <= 0 || len(spec.SessionTemplates) == 0 {
		return nil
	}
	anchor = day(anchor)

	out := make([]Occurrence, 0, total)
	for week := 0; week < spec.TotalWeeks; week++ {
		base := anchor.AddDate(0, 0, week*7)
		for slot := 0; slot < spec.SessionsPerWeek; slot++ {
			tmpl := spec.SessionTemplates[0]
			if slot < len(spec.SessionTemplates) {
				tmpl = spec.SessionTemplates[slot]
			}
			ordinal := week*spec.SessionsPerWeek + slot + 1

			target, err := ParseWeekday(tmpl.DayOfWeek)
			if err != nil {
				target = base.Weekday()
			}
			delta := int(target) - int(base.Weekday())

			out = append(out, Occurrence{
				Ordinal:         ordinal,
				Date:            base.AddDate(0, 0, delta),
				Time:            tmpl.Time,
				DurationMinutes: tmpl.DurationMinutes,
				Title:           fmt.Sprintf("Session %d", ordinal),
				Description:     fmt.Sprintf("Session %d of %d", ordinal, total),
			})
		}
	}
	return out
}

// day truncates t to midnight of its local calendar day.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
