// internal/domain/models/schedule.go
package models

// SessionTemplate describes one weekly slot of a recurring schedule.
// DayOfWeek is a weekday name ("sun".."sat" or the full English name).
type SessionTemplate struct {
	DayOfWeek       string `json:"day_of_week" yaml:"day_of_week"`
	Time            string `json:"time" yaml:"time"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
}

// ScheduleSpec is the compact recurrence input: TotalWeeks weeks with
// SessionsPerWeek sessions each. It is never persisted.
//
// When fewer templates than SessionsPerWeek are given, the first template
// fills the remaining slots.
type ScheduleSpec struct {
	TotalWeeks       int               `json:"total_weeks" yaml:"total_weeks"`
	SessionsPerWeek  int               `json:"sessions_per_week" yaml:"sessions_per_week"`
	SessionTemplates []SessionTemplate `json:"session_templates" yaml:"session_templates"`
}
