// Package milestones derives the middle and final milestone sessions of a
// folder and whether each has been reached.
//
// Nothing here is cached or persisted. Callers pass the current sessions on
// every read, so reopening a completed milestone session flips it back.
package milestones

import (
	"github.com/dalemusser/therapytrack/internal/app/system/sessionnum"
	"github.com/dalemusser/therapytrack/internal/domain/models"
)

// Milestones holds the ordinals that unlock rewards.
type Milestones struct {
	Middle int `json:"middle"`
	Final  int `json:"final"`
}

// For computes milestones for a folder with total sessions.
// Totals of 1 or less collapse both milestones onto total.
func For(total int) Milestones {
	if total <= 1 {
		return Milestones{Middle: total, Final: total}
	}
	return Milestones{
		Middle: (total-1)/2 + 1,
		Final:  total,
	}
}

// IsSatisfied reports whether any completed session decodes to ordinal.
// Sessions in other statuses are ignored.
func IsSatisfied(ordinal int, sessions []models.TherapySession) bool {
	if ordinal <= 0 {
		return false
	}
	for _, s := range sessions {
		if s.Status != models.SessionCompleted {
			continue
		}
		if sessionnum.Ordinal(s) == ordinal {
			return true
		}
	}
	return false
}

// Status is the resolved milestone state of one folder.
type Status struct {
	Milestones
	MiddleSatisfied bool `json:"middle_satisfied"`
	FinalSatisfied  bool `json:"final_satisfied"`
}

// Resolve computes milestones for total and checks both against sessions.
func Resolve(total int, sessions []models.TherapySession) Status {
	m := For(total)
	return Status{
		Milestones:      m,
		MiddleSatisfied: IsSatisfied(m.Middle, sessions),
		FinalSatisfied:  IsSatisfied(m.Final, sessions),
	}
}
