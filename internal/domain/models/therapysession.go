// internal/domain/models/therapysession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session statuses.
const (
	SessionLocked    = "locked"
	SessionUnlocked  = "unlocked"
	SessionCompleted = "completed"
)

// TherapySession is one dated occurrence inside a Folder.
//
// Ordinal is the authoritative 1-based position within the folder.
// SessionNumber keeps the legacy "<ordinal> - <folder name>" form for readers
// that still key on it; readers should prefer Ordinal when it is set.
type TherapySession struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FolderID primitive.ObjectID `bson:"folder_id" json:"folder_id"`
	OwnerID  primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	Ordinal       int    `bson:"ordinal" json:"ordinal"`
	SessionNumber string `bson:"session_number" json:"session_number"`

	Date            string `bson:"date" json:"date"` // YYYY-MM-DD, local calendar day
	Time            string `bson:"time,omitempty" json:"time,omitempty"`
	DurationMinutes int    `bson:"duration_minutes" json:"duration_minutes"`
	Title           string `bson:"title" json:"title"`
	Description     string `bson:"description" json:"description"`

	Status         string  `bson:"status" json:"status"` // locked | unlocked | completed
	IsPaid         bool    `bson:"is_paid" json:"is_paid"`
	TherapistNotes *string `bson:"therapist_notes" json:"therapist_notes"`

	CreationID string `bson:"creation_id" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
