// internal/domain/models/folder.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Folder statuses.
const (
	FolderCreating   = "creating" // sessions are still being written
	FolderActive     = "active"
	FolderCompleted  = "completed"
	FolderPaused     = "paused"
	FolderIncomplete = "incomplete" // creation failed and cleanup has not finished
)

// Folder groups the recurring therapy sessions of one student.
//
// NOTE:
//   - At most one folder per owner should have IsActive=true. Activation is
//     enforced by the activation manager, not by a unique index.
//   - TotalSessions is the declared capacity (weeks × sessions per week).
//     It is set once at creation and is not a live count of session documents.
//   - CreationID tags every session written by the creation that produced this
//     folder so a failed creation can be cleaned up precisely.
type Folder struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	IsActive bool   `bson:"is_active" json:"is_active"`
	Status   string `bson:"status" json:"status"` // active | completed | paused | incomplete

	TotalSessions     int `bson:"total_sessions" json:"total_sessions"`
	CompletedSessions int `bson:"completed_sessions" json:"completed_sessions"`
	TotalWeeks        int `bson:"total_weeks" json:"total_weeks"`
	SessionsPerWeek   int `bson:"sessions_per_week" json:"sessions_per_week"`

	StartDate time.Time `bson:"start_date" json:"start_date"`

	CreationID     string  `bson:"creation_id" json:"creation_id"`
	IdempotencyKey *string `bson:"idempotency_key,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
