package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/system/sessionnum"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateFolder inserts an active-status folder for owner with the given
// capacity. Returns the stored folder.
func (f *Fixtures) CreateFolder(ctx context.Context, ownerID primitive.ObjectID, name string, isActive bool, total int) models.Folder {
	f.t.Helper()

	now := time.Now().UTC()
	folder := models.Folder{
		ID:              primitive.NewObjectID(),
		OwnerID:         ownerID,
		Name:            name,
		NameCI:          text.Fold(name),
		IsActive:        isActive,
		Status:          models.FolderActive,
		TotalSessions:   total,
		TotalWeeks:      total,
		SessionsPerWeek: 1,
		StartDate:       now.Truncate(24 * time.Hour),
		CreationID:      uuid.NewString(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("folders").InsertOne(ctx, folder); err != nil {
		f.t.Fatalf("failed to create test folder: %v", err)
	}
	return folder
}

// CreateSession inserts one session at ordinal in folder with the given status.
func (f *Fixtures) CreateSession(ctx context.Context, folder models.Folder, ordinal int, status string) models.TherapySession {
	f.t.Helper()

	now := time.Now().UTC()
	ts := models.TherapySession{
		ID:              primitive.NewObjectID(),
		FolderID:        folder.ID,
		OwnerID:         folder.OwnerID,
		Ordinal:         ordinal,
		SessionNumber:   sessionnum.Encode(ordinal, folder.Name),
		Date:            now.AddDate(0, 0, 7*(ordinal-1)).Format("2006-01-02"),
		Time:            "16:00",
		DurationMinutes: 50,
		Title:           "Session",
		Status:          status,
		CreationID:      folder.CreationID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("therapy_sessions").InsertOne(ctx, ts); err != nil {
		f.t.Fatalf("failed to create test session: %v", err)
	}
	return ts
}
