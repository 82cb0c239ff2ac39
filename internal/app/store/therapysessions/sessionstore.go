// internal/app/store/therapysessions/sessionstore.go
package therapysessionstore

import (
	"context"
	"time"

	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("therapy_sessions")}
}

// Create inserts one session. The schedule persister calls it once per
// session and records each outcome separately.
func (s *Store) Create(ctx context.Context, ts models.TherapySession) (models.TherapySession, error) {
	now := time.Now().UTC()
	if ts.ID.IsZero() {
		ts.ID = primitive.NewObjectID()
	}
	if ts.Status == "" {
		ts.Status = models.SessionLocked
	}
	ts.CreatedAt = now
	ts.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ts); err != nil {
		return models.TherapySession{}, err
	}
	return ts, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TherapySession, error) {
	var ts models.TherapySession
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ts); err != nil {
		return models.TherapySession{}, err
	}
	return ts, nil
}

// ListByFolder returns the folder's sessions in ordinal order.
func (s *Store) ListByFolder(ctx context.Context, folderID primitive.ObjectID) ([]models.TherapySession, error) {
	return s.find(ctx, bson.M{"folder_id": folderID})
}

// ListCompleted returns the folder's completed sessions in ordinal order.
func (s *Store) ListCompleted(ctx context.Context, folderID primitive.ObjectID) ([]models.TherapySession, error) {
	return s.find(ctx, bson.M{"folder_id": folderID, "status": models.SessionCompleted})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.TherapySession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ordinal", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TherapySession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountCompleted returns the number of completed sessions in a folder.
func (s *Store) CountCompleted(ctx context.Context, folderID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"folder_id": folderID, "status": models.SessionCompleted})
}

// DeleteByCreation removes every session written by one creation.
// Returns the number of documents deleted.
func (s *Store) DeleteByCreation(ctx context.Context, creationID string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"creation_id": creationID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

