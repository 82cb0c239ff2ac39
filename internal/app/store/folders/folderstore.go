// internal/app/store/folders/folderstore.go
package folderstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/system/paging"
	"github.com/dalemusser/therapytrack/internal/app/system/txn"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrDuplicateRequest is returned by Create when the owner already has a
// folder with the same idempotency key.
var ErrDuplicateRequest = errors.New("a folder was already created for this idempotency key")

type Store struct {
	c   *mongo.Collection
	db  *mongo.Database
	log *zap.Logger
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("folders"), db: db}
}

// WithLogger sets the logger used for transaction fallbacks.
func (s *Store) WithLogger(log *zap.Logger) *Store {
	s.log = log
	return s
}

// Create inserts f. A zero ID is assigned; a preset ID is kept so callers can
// refer to the folder before it exists.
func (s *Store) Create(ctx context.Context, f models.Folder) (models.Folder, error) {
	now := time.Now().UTC()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	f.NameCI = text.Fold(f.Name)
	if f.Status == "" {
		f.Status = models.FolderActive
	}
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Folder{}, ErrDuplicateRequest
		}
		return models.Folder{}, err
	}
	return f, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Folder, error) {
	var f models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return models.Folder{}, err
	}
	return f, nil
}

// FindByIdempotencyKey returns mongo.ErrNoDocuments when the owner has no
// folder for key.
func (s *Store) FindByIdempotencyKey(ctx context.Context, ownerID primitive.ObjectID, key string) (models.Folder, error) {
	var f models.Folder
	err := s.c.FindOne(ctx, bson.M{"owner_id": ownerID, "idempotency_key": key}).Decode(&f)
	if err != nil {
		return models.Folder{}, err
	}
	return f, nil
}

// ListByOwner returns the owner's folders ordered by name. With activeOnly
// set, only folders flagged is_active are returned.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]models.Folder, error) {
	filter := bson.M{"owner_id": ownerID}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Folder
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Page is one keyset page of folders.
type Page struct {
	Folders []models.Folder
	paging.Result
}

// ListByOwnerPage returns one page of the owner's folders ordered by name_ci.
func (s *Store) ListByOwnerPage(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool, before, after string) (Page, error) {
	k := paging.NewKeyset("name_ci", before, after)

	filter := bson.M{"owner_id": ownerID}
	if activeOnly {
		filter["is_active"] = true
	}

	cur, err := s.c.Find(ctx, k.Filter(filter), k.FindOptions())
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Folder
	if err := cur.All(ctx, &rows); err != nil {
		return Page{}, err
	}

	rows, res := paging.Finish(k, rows,
		func(f models.Folder) string { return f.NameCI },
		func(f models.Folder) primitive.ObjectID { return f.ID },
	)
	return Page{Folders: rows, Result: res}, nil
}

// SetActive updates only the is_active flag of one folder.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_active":  active,
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

// ActivateExclusive clears is_active on every other folder of the owner and
// sets it on target, in one transaction where the server supports one.
// It returns the IDs that were deactivated.
func (s *Store) ActivateExclusive(ctx context.Context, ownerID, targetID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var deactivated []primitive.ObjectID
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		deactivated = deactivated[:0]

		cur, err := s.c.Find(ctx,
			bson.M{"owner_id": ownerID, "is_active": true, "_id": bson.M{"$ne": targetID}},
			options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		var ids []struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.All(ctx, &ids); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, row := range ids {
			if _, err := s.c.UpdateByID(ctx, row.ID, bson.M{"$set": bson.M{"is_active": false, "updated_at": now}}); err != nil {
				return err
			}
			deactivated = append(deactivated, row.ID)
		}

		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": targetID, "owner_id": ownerID},
			bson.M{"$set": bson.M{"is_active": true, "updated_at": now}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deactivated, nil
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

// SetCompletedCount records how many sessions of the folder are completed.
// A folder whose every session is completed moves to status completed; a
// completed folder that loses a completion moves back to active.
func (s *Store) SetCompletedCount(ctx context.Context, id primitive.ObjectID, completed int) error {
	f, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	set := bson.M{"completed_sessions": completed, "updated_at": time.Now().UTC()}
	switch {
	case f.TotalSessions > 0 && completed >= f.TotalSessions && f.Status == models.FolderActive:
		set["status"] = models.FolderCompleted
	case completed < f.TotalSessions && f.Status == models.FolderCompleted:
		set["status"] = models.FolderActive
	}
	_, err = s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	return err
}

// ListIncomplete returns folders whose creation failed and were not cleaned
// up, plus folders left in status creating since before staleBefore by a
// process that stopped mid-creation. Oldest first.
func (s *Store) ListIncomplete(ctx context.Context, staleBefore time.Time, limit int64) ([]models.Folder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"status": models.FolderIncomplete},
		bson.M{"status": models.FolderCreating, "updated_at": bson.M{"$lt": staleBefore}},
	}}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Folder
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a folder by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountActive returns how many of the owner's folders are flagged active.
func (s *Store) CountActive(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": ownerID, "is_active": true})
}

// CountIncomplete returns how many folders are waiting for repair.
func (s *Store) CountIncomplete(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": models.FolderIncomplete})
}
