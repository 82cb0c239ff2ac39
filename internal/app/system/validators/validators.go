// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/therapytrack/internal/app/system/recurrence"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers that don't support collMod/validators (some DocumentDB
// versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("folders", foldersSchema())
	ensure("therapy_sessions", therapySessionsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers ---------------------- */

func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExists(err) {
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

// setValidator uses validationLevel "moderate" so documents that predate a
// schema change are not rejected on unrelated updates.
func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExists(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 48 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

// isUnsupported covers CommandNotFound (59) and NotImplemented (115).
func isUnsupported(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || ce.Code == 115) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") ||
		strings.Contains(s, "not implemented") ||
		strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

// Go ints are stored as int32 when they fit, int64 otherwise.
var intType = bson.A{"int", "long"}

func foldersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"owner_id", "name", "name_ci", "is_active", "status", "total_sessions", "creation_id"},
			"properties": bson.M{
				"owner_id":  bson.M{"bsonType": "objectId"},
				"name":      nonBlank,
				"name_ci":   nonBlank,
				"is_active": bson.M{"bsonType": "bool"},
				"status": bson.M{"enum": bson.A{
					models.FolderCreating, models.FolderActive, models.FolderCompleted, models.FolderPaused, models.FolderIncomplete,
				}},
				"total_sessions":     bson.M{"bsonType": intType, "minimum": 1, "maximum": recurrence.MaxWeeks * recurrence.MaxSessionsPerWeek},
				"completed_sessions": bson.M{"bsonType": intType, "minimum": 0},
				"total_weeks":        bson.M{"bsonType": intType, "minimum": recurrence.MinWeeks, "maximum": recurrence.MaxWeeks},
				"sessions_per_week":  bson.M{"bsonType": intType, "minimum": recurrence.MinSessionsPerWeek, "maximum": recurrence.MaxSessionsPerWeek},
				"start_date":         bson.M{"bsonType": "date"},
				"creation_id":        nonBlank,
				"idempotency_key":    bson.M{"bsonType": "string"},
			},
		},
	}
}

func therapySessionsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"folder_id", "owner_id", "ordinal", "session_number", "date", "status", "creation_id"},
			"properties": bson.M{
				"folder_id":        bson.M{"bsonType": "objectId"},
				"owner_id":         bson.M{"bsonType": "objectId"},
				"ordinal":          bson.M{"bsonType": intType, "minimum": 1},
				"session_number":   nonBlank,
				"date":             bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
				"time":             bson.M{"bsonType": "string"},
				"duration_minutes": bson.M{"bsonType": intType, "minimum": 1},
				"status": bson.M{"enum": bson.A{
					models.SessionLocked, models.SessionUnlocked, models.SessionCompleted,
				}},
				"is_paid":         bson.M{"bsonType": "bool"},
				"therapist_notes": bson.M{"bsonType": bson.A{"string", "null"}},
				"creation_id":     nonBlank,
			},
		},
	}
}
