// internal/app/features/folders/handler.go
package folders

import (
	"context"
	"time"

	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	"github.com/dalemusser/therapytrack/internal/app/system/activation"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Scheduler is the schedule service surface used by the handlers.
// *scheduling.Service implements it.
type Scheduler interface {
	Create(ctx context.Context, req scheduling.Request) (scheduling.Result, error)
	Repair(ctx context.Context, folderID primitive.ObjectID) (scheduling.RepairResult, error)
	Milestones(ctx context.Context, folderID primitive.ObjectID) (scheduling.MilestoneView, error)
	SetSessionStatus(ctx context.Context, sessionID primitive.ObjectID, status string) (models.TherapySession, error)
}

// FolderReader reads folders. *folderstore.Store implements it.
type FolderReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Folder, error)
	ListByOwnerPage(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool, before, after string) (folderstore.Page, error)
}

// SessionReader reads sessions. *therapysessionstore.Store implements it.
type SessionReader interface {
	ListByFolder(ctx context.Context, folderID primitive.ObjectID) ([]models.TherapySession, error)
}

// Activator switches the owner's active folder. *activation.Manager implements it.
type Activator interface {
	SetActive(ctx context.Context, ownerID, targetID primitive.ObjectID) (activation.Result, error)
}

// CreateLimiter throttles folder creation per owner. *ratelimit.Limiter
// implements it.
type CreateLimiter interface {
	Allow(key string) bool
	Remaining(key string) int
	RetryAfter(key string) time.Duration
}

// Handler is the shared dependency container for the folders feature.
type Handler struct {
	Scheduler Scheduler
	Folders   FolderReader
	Sessions  SessionReader
	Activator Activator
	Limiter   CreateLimiter // optional; nil disables throttling
	Log       *zap.Logger
}

// NewHandler constructs a folders Handler. It is called from the bootstrap
// BuildHandler function once stores and services exist.
func NewHandler(s Scheduler, folders FolderReader, sessions SessionReader, act Activator, logger *zap.Logger) *Handler {
	return &Handler{
		Scheduler: s,
		Folders:   folders,
		Sessions:  sessions,
		Activator: act,
		Log:       logger,
	}
}
