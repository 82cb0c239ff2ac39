// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventReader reads audit events. *audit.Store implements it.
type EventReader interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
	GetFailedCreations(ctx context.Context, since time.Time, limit int64) ([]audit.Event, error)
}

type Handler struct {
	Events EventReader
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given event store and logger.
func NewHandler(events EventReader, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Log:    logger,
	}
}
