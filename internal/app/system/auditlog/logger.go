// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Schedule controls logging for folder creation, activation and session status events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Schedule string
	// Maintenance controls logging for compensation and repair events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Maintenance string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.OwnerID != nil {
		fields = append(fields, zap.String("owner_id", event.OwnerID.Hex()))
	}
	if event.FolderID != nil {
		fields = append(fields, zap.String("folder_id", event.FolderID.Hex()))
	}
	if event.CreationID != "" {
		fields = append(fields, zap.String("creation_id", event.CreationID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategorySchedule:
		setting = l.config.Schedule
	case audit.CategoryMaintenance:
		setting = l.config.Maintenance
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Schedule Events ---

// FolderCreated logs a creation whose folder and sessions were all written.
func (l *Logger) FolderCreated(ctx context.Context, folder models.Folder, sessions int, elapsedMS int64) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategorySchedule,
		EventType:  audit.EventFolderCreated,
		OwnerID:    &folder.OwnerID,
		FolderID:   &folder.ID,
		CreationID: folder.CreationID,
		Success:    true,
		Details: map[string]string{
			"name":       folder.Name,
			"sessions":   strconv.Itoa(sessions),
			"elapsed_ms": strconv.FormatInt(elapsedMS, 10),
		},
	})
}

// FolderCreationFailed logs a creation that was rolled back or left for repair.
func (l *Logger) FolderCreationFailed(ctx context.Context, folder models.Folder, kind string, written, failed, skipped int, compensated bool, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategorySchedule,
		EventType:     audit.EventFolderCreationFailed,
		OwnerID:       &folder.OwnerID,
		FolderID:      &folder.ID,
		CreationID:    folder.CreationID,
		Success:       false,
		FailureReason: reason,
		Details: map[string]string{
			"kind":        kind,
			"written":     strconv.Itoa(written),
			"failed":      strconv.Itoa(failed),
			"skipped":     strconv.Itoa(skipped),
			"compensated": strconv.FormatBool(compensated),
		},
	})
}

// FolderActivated logs a folder becoming the owner's active folder.
func (l *Logger) FolderActivated(ctx context.Context, ownerID, folderID primitive.ObjectID, deactivated int, atomic bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySchedule,
		EventType: audit.EventFolderActivated,
		OwnerID:   &ownerID,
		FolderID:  &folderID,
		Success:   true,
		Details: map[string]string{
			"deactivated": strconv.Itoa(deactivated),
			"atomic":      strconv.FormatBool(atomic),
		},
	})
}

// SessionStatusChanged logs a session moving to a new status.
func (l *Logger) SessionStatusChanged(ctx context.Context, ts models.TherapySession, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySchedule,
		EventType: audit.EventSessionStatusChanged,
		OwnerID:   &ts.OwnerID,
		FolderID:  &ts.FolderID,
		Success:   true,
		Details: map[string]string{
			"session_id": ts.ID.Hex(),
			"ordinal":    strconv.Itoa(ts.Ordinal),
			"status":     status,
		},
	})
}

// --- Maintenance Events ---

// CompensationDeferred logs a failed cleanup that left the folder incomplete.
func (l *Logger) CompensationDeferred(ctx context.Context, folder models.Folder, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryMaintenance,
		EventType:     audit.EventCompensationDeferred,
		OwnerID:       &folder.OwnerID,
		FolderID:      &folder.ID,
		CreationID:    folder.CreationID,
		Success:       false,
		FailureReason: reason,
	})
}

// FolderRepaired logs the removal of an incomplete folder and its sessions.
func (l *Logger) FolderRepaired(ctx context.Context, folder models.Folder, sessionsDeleted int64) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryMaintenance,
		EventType:  audit.EventFolderRepaired,
		OwnerID:    &folder.OwnerID,
		FolderID:   &folder.ID,
		CreationID: folder.CreationID,
		Success:    true,
		Details: map[string]string{
			"sessions_deleted": strconv.FormatInt(sessionsDeleted, 10),
		},
	})
}

// FolderRepairFailed logs a repair attempt that could not finish.
func (l *Logger) FolderRepairFailed(ctx context.Context, folder models.Folder, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryMaintenance,
		EventType:     audit.EventFolderRepairFailed,
		OwnerID:       &folder.OwnerID,
		FolderID:      &folder.ID,
		CreationID:    folder.CreationID,
		Success:       false,
		FailureReason: reason,
	})
}
