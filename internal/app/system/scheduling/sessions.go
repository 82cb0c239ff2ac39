package scheduling

import (
	"context"
	"errors"

	"github.com/dalemusser/therapytrack/internal/app/system/milestones"
	"github.com/dalemusser/therapytrack/internal/app/system/normalize"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MilestoneView is the milestone state of one folder.
type MilestoneView struct {
	FolderID      primitive.ObjectID `json:"folder_id"`
	TotalSessions int                `json:"total_sessions"`
	Completed     int                `json:"completed"`
	milestones.Status
}

// Milestones loads a folder's completed sessions and resolves its middle and
// final milestones. Nothing is cached: a session reopened after completion
// unsatisfies its milestone on the next read.
func (s *Service) Milestones(ctx context.Context, folderID primitive.ObjectID) (MilestoneView, error) {
	f, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return MilestoneView{}, err
	}
	completed, err := s.Sessions.ListCompleted(ctx, folderID)
	if err != nil {
		return MilestoneView{}, &Error{Kind: KindPersistence, Message: "failed to load sessions", Err: err, FolderID: folderID}
	}
	return MilestoneView{
		FolderID:      folderID,
		TotalSessions: f.TotalSessions,
		Completed:     len(completed),
		Status:        milestones.Resolve(f.TotalSessions, completed),
	}, nil
}

// SetSessionStatus changes one session's status and refreshes the folder's
// completed count.
func (s *Service) SetSessionStatus(ctx context.Context, sessionID primitive.ObjectID, status string) (models.TherapySession, error) {
	status = normalize.Status(status)
	switch status {
	case models.SessionLocked, models.SessionUnlocked, models.SessionCompleted:
	default:
		return models.TherapySession{}, validationErr("status must be one of locked, unlocked, completed", nil)
	}

	if err := s.Sessions.SetStatus(ctx, sessionID, status); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.TherapySession{}, &Error{Kind: KindNotFound, Message: "session not found", Err: ErrSessionNotFound}
		}
		return models.TherapySession{}, &Error{Kind: KindPersistence, Message: "failed to update session", Err: err}
	}
	ts, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return models.TherapySession{}, &Error{Kind: KindPersistence, Message: "failed to reload session", Err: err}
	}

	if s.Audit != nil {
		s.Audit.SessionStatusChanged(ctx, ts, status)
	}

	n, err := s.Sessions.CountCompleted(ctx, ts.FolderID)
	if err == nil {
		err = s.Folders.SetCompletedCount(ctx, ts.FolderID, int(n))
	}
	if err != nil {
		// The session itself is updated; the counter is refreshed on the next change.
		s.Log.Warn("failed to refresh folder completed count",
			zap.String("folder_id", ts.FolderID.Hex()),
			zap.Error(err))
	}
	return ts, nil
}

func (s *Service) loadFolder(ctx context.Context, id primitive.ObjectID) (models.Folder, error) {
	f, err := s.Folders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Folder{}, &Error{Kind: KindNotFound, Message: "folder not found", Err: ErrFolderNotFound, FolderID: id}
		}
		return models.Folder{}, &Error{Kind: KindPersistence, Message: "failed to load folder", Err: err, FolderID: id}
	}
	return f, nil
}
