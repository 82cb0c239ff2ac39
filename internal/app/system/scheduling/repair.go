package scheduling

import (
	"context"

	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RepairResult reports the cleanup of one incomplete folder.
type RepairResult struct {
	FolderID        primitive.ObjectID `json:"folder_id"`
	SessionsDeleted int64              `json:"sessions_deleted"`
}

// Repair finishes the cleanup of a folder whose creation failed and whose
// compensation could not complete. Only folders with status incomplete, or
// stuck in status creating for longer than StaleAfter, are touched.
func (s *Service) Repair(ctx context.Context, folderID primitive.ObjectID) (RepairResult, error) {
	f, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return RepairResult{}, err
	}
	if f.Status != models.FolderIncomplete && !s.stale(f) {
		return RepairResult{}, &Error{Kind: KindConflict, Message: "only incomplete folders can be repaired", Err: ErrNotIncomplete, FolderID: folderID}
	}

	log := s.Log.With(
		zap.String("folder_id", f.ID.Hex()),
		zap.String("creation_id", f.CreationID))

	n, err := s.compensate(ctx, log, f)
	if err != nil {
		if s.Audit != nil {
			s.Audit.FolderRepairFailed(ctx, f, err.Error())
		}
		return RepairResult{FolderID: folderID, SessionsDeleted: n}, &Error{Kind: KindPersistence, Message: "repair failed", Err: err, FolderID: folderID}
	}
	if s.Audit != nil {
		s.Audit.FolderRepaired(ctx, f, n)
	}
	return RepairResult{FolderID: folderID, SessionsDeleted: n}, nil
}

// SweepResult summarizes one RepairIncomplete pass.
type SweepResult struct {
	Found    int `json:"found"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// RepairIncomplete repairs up to limit incomplete or abandoned folders,
// oldest first.
// Per-folder failures are logged and counted; the error is non-nil only when
// the folders could not be listed.
func (s *Service) RepairIncomplete(ctx context.Context, limit int64) (SweepResult, error) {
	folders, err := s.Folders.ListIncomplete(ctx, s.StaleBefore(), limit)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Found: len(folders)}
	for _, f := range folders {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Repair(ctx, f.ID); err != nil {
			res.Failed++
			s.Log.Warn("repair incomplete folder failed",
				zap.String("folder_id", f.ID.Hex()),
				zap.Error(err))
			continue
		}
		res.Repaired++
	}
	return res, ctx.Err()
}
