// Package scheduling creates a folder of recurring therapy sessions in one
// request and keeps the store consistent when part of that fails.
//
// Create runs as a saga: validate, insert the folder with status creating,
// write every session, mark the folder active, then activate it. When a
// session write fails or the request is canceled, the compensating step
// deletes everything the creation wrote. If compensation itself fails the
// folder is marked incomplete and Repair (or the background reconciler)
// finishes the cleanup later. A folder still in status creating after
// StaleAfter belongs to a process that died mid-creation and is repaired the
// same way.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	"github.com/dalemusser/therapytrack/internal/app/system/activation"
	"github.com/dalemusser/therapytrack/internal/app/system/batch"
	"github.com/dalemusser/therapytrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/therapytrack/internal/app/system/normalize"
	"github.com/dalemusser/therapytrack/internal/app/system/recurrence"
	"github.com/dalemusser/therapytrack/internal/app/system/sessionnum"
	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	MaxNameLength           = 200
	MaxDescriptionLength    = 2000
	MaxIdempotencyKeyLength = 128

	// DefaultWorkers bounds concurrent session writes when Workers is unset.
	DefaultWorkers = 8
)

// FolderStore is the folder persistence the service needs.
type FolderStore interface {
	Create(ctx context.Context, f models.Folder) (models.Folder, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Folder, error)
	FindByIdempotencyKey(ctx context.Context, ownerID primitive.ObjectID, key string) (models.Folder, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	SetCompletedCount(ctx context.Context, id primitive.ObjectID, completed int) error
	// ListIncomplete returns folders with status incomplete and folders
	// still in status creating that were last updated before staleBefore.
	ListIncomplete(ctx context.Context, staleBefore time.Time, limit int64) ([]models.Folder, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// SessionStore is the session persistence the service needs. Create is called
// once per session.
type SessionStore interface {
	Create(ctx context.Context, ts models.TherapySession) (models.TherapySession, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.TherapySession, error)
	ListCompleted(ctx context.Context, folderID primitive.ObjectID) ([]models.TherapySession, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	CountCompleted(ctx context.Context, folderID primitive.ObjectID) (int64, error)
	DeleteByCreation(ctx context.Context, creationID string) (int64, error)
}

// Activator switches the owner's active folder.
type Activator interface {
	SetActive(ctx context.Context, ownerID, targetID primitive.ObjectID) (activation.Result, error)
}

// Auditor records schedule and maintenance events. *auditlog.Logger
// implements it.
type Auditor interface {
	FolderCreated(ctx context.Context, folder models.Folder, sessions int, elapsedMS int64)
	FolderCreationFailed(ctx context.Context, folder models.Folder, kind string, written, failed, skipped int, compensated bool, reason string)
	FolderActivated(ctx context.Context, ownerID, folderID primitive.ObjectID, deactivated int, atomic bool)
	SessionStatusChanged(ctx context.Context, ts models.TherapySession, status string)
	CompensationDeferred(ctx context.Context, folder models.Folder, reason string)
	FolderRepaired(ctx context.Context, folder models.Folder, sessionsDeleted int64)
	FolderRepairFailed(ctx context.Context, folder models.Folder, reason string)
}

// TxFunc runs fn as one unit. txn.Runner provides the Mongo version.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	Folders   FolderStore
	Sessions  SessionStore
	Activator Activator
	Audit     Auditor // optional
	Log       *zap.Logger

	BatchSize int    // report batch size (batch.DefaultBatchSize when 0)
	Workers   int    // concurrent session writes (DefaultWorkers when 0)
	Tx        TxFunc // nil runs compensation without a transaction
	Now       func() time.Time

	// StaleAfter is how long a folder may stay in status creating before it
	// is treated as abandoned. Zero means timeouts.Batch() + timeouts.Medium(),
	// the longest a live creation can take including its compensation.
	StaleAfter time.Duration
}

func NewService(folders FolderStore, sessions SessionStore, activator Activator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Folders:   folders,
		Sessions:  sessions,
		Activator: activator,
		Log:       log,
	}
}

// Request is the input of Create.
type Request struct {
	OwnerID     primitive.ObjectID
	Name        string
	Description string
	// StartDate anchors week 0. Only its calendar day is used; zero means today.
	StartDate      time.Time
	Schedule       models.ScheduleSpec
	Activate       bool
	IdempotencyKey string
}

// SessionSummary is the per-session part of a creation result.
type SessionSummary struct {
	ID            primitive.ObjectID `json:"id"`
	Ordinal       int                `json:"ordinal"`
	SessionNumber string             `json:"session_number"`
	Title         string             `json:"title"`
	Date          string             `json:"date"`
	Time          string             `json:"time,omitempty"`
	Status        string             `json:"status"`
}

// Stats describes how the session writes went.
type Stats struct {
	Count           int     `json:"count"`
	ElapsedMS       int64   `json:"elapsed_ms"`
	Batches         int     `json:"batches"`
	AvgMSPerSession float64 `json:"avg_ms_per_session"`
	Workers         int     `json:"workers"`
}

// Result is a successful creation.
type Result struct {
	Folder     models.Folder      `json:"folder"`
	Sessions   []SessionSummary   `json:"sessions"`
	Stats      Stats              `json:"stats"`
	Activation *activation.Result `json:"activation,omitempty"`
	// Warnings lists tolerated problems, such as a sibling folder that could
	// not be deactivated.
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) staleAfter() time.Duration {
	if s.StaleAfter > 0 {
		return s.StaleAfter
	}
	return timeouts.Batch() + timeouts.Medium()
}

// StaleBefore is the cutoff for abandoned creations: a folder still in
// status creating that was last updated before it is repaired.
func (s *Service) StaleBefore() time.Time {
	return s.now().Add(-s.staleAfter())
}

func (s *Service) stale(f models.Folder) bool {
	return f.Status == models.FolderCreating && f.UpdatedAt.Before(s.StaleBefore())
}

func (s *Service) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

func (s *Service) tx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.Tx == nil {
		return fn(ctx)
	}
	return s.Tx(ctx, fn)
}

// Create validates req, creates the folder and all of its sessions, and
// activates the folder when asked. Nothing is written when validation fails.
func (s *Service) Create(ctx context.Context, req Request) (Result, error) {
	started := time.Now()

	req, err := s.normalize(req)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Kind: contextKind(err), Message: "request ended before any write", Err: err}
	}

	var key *string
	if req.IdempotencyKey != "" {
		prior, err := s.Folders.FindByIdempotencyKey(ctx, req.OwnerID, req.IdempotencyKey)
		switch {
		case err == nil:
			return Result{}, &Error{Kind: KindDuplicate, Message: "folder already created for this idempotency key",
				Err: folderstore.ErrDuplicateRequest, FolderID: prior.ID}
		case !errors.Is(err, mongo.ErrNoDocuments):
			return Result{}, &Error{Kind: KindPersistence, Message: "idempotency lookup failed", Err: err}
		}
		key = &req.IdempotencyKey
	}

	start := req.StartDate
	if start.IsZero() {
		start = s.now()
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	folder, err := s.Folders.Create(ctx, models.Folder{
		ID:              primitive.NewObjectID(),
		OwnerID:         req.OwnerID,
		Name:            req.Name,
		Description:     req.Description,
		IsActive:        false,
		Status:          models.FolderCreating,
		TotalSessions:   recurrence.Total(req.Schedule),
		TotalWeeks:      req.Schedule.TotalWeeks,
		SessionsPerWeek: req.Schedule.SessionsPerWeek,
		StartDate:       start,
		CreationID:      uuid.NewString(),
		IdempotencyKey:  key,
	})
	if err != nil {
		if errors.Is(err, folderstore.ErrDuplicateRequest) {
			// Lost a race with a concurrent request carrying the same key.
			e := &Error{Kind: KindDuplicate, Message: "folder already created for this idempotency key", Err: err}
			if key != nil {
				if prior, ferr := s.Folders.FindByIdempotencyKey(ctx, req.OwnerID, *key); ferr == nil {
					e.FolderID = prior.ID
				}
			}
			return Result{}, e
		}
		return Result{}, &Error{Kind: KindPersistence, Message: "failed to create folder", Err: err}
	}

	log := s.Log.With(
		zap.String("folder_id", folder.ID.Hex()),
		zap.String("owner_id", folder.OwnerID.Hex()),
		zap.String("creation_id", folder.CreationID))

	sessions := buildSessions(folder, recurrence.Generate(req.Schedule, start))

	rep := batch.Persist(ctx, batch.Persister{
		BatchSize:   s.BatchSize,
		Workers:     s.workers(),
		StopOnError: true,
		Log:         log,
	}, sessions, func(ctx context.Context, ts models.TherapySession) error {
		_, err := s.Sessions.Create(ctx, ts)
		return err
	})

	if !rep.OK() {
		return Result{}, s.fail(ctx, log, folder, rep, nil)
	}
	if err := s.Folders.SetStatus(ctx, folder.ID, models.FolderActive); err != nil {
		return Result{}, s.fail(ctx, log, folder, rep, err)
	}
	folder.Status = models.FolderActive

	res := Result{
		Folder:   folder,
		Sessions: summarize(sessions),
		Stats:    stats(rep, time.Since(started), s.workers()),
	}

	if req.Activate && s.Activator == nil {
		res.Warnings = append(res.Warnings, "activation requested but no activator is configured")
	} else if req.Activate {
		ares, err := s.Activator.SetActive(ctx, folder.OwnerID, folder.ID)
		res.Activation = &ares
		res.Warnings = append(res.Warnings, ares.Warnings()...)
		if err != nil {
			log.Warn("folder created but could not be activated", zap.Error(err))
			res.Warnings = append(res.Warnings, "folder could not be activated: "+err.Error())
		} else {
			res.Folder.IsActive = true
			if s.Audit != nil {
				s.Audit.FolderActivated(ctx, folder.OwnerID, folder.ID, len(ares.Deactivated), ares.Atomic)
			}
		}
	}

	if s.Audit != nil {
		s.Audit.FolderCreated(ctx, res.Folder, res.Stats.Count, res.Stats.ElapsedMS)
	}

	log.Info("schedule created",
		zap.Int("sessions", res.Stats.Count),
		zap.Int("batches", res.Stats.Batches),
		zap.Int64("elapsed_ms", res.Stats.ElapsedMS),
		zap.Bool("active", res.Folder.IsActive),
		zap.Int("warnings", len(res.Warnings)))

	return res, nil
}

func (s *Service) normalize(req Request) (Request, error) {
	req.Name = normalize.Name(htmlsanitize.PlainText(req.Name))
	req.Description = strings.TrimSpace(htmlsanitize.PlainText(req.Description))
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	switch {
	case req.OwnerID.IsZero():
		return req, validationErr("owner is required", nil)
	case req.Name == "":
		return req, validationErr("name is required", nil)
	case len(req.Name) > MaxNameLength:
		return req, validationErr(fmt.Sprintf("name must be at most %d characters", MaxNameLength), nil)
	case len(req.Description) > MaxDescriptionLength:
		return req, validationErr(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength), nil)
	case len(req.IdempotencyKey) > MaxIdempotencyKeyLength:
		return req, validationErr(fmt.Sprintf("idempotency key must be at most %d characters", MaxIdempotencyKeyLength), nil)
	}
	if err := recurrence.Validate(req.Schedule); err != nil {
		return req, validationErr(err.Error(), err)
	}
	return req, nil
}

func buildSessions(folder models.Folder, occ []recurrence.Occurrence) []models.TherapySession {
	out := make([]models.TherapySession, len(occ))
	for i, o := range occ {
		out[i] = models.TherapySession{
			ID:              primitive.NewObjectID(),
			FolderID:        folder.ID,
			OwnerID:         folder.OwnerID,
			Ordinal:         o.Ordinal,
			SessionNumber:   sessionnum.Encode(o.Ordinal, folder.Name),
			Date:            o.DateString(),
			Time:            o.Time,
			DurationMinutes: o.DurationMinutes,
			Title:           o.Title,
			Description:     o.Description,
			Status:          models.SessionLocked,
			IsPaid:          false,
			TherapistNotes:  nil,
			CreationID:      folder.CreationID,
		}
	}
	return out
}

func summarize(sessions []models.TherapySession) []SessionSummary {
	out := make([]SessionSummary, len(sessions))
	for i, ts := range sessions {
		out[i] = SessionSummary{
			ID:            ts.ID,
			Ordinal:       ts.Ordinal,
			SessionNumber: ts.SessionNumber,
			Title:         ts.Title,
			Date:          ts.Date,
			Time:          ts.Time,
			Status:        ts.Status,
		}
	}
	return out
}

func stats(rep batch.Report, elapsed time.Duration, workers int) Stats {
	st := Stats{
		Count:     len(rep.Created),
		ElapsedMS: elapsed.Milliseconds(),
		Batches:   rep.BatchCount(),
		Workers:   workers,
	}
	if st.Count > 0 {
		st.AvgMSPerSession = float64(elapsed.Microseconds()) / 1000 / float64(st.Count)
	}
	return st
}

// fail compensates a creation that could not finish and builds the error
// returned to the caller. finalizeErr is set when every session was written
// but the folder could not leave status creating.
func (s *Service) fail(ctx context.Context, log *zap.Logger, folder models.Folder, rep batch.Report, finalizeErr error) error {
	kind, msg := KindPersistence, "failed to create sessions"
	cause := rep.Err()
	if finalizeErr != nil {
		msg, cause = "failed to finalize folder", finalizeErr
	}
	if len(rep.Errors) == 0 && ctx.Err() != nil {
		kind = contextKind(ctx.Err())
		msg = "request canceled while creating sessions"
		if kind == KindTimeout {
			msg = "deadline exceeded while creating sessions"
		}
		cause = ctx.Err()
	}

	log.Warn("schedule creation failed; compensating",
		zap.String("kind", string(kind)),
		zap.Int("written", len(rep.Created)),
		zap.Int("failed", len(rep.Errors)),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Error(cause))

	_, cerr := s.compensate(ctx, log, folder)

	e := &Error{
		Kind:        kind,
		Message:     fmt.Sprintf("%s: %d of %d written", msg, len(rep.Created), rep.Total),
		Err:         cause,
		FolderID:    folder.ID,
		Written:     len(rep.Created),
		Failed:      len(rep.Errors),
		Skipped:     len(rep.Skipped),
		Compensated: cerr == nil,
	}
	if cerr != nil {
		e.Message += "; cleanup deferred, folder marked incomplete"
	}
	if s.Audit != nil {
		s.Audit.FolderCreationFailed(context.WithoutCancel(ctx), folder, string(kind),
			e.Written, e.Failed, e.Skipped, e.Compensated, errString(cause))
	}
	return e
}

// compensate deletes every session of the folder's creation and then the
// folder. It runs on a context detached from the caller's cancellation. When
// it fails the folder is marked incomplete so the reconciler can retry.
func (s *Service) compensate(ctx context.Context, log *zap.Logger, folder models.Folder) (int64, error) {
	cctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium(), log, "compensate schedule creation")
	defer cancel()

	var deleted int64
	err := s.tx(cctx, func(ctx context.Context) error {
		n, err := s.Sessions.DeleteByCreation(ctx, folder.CreationID)
		if err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		deleted = n
		if _, err := s.Folders.Delete(ctx, folder.ID); err != nil {
			return fmt.Errorf("delete folder: %w", err)
		}
		return nil
	})
	if err == nil {
		log.Info("compensation finished", zap.Int64("sessions_deleted", deleted))
		return deleted, nil
	}

	log.Warn("compensation failed; marking folder incomplete", zap.Error(err))
	if serr := s.Folders.SetStatus(cctx, folder.ID, models.FolderIncomplete); serr != nil && !errors.Is(serr, mongo.ErrNoDocuments) {
		log.Error("could not mark folder incomplete", zap.Error(serr))
	}
	if s.Audit != nil {
		s.Audit.CompensationDeferred(cctx, folder, err.Error())
	}
	return deleted, err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
