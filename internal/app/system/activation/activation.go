// Package activation keeps at most one folder per owner flagged active.
package activation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// FolderStore is the part of the folder store the manager needs.
type FolderStore interface {
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID, activeOnly bool) ([]models.Folder, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// ExclusiveActivator is implemented by stores that can switch the active
// folder of an owner in one atomic step.
type ExclusiveActivator interface {
	ActivateExclusive(ctx context.Context, ownerID, targetID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// ActiveCounter is implemented by stores that can count active folders.
// When available, the manager checks exclusivity after activating.
type ActiveCounter interface {
	CountActive(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
}

// Failure is one sibling that could not be deactivated.
type Failure struct {
	FolderID primitive.ObjectID `json:"folder_id"`
	Err      error              `json:"-"`
	Message  string             `json:"message"`
}

// Result describes what an activation changed.
type Result struct {
	Deactivated []primitive.ObjectID `json:"deactivated"`
	Failures    []Failure            `json:"failures,omitempty"`
	// ListErr is set when the active siblings could not be read at all.
	ListErr error `json:"-"`
	// Atomic is true when the store switched the active folder in one step.
	Atomic bool `json:"atomic"`
	// ExclusivityViolated is true when more than one folder of the owner is
	// still active after the activation.
	ExclusivityViolated bool `json:"exclusivity_violated"`
}

// OK reports whether every sibling was deactivated.
func (r Result) OK() bool {
	return r.ListErr == nil && len(r.Failures) == 0 && !r.ExclusivityViolated
}

// Warnings returns human-readable descriptions of everything that went wrong.
func (r Result) Warnings() []string {
	var out []string
	if r.ListErr != nil {
		out = append(out, "could not list active folders: "+r.ListErr.Error())
	}
	for _, f := range r.Failures {
		out = append(out, fmt.Sprintf("could not deactivate folder %s: %s", f.FolderID.Hex(), f.Message))
	}
	if r.ExclusivityViolated {
		out = append(out, "more than one folder is active for this owner")
	}
	return out
}

type Manager struct {
	store FolderStore
	log   *zap.Logger
}

func NewManager(store FolderStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log}
}

// Activate deactivates every active folder of ownerID other than targetID.
// Each sibling is updated on its own; a failed update is recorded and the
// loop continues. Activate never returns an error: callers inspect Result.
//
// The read-then-update sequence is not atomic. Two concurrent calls for the
// same owner can both see no active siblings; use SetActive where the store
// supports ExclusiveActivator.
func (m *Manager) Activate(ctx context.Context, ownerID, targetID primitive.ObjectID) Result {
	var res Result

	active, err := m.store.ListByOwner(ctx, ownerID, true)
	if err != nil {
		res.ListErr = err
		m.log.Warn("activation: list active folders failed",
			zap.String("owner_id", ownerID.Hex()),
			zap.Error(err))
		return res
	}

	for _, f := range active {
		if f.ID == targetID {
			continue
		}
		if err := m.store.SetActive(ctx, f.ID, false); err != nil {
			res.Failures = append(res.Failures, Failure{FolderID: f.ID, Err: err, Message: err.Error()})
			m.log.Warn("activation: deactivate sibling failed",
				zap.String("owner_id", ownerID.Hex()),
				zap.String("folder_id", f.ID.Hex()),
				zap.Error(err))
			continue
		}
		res.Deactivated = append(res.Deactivated, f.ID)
	}
	return res
}

// SetActive makes targetID the owner's only active folder.
//
// With an ExclusiveActivator store the switch is one transaction. If that
// fails for any reason other than a missing target, the per-sibling path of
// Activate is used instead. The returned error is non-nil only when the
// target itself could not be activated.
func (m *Manager) SetActive(ctx context.Context, ownerID, targetID primitive.ObjectID) (Result, error) {
	var res Result

	if ex, ok := m.store.(ExclusiveActivator); ok {
		ids, err := ex.ActivateExclusive(ctx, ownerID, targetID)
		switch {
		case err == nil:
			res = Result{Deactivated: ids, Atomic: true}
			m.checkExclusive(ctx, ownerID, &res)
			return res, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			return res, fmt.Errorf("activate folder %s: %w", targetID.Hex(), err)
		default:
			m.log.Warn("activation: exclusive switch failed; falling back to per-folder updates",
				zap.String("owner_id", ownerID.Hex()),
				zap.String("folder_id", targetID.Hex()),
				zap.Error(err))
		}
	}

	res = m.Activate(ctx, ownerID, targetID)
	if err := m.store.SetActive(ctx, targetID, true); err != nil {
		return res, fmt.Errorf("activate folder %s: %w", targetID.Hex(), err)
	}
	m.checkExclusive(ctx, ownerID, &res)
	return res, nil
}

func (m *Manager) checkExclusive(ctx context.Context, ownerID primitive.ObjectID, res *Result) {
	counter, ok := m.store.(ActiveCounter)
	if !ok {
		return
	}
	n, err := counter.CountActive(ctx, ownerID)
	if err != nil {
		m.log.Warn("activation: count active folders failed",
			zap.String("owner_id", ownerID.Hex()),
			zap.Error(err))
		return
	}
	if n > 1 {
		res.ExclusivityViolated = true
		m.log.Warn("activation: owner has more than one active folder",
			zap.String("owner_id", ownerID.Hex()),
			zap.Int64("active", n))
	}
}
