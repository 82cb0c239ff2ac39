package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var errWrite = errors.New("write failed")

type memFolders struct {
	mu        sync.Mutex
	rows      map[primitive.ObjectID]models.Folder
	setActErr map[primitive.ObjectID]error
	statusErr map[string]error // target status -> error
	deleteErr error
}

func newMemFolders() *memFolders {
	return &memFolders{
		rows:      map[primitive.ObjectID]models.Folder{},
		setActErr: map[primitive.ObjectID]error{},
		statusErr: map[string]error{},
	}
}

func (m *memFolders) Create(_ context.Context, f models.Folder) (models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.IdempotencyKey != nil {
		for _, r := range m.rows {
			if r.OwnerID == f.OwnerID && r.IdempotencyKey != nil && *r.IdempotencyKey == *f.IdempotencyKey {
				return models.Folder{}, folderstore.ErrDuplicateRequest
			}
		}
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	m.rows[f.ID] = f
	return f, nil
}

func (m *memFolders) GetByID(_ context.Context, id primitive.ObjectID) (models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return models.Folder{}, mongo.ErrNoDocuments
	}
	return f, nil
}

func (m *memFolders) FindByIdempotencyKey(_ context.Context, owner primitive.ObjectID, key string) (models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.OwnerID == owner && r.IdempotencyKey != nil && *r.IdempotencyKey == key {
			return r, nil
		}
	}
	return models.Folder{}, mongo.ErrNoDocuments
}

func (m *memFolders) update(id primitive.ObjectID, fn func(*models.Folder)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	fn(&f)
	m.rows[id] = f
	return nil
}

func (m *memFolders) SetStatus(_ context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	err := m.statusErr[status]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.update(id, func(f *models.Folder) {
		f.Status = status
		f.UpdatedAt = time.Now().UTC()
	})
}

func (m *memFolders) SetCompletedCount(_ context.Context, id primitive.ObjectID, n int) error {
	return m.update(id, func(f *models.Folder) { f.CompletedSessions = n })
}

func (m *memFolders) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	m.mu.Lock()
	err := m.setActErr[id]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.update(id, func(f *models.Folder) { f.IsActive = active })
}

func (m *memFolders) ListByOwner(_ context.Context, owner primitive.ObjectID, activeOnly bool) ([]models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Folder
	for _, f := range m.rows {
		if f.OwnerID == owner && (!activeOnly || f.IsActive) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFolders) CountActive(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	rows, _ := m.ListByOwner(ctx, owner, true)
	return int64(len(rows)), nil
}

func (m *memFolders) ListIncomplete(_ context.Context, staleBefore time.Time, limit int64) ([]models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Folder
	for _, f := range m.rows {
		if f.Status == models.FolderIncomplete || (f.Status == models.FolderCreating && f.UpdatedAt.Before(staleBefore)) {
			out = append(out, f)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memFolders) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

func (m *memFolders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memFolders) get(id primitive.ObjectID) (models.Folder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	return f, ok
}

type memSessions struct {
	mu        sync.Mutex
	rows      map[primitive.ObjectID]models.TherapySession
	failOn    map[int]error // ordinal -> error
	deleteErr error
	creates   int
	afterEach func(n int) // called after every successful create with the running count
}

func newMemSessions() *memSessions {
	return &memSessions{
		rows:   map[primitive.ObjectID]models.TherapySession{},
		failOn: map[int]error{},
	}
}

func (m *memSessions) Create(_ context.Context, ts models.TherapySession) (models.TherapySession, error) {
	m.mu.Lock()
	if err := m.failOn[ts.Ordinal]; err != nil {
		m.mu.Unlock()
		return models.TherapySession{}, err
	}
	m.rows[ts.ID] = ts
	m.creates++
	n := m.creates
	hook := m.afterEach
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ts, nil
}

func (m *memSessions) GetByID(_ context.Context, id primitive.ObjectID) (models.TherapySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.rows[id]
	if !ok {
		return models.TherapySession{}, mongo.ErrNoDocuments
	}
	return ts, nil
}

func (m *memSessions) byFolder(folderID primitive.ObjectID, status string) []models.TherapySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TherapySession
	for _, ts := range m.rows {
		if ts.FolderID == folderID && (status == "" || ts.Status == status) {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

func (m *memSessions) ListCompleted(_ context.Context, folderID primitive.ObjectID) ([]models.TherapySession, error) {
	return m.byFolder(folderID, models.SessionCompleted), nil
}

func (m *memSessions) SetStatus(_ context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.rows[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	ts.Status = status
	m.rows[id] = ts
	return nil
}

func (m *memSessions) CountCompleted(_ context.Context, folderID primitive.ObjectID) (int64, error) {
	return int64(len(m.byFolder(folderID, models.SessionCompleted))), nil
}

func (m *memSessions) DeleteByCreation(_ context.Context, creationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for id, ts := range m.rows {
		if ts.CreationID == creationID {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
