package folderstore_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	"github.com/dalemusser/therapytrack/internal/app/system/indexes"
	"github.com/dalemusser/therapytrack/internal/app/system/paging"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"github.com/dalemusser/therapytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	preset := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Folder{
		ID:            preset,
		OwnerID:       primitive.NewObjectID(),
		Name:          "Spring Block",
		TotalSessions: 8,
		CreationID:    "c-1",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != preset {
		t.Errorf("ID = %v, want preset %v", created.ID, preset)
	}
	if created.NameCI == "" || created.Status != models.FolderActive || created.CreatedAt.IsZero() {
		t.Errorf("defaults not applied: %+v", created)
	}

	got, err := store.GetByID(ctx, preset)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Spring Block" || got.TotalSessions != 8 {
		t.Errorf("GetByID = %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("GetByID(missing) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_IdempotencyKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	owner := primitive.NewObjectID()
	key := "req-1"
	first, err := store.Create(ctx, models.Folder{OwnerID: owner, Name: "A", CreationID: "c1", IdempotencyKey: &key})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = store.Create(ctx, models.Folder{OwnerID: owner, Name: "B", CreationID: "c2", IdempotencyKey: &key})
	if !errors.Is(err, folderstore.ErrDuplicateRequest) {
		t.Errorf("second Create error = %v, want ErrDuplicateRequest", err)
	}

	found, err := store.FindByIdempotencyKey(ctx, owner, key)
	if err != nil || found.ID != first.ID {
		t.Errorf("FindByIdempotencyKey = %v, %v; want %v", found.ID, err, first.ID)
	}
	if _, err := store.FindByIdempotencyKey(ctx, owner, "other"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("FindByIdempotencyKey(other) error = %v", err)
	}
}

func TestStore_ActivateExclusive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	fixtures.CreateFolder(ctx, owner, "A", true, 4)
	fixtures.CreateFolder(ctx, owner, "B", true, 4)
	target := fixtures.CreateFolder(ctx, owner, "C", false, 4)
	other := fixtures.CreateFolder(ctx, primitive.NewObjectID(), "D", true, 4)

	ids, err := store.ActivateExclusive(ctx, owner, target.ID)
	if err != nil {
		t.Fatalf("ActivateExclusive failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("deactivated %d folders, want 2", len(ids))
	}

	active, err := store.ListByOwner(ctx, owner, true)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != target.ID {
		t.Errorf("active = %+v, want only target", active)
	}
	if n, _ := store.CountActive(ctx, owner); n != 1 {
		t.Errorf("CountActive = %d, want 1", n)
	}
	if f, _ := store.GetByID(ctx, other.ID); !f.IsActive {
		t.Error("other owner's folder was deactivated")
	}

	if _, err := store.ActivateExclusive(ctx, owner, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("ActivateExclusive(missing) error = %v, want ErrNoDocuments", err)
	}
}

func TestStore_SetActiveAndStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f := fixtures.CreateFolder(ctx, primitive.NewObjectID(), "A", true, 2)

	if err := store.SetActive(ctx, f.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if err := store.SetStatus(ctx, f.ID, models.FolderIncomplete); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ := store.GetByID(ctx, f.ID)
	if got.IsActive || got.Status != models.FolderIncomplete {
		t.Errorf("folder = %+v", got)
	}

	incomplete, err := store.ListIncomplete(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil || len(incomplete) != 1 {
		t.Errorf("ListIncomplete = %d, %v; want 1", len(incomplete), err)
	}
	if n, _ := store.CountIncomplete(ctx); n != 1 {
		t.Errorf("CountIncomplete = %d, want 1", n)
	}

	if err := store.SetActive(ctx, primitive.NewObjectID(), true); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("SetActive(missing) error = %v", err)
	}

	n, err := store.Delete(ctx, f.ID)
	if err != nil || n != 1 {
		t.Errorf("Delete = %d, %v; want 1", n, err)
	}
}

func TestStore_ListIncomplete_StaleCreating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pending, err := store.Create(ctx, models.Folder{
		OwnerID:       primitive.NewObjectID(),
		Name:          "In Flight",
		Status:        models.FolderCreating,
		TotalSessions: 4,
		CreationID:    "c-pending",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// A creation younger than the cutoff is still in progress.
	got, err := store.ListIncomplete(ctx, pending.UpdatedAt.Add(-time.Minute), 10)
	if err != nil || len(got) != 0 {
		t.Errorf("ListIncomplete(recent) = %d, %v; want none", len(got), err)
	}

	got, err = store.ListIncomplete(ctx, pending.UpdatedAt.Add(time.Second), 10)
	if err != nil || len(got) != 1 || got[0].ID != pending.ID {
		t.Errorf("ListIncomplete(stale) = %+v, %v; want the creating folder", got, err)
	}

	// Finished creations are never listed.
	if err := store.SetStatus(ctx, pending.ID, models.FolderActive); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ = store.ListIncomplete(ctx, time.Now().Add(time.Hour), 10)
	if len(got) != 0 {
		t.Errorf("ListIncomplete after activation = %d, want 0", len(got))
	}
}

func TestStore_SetCompletedCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	f := fixtures.CreateFolder(ctx, primitive.NewObjectID(), "A", true, 2)

	if err := store.SetCompletedCount(ctx, f.ID, 2); err != nil {
		t.Fatalf("SetCompletedCount failed: %v", err)
	}
	got, _ := store.GetByID(ctx, f.ID)
	if got.CompletedSessions != 2 || got.Status != models.FolderCompleted {
		t.Errorf("after full completion: %+v", got)
	}

	if err := store.SetCompletedCount(ctx, f.ID, 1); err != nil {
		t.Fatalf("SetCompletedCount failed: %v", err)
	}
	got, _ = store.GetByID(ctx, f.ID)
	if got.CompletedSessions != 1 || got.Status != models.FolderActive {
		t.Errorf("after reopening: %+v", got)
	}
}

func TestStore_ListByOwnerPage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := folderstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	for i := 0; i < paging.PageSize+5; i++ {
		fixtures.CreateFolder(ctx, owner, fmt.Sprintf("Folder %03d", i), false, 1)
	}

	first, err := store.ListByOwnerPage(ctx, owner, false, "", "")
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if len(first.Folders) != paging.PageSize || !first.HasNext || first.HasPrev {
		t.Fatalf("first page: %d rows, HasNext=%v, HasPrev=%v", len(first.Folders), first.HasNext, first.HasPrev)
	}
	if first.Folders[0].Name != "Folder 000" {
		t.Errorf("first row = %q, want Folder 000", first.Folders[0].Name)
	}

	second, err := store.ListByOwnerPage(ctx, owner, false, "", first.NextCursor)
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(second.Folders) != 5 || second.HasNext || !second.HasPrev {
		t.Fatalf("second page: %d rows, HasNext=%v, HasPrev=%v", len(second.Folders), second.HasNext, second.HasPrev)
	}

	back, err := store.ListByOwnerPage(ctx, owner, false, second.PrevCursor, "")
	if err != nil {
		t.Fatalf("previous page failed: %v", err)
	}
	if len(back.Folders) != paging.PageSize || back.Folders[0].Name != "Folder 000" {
		t.Errorf("previous page: %d rows starting %q", len(back.Folders), back.Folders[0].Name)
	}
}
