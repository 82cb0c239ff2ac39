package paging

import (
	"reflect"
	"testing"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type row struct {
	key string
	id  primitive.ObjectID
}

func rowsN(n int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{key: string(rune('a' + i%26)), id: primitive.NewObjectID()}
	}
	return out
}

func keyOf(r row) string           { return r.key }
func idOf(r row) primitive.ObjectID { return r.id }

func TestNewKeyset(t *testing.T) {
	cur := wafflemongo.EncodeCursor("spring", primitive.NewObjectID())

	if k := NewKeyset("name_ci", "", ""); k.Backward || k.cursor != nil || k.after {
		t.Errorf("first page: %+v", k)
	}
	if k := NewKeyset("name_ci", "", cur); k.Backward || k.cursor == nil || !k.after {
		t.Errorf("after: %+v", k)
	}
	if k := NewKeyset("name_ci", cur, cur); !k.Backward || k.cursor == nil {
		t.Errorf("before should win: %+v", k)
	}
	if k := NewKeyset("name_ci", "", "%%%"); k.cursor != nil {
		t.Errorf("malformed cursor should be ignored: %+v", k)
	}
}

func TestFilter(t *testing.T) {
	owner := primitive.NewObjectID()

	k := NewKeyset("name_ci", "", "")
	got := k.Filter(bson.M{"owner_id": owner})
	if !reflect.DeepEqual(got, bson.M{"owner_id": owner}) {
		t.Errorf("no cursor should leave filter unchanged, got %v", got)
	}
	if k.Filter(nil) == nil {
		t.Error("nil base should become an empty filter")
	}

	id := primitive.NewObjectID()
	after := NewKeyset("name_ci", "", wafflemongo.EncodeCursor("spring", id))
	got = after.Filter(bson.M{"owner_id": owner})
	want := bson.M{"owner_id": owner}
	for key, v := range wafflemongo.KeysetWindow("name_ci", "gt", "spring", id) {
		want[key] = v
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after filter = %v, want %v", got, want)
	}
}

func TestFindOptions(t *testing.T) {
	fwd := NewKeyset("name_ci", "", "").FindOptions()
	if *fwd.Limit != PageSize+1 {
		t.Errorf("limit = %d", *fwd.Limit)
	}
	if !reflect.DeepEqual(fwd.Sort, bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}) {
		t.Errorf("forward sort = %v", fwd.Sort)
	}

	cur := wafflemongo.EncodeCursor("x", primitive.NewObjectID())
	back := NewKeyset("name_ci", cur, "").FindOptions()
	if !reflect.DeepEqual(back.Sort, bson.D{{Key: "name_ci", Value: -1}, {Key: "_id", Value: -1}}) {
		t.Errorf("backward sort = %v", back.Sort)
	}
}

func TestFinish(t *testing.T) {
	cur := wafflemongo.EncodeCursor("m", primitive.NewObjectID())

	tests := []struct {
		name     string
		k        Keyset
		n        int
		wantLen  int
		wantPrev bool
		wantNext bool
	}{
		{"short first page", NewKeyset("f", "", ""), 3, 3, false, false},
		{"full first page", NewKeyset("f", "", ""), PageSize + 1, PageSize, false, true},
		{"last page after cursor", NewKeyset("f", "", cur), 4, 4, true, false},
		{"middle page after cursor", NewKeyset("f", "", cur), PageSize + 1, PageSize, true, true},
		{"backward to first page", NewKeyset("f", cur, ""), 5, 5, false, true},
		{"backward with older rows", NewKeyset("f", cur, ""), PageSize + 1, PageSize, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, res := Finish(tt.k, rowsN(tt.n), keyOf, idOf)
			if len(rows) != tt.wantLen || res.HasPrev != tt.wantPrev || res.HasNext != tt.wantNext {
				t.Errorf("len=%d prev=%v next=%v, want len=%d prev=%v next=%v",
					len(rows), res.HasPrev, res.HasNext, tt.wantLen, tt.wantPrev, tt.wantNext)
			}
			if res.PrevCursor == "" || res.NextCursor == "" {
				t.Error("expected cursors for a non-empty page")
			}
		})
	}
}

func TestFinish_BackwardRestoresOrder(t *testing.T) {
	// Rows arrive newest first when walking backward; the extra row is the
	// oldest and must be the one dropped.
	fetched := rowsN(PageSize + 1)
	reverse(fetched)
	oldest := fetched[len(fetched)-1]

	cur := wafflemongo.EncodeCursor("z", primitive.NewObjectID())
	rows, res := Finish(NewKeyset("f", cur, ""), fetched, keyOf, idOf)

	if rows[0].id == oldest.id {
		t.Error("look-ahead row should have been dropped")
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].key >= rows[i].key {
			t.Fatalf("rows not in ascending order at %d: %q > %q", i, rows[i-1].key, rows[i].key)
		}
	}
	if res.PrevCursor != wafflemongo.EncodeCursor(rows[0].key, rows[0].id) {
		t.Error("prev cursor should point at the first displayed row")
	}
}

func TestFinish_Empty(t *testing.T) {
	rows, res := Finish(NewKeyset("f", "", ""), []row(nil), keyOf, idOf)
	if len(rows) != 0 || res.PrevCursor != "" || res.NextCursor != "" || res.HasNext {
		t.Errorf("empty page: rows=%v res=%+v", rows, res)
	}
}
