// Package paging implements keyset pagination over a case-folded sort key
// with _id as the tie breaker. Cursors are WAFFLE mongo cursors.
package paging

import (
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the number of rows returned per page.
const PageSize = 25

// Keyset describes one page request on Field. A before cursor walks toward
// the start of the list and wins over after.
type Keyset struct {
	Field    string
	Backward bool
	cursor   *wafflemongo.Cursor
	after    bool
}

// NewKeyset decodes the request cursors. Malformed cursors are ignored and
// yield the first page.
func NewKeyset(field, before, after string) Keyset {
	k := Keyset{Field: field}
	switch {
	case before != "":
		k.Backward = true
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			k.cursor = &c
		}
	case after != "":
		k.after = true
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			k.cursor = &c
		}
	}
	return k
}

// Filter adds the cursor window to base and returns it.
func (k Keyset) Filter(base bson.M) bson.M {
	if base == nil {
		base = bson.M{}
	}
	if k.cursor == nil {
		return base
	}
	dir := "gt"
	if k.Backward {
		dir = "lt"
	}
	for key, v := range wafflemongo.KeysetWindow(k.Field, dir, k.cursor.CI, k.cursor.ID) {
		base[key] = v
	}
	return base
}

// FindOptions sorts on (Field, _id) in walk order and fetches one row past
// the page to detect a neighbour.
func (k Keyset) FindOptions() *options.FindOptions {
	order := 1
	if k.Backward {
		order = -1
	}
	return options.Find().
		SetSort(bson.D{{Key: k.Field, Value: order}, {Key: "_id", Value: order}}).
		SetLimit(int64(PageSize + 1))
}

// Result reports neighbouring pages and the cursors that reach them.
type Result struct {
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
	PrevCursor string `json:"prev_cursor,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Finish puts rows fetched with k into display order, drops the look-ahead
// row, and builds cursors from the first and last remaining rows.
func Finish[T any](k Keyset, rows []T, key func(T) string, id func(T) primitive.ObjectID) ([]T, Result) {
	var res Result
	extra := len(rows) > PageSize

	if k.Backward {
		reverse(rows)
		if extra {
			rows = rows[1:]
			res.HasPrev = true
		}
		res.HasNext = true
	} else {
		if extra {
			rows = rows[:PageSize]
			res.HasNext = true
		}
		res.HasPrev = k.after
	}

	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		res.PrevCursor = wafflemongo.EncodeCursor(key(first), id(first))
		res.NextCursor = wafflemongo.EncodeCursor(key(last), id(last))
	}
	return rows, res
}

func reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
