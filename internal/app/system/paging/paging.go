// internal/app/system/paging/paging.go
package paging

import (
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the number of rows returned by paged list endpoints.
const PageSize = 50

// LimitPlusOne returns PageSize+1 as int64. List queries fetch one
// extra document so TrimPage can tell whether another page exists.
func LimitPlusOne() int64 { return int64(PageSize + 1) }

// Result holds the output of TrimPage.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage trims a slice fetched with LimitPlusOne down to PageSize,
// in place, and reports whether pages exist on either side.
//
// Going backwards (before != ""), the extra row is the oldest one, so
// it is dropped from the front; HasNext is always true because the
// caller arrived from a later page. Going forwards, the extra row is
// dropped from the end, and HasPrev is true only when a cursor was
// supplied.
func TrimPage[T any](rows *[]T, before, after string) Result {
	orig := len(*rows)
	var res Result

	if before != "" {
		if orig > PageSize {
			*rows = (*rows)[1:]
			res.HasPrev = true
		}
		res.HasNext = true
	} else {
		if orig > PageSize {
			*rows = (*rows)[:PageSize]
			res.HasNext = true
		}
		res.HasPrev = after != ""
	}
	return res
}

// Direction indicates which way a keyset query walks the sort order.
type Direction int

const (
	Forward  Direction = iota // ascending sort, cursor bounds with $gt
	Backward                  // descending sort, cursor bounds with $lt
)

// KeysetConfig is the decoded state of one keyset-paged request.
type KeysetConfig struct {
	Direction Direction
	SortOrder int // 1 ascending, -1 descending
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset decodes the before/after cursors and picks the
// query direction. A "before" cursor wins when both are present.
func ConfigureKeyset(before, after string) KeysetConfig {
	cfg := KeysetConfig{Direction: Forward, SortOrder: 1}

	if before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(before); ok {
			cfg.Cursor = &c
		}
	} else if after != "" {
		if c, ok := wafflemongo.DecodeCursor(after); ok {
			cfg.Cursor = &c
		}
	}
	return cfg
}

// ApplyToFind sets the sort and look-ahead limit on find options.
// The _id tiebreaker keeps the order total when sort keys collide.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(LimitPlusOne())
}

// KeysetWindow returns the filter clause that bounds the query at the
// cursor position, or nil when no cursor was supplied.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Reverse restores ascending display order after a Backward fetch.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors encodes prev/next cursors from the first and last rows
// of the trimmed page.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first := rows[0]
	last := rows[len(rows)-1]
	prev = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
	next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	return prev, next
}
