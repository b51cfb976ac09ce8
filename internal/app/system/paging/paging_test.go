package paging

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTrimPage(t *testing.T) {
	tests := []struct {
		name     string
		rows     []int
		before   string
		after    string
		wantLen  int
		wantPrev bool
		wantNext bool
	}{
		{
			name:    "first page, no extra row",
			rows:    []int{1, 2, 3},
			wantLen: 3,
		},
		{
			name:     "first page, extra row means next exists",
			rows:     make([]int, PageSize+1),
			wantLen:  PageSize,
			wantNext: true,
		},
		{
			name:     "forward with extra row",
			rows:     make([]int, PageSize+1),
			after:    "c1",
			wantLen:  PageSize,
			wantPrev: true,
			wantNext: true,
		},
		{
			name:     "forward, last page",
			rows:     []int{1, 2},
			after:    "c1",
			wantLen:  2,
			wantPrev: true,
		},
		{
			name:     "backward with extra row",
			rows:     make([]int, PageSize+1),
			before:   "c1",
			wantLen:  PageSize,
			wantPrev: true,
			wantNext: true,
		},
		{
			name:     "backward, reached first page",
			rows:     []int{1, 2},
			before:   "c1",
			wantLen:  2,
			wantNext: true,
		},
		{
			name:    "empty result",
			rows:    []int{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]int, len(tt.rows))
			copy(rows, tt.rows)

			got := TrimPage(&rows, tt.before, tt.after)

			if len(rows) != tt.wantLen {
				t.Errorf("TrimPage() rows len = %d, want %d", len(rows), tt.wantLen)
			}
			if got.HasPrev != tt.wantPrev {
				t.Errorf("TrimPage() HasPrev = %v, want %v", got.HasPrev, tt.wantPrev)
			}
			if got.HasNext != tt.wantNext {
				t.Errorf("TrimPage() HasNext = %v, want %v", got.HasNext, tt.wantNext)
			}
		})
	}
}

func TestTrimPage_DropsFromFrontWhenBackward(t *testing.T) {
	rows := make([]int, 0, PageSize+1)
	for i := 0; i < PageSize+1; i++ {
		rows = append(rows, i)
	}

	TrimPage(&rows, "c1", "")

	if rows[0] != 1 {
		t.Errorf("backward trim kept first element %d, want 1", rows[0])
	}
}

func TestConfigureKeyset(t *testing.T) {
	tests := []struct {
		name      string
		before    string
		after     string
		wantDir   Direction
		wantOrder int
	}{
		{name: "first page", wantDir: Forward, wantOrder: 1},
		{name: "after cursor walks forward", after: "c1", wantDir: Forward, wantOrder: 1},
		{name: "before cursor walks backward", before: "c1", wantDir: Backward, wantOrder: -1},
		{name: "before wins over after", before: "c1", after: "c2", wantDir: Backward, wantOrder: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfigureKeyset(tt.before, tt.after)
			if got.Direction != tt.wantDir {
				t.Errorf("ConfigureKeyset() Direction = %v, want %v", got.Direction, tt.wantDir)
			}
			if got.SortOrder != tt.wantOrder {
				t.Errorf("ConfigureKeyset() SortOrder = %v, want %v", got.SortOrder, tt.wantOrder)
			}
		})
	}
}

func TestKeysetWindow_NilWithoutCursor(t *testing.T) {
	cfg := ConfigureKeyset("", "")
	if ks := cfg.KeysetWindow("name_ci"); ks != nil {
		t.Errorf("KeysetWindow() = %v, want nil", ks)
	}
}

func TestReverse(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{"empty", []int{}, []int{}},
		{"single", []int{1}, []int{1}},
		{"even", []int{1, 2, 3, 4}, []int{4, 3, 2, 1}},
		{"odd", []int{1, 2, 3}, []int{3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]int, len(tt.input))
			copy(rows, tt.input)
			Reverse(rows)
			for i, v := range rows {
				if v != tt.want[i] {
					t.Errorf("Reverse() got %v, want %v", rows, tt.want)
					break
				}
			}
		})
	}
}

func TestBuildCursors(t *testing.T) {
	type item struct {
		Key string
		ID  primitive.ObjectID
	}
	keyFn := func(i item) string { return i.Key }
	idFn := func(i item) primitive.ObjectID { return i.ID }

	t.Run("empty rows", func(t *testing.T) {
		prev, next := BuildCursors([]item{}, keyFn, idFn)
		if prev != "" || next != "" {
			t.Errorf("BuildCursors(empty) = (%q, %q), want empty strings", prev, next)
		}
	})

	t.Run("single row", func(t *testing.T) {
		rows := []item{{Key: "alpha", ID: primitive.NewObjectID()}}
		prev, next := BuildCursors(rows, keyFn, idFn)
		if prev == "" || next == "" {
			t.Error("BuildCursors(single) returned an empty cursor")
		}
		if prev != next {
			t.Error("BuildCursors(single) prev and next should match")
		}
	})

	t.Run("multiple rows", func(t *testing.T) {
		rows := []item{
			{Key: "alpha", ID: primitive.NewObjectID()},
			{Key: "bravo", ID: primitive.NewObjectID()},
			{Key: "charlie", ID: primitive.NewObjectID()},
		}
		prev, next := BuildCursors(rows, keyFn, idFn)
		if prev == next {
			t.Error("BuildCursors(multiple) prev and next should differ")
		}
	})
}
