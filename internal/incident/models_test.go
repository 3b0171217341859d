package incident

import (
	"testing"

	"gorm.io/datatypes"
)

func TestParentLogID_NumericShapes(t *testing.T) {
	cases := []struct {
		name   string
		meta   datatypes.JSONMap
		wantID uint64
		wantOK bool
	}{
		{"nil metadata", nil, 0, false},
		{"absent key", datatypes.JSONMap{}, 0, false},
		{"json float", datatypes.JSONMap{MetaParentLogID: float64(7)}, 7, true},
		{"int", datatypes.JSONMap{MetaParentLogID: 7}, 7, true},
		{"int64", datatypes.JSONMap{MetaParentLogID: int64(7)}, 7, true},
		{"zero", datatypes.JSONMap{MetaParentLogID: float64(0)}, 0, false},
		{"negative", datatypes.JSONMap{MetaParentLogID: float64(-3)}, 0, false},
		{"string", datatypes.JSONMap{MetaParentLogID: "7"}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := Log{Metadata: tc.meta}
			id, ok := l.ParentLogID()
			if id != tc.wantID || ok != tc.wantOK {
				t.Fatalf("got (%d, %v), want (%d, %v)", id, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestCategory_UnknownValuesPassThrough(t *testing.T) {
	l := Log{Metadata: datatypes.JSONMap{MetaCategory: "some_future_tag"}}
	if got := l.Category(); got != "some_future_tag" {
		t.Fatalf("category=%q", got)
	}

	l = Log{Metadata: datatypes.JSONMap{MetaCategory: 12}}
	if got := l.Category(); got != "" {
		t.Fatalf("non-string category should read as empty, got %q", got)
	}

	l = Log{}
	if got := l.Category(); got != "" {
		t.Fatalf("nil metadata category should be empty, got %q", got)
	}
}
