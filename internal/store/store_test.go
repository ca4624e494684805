package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_CloneIsShallow(t *testing.T) {
	trail := []any{"open"}
	doc := Document{IDField: "abc", "title": "A", "trail": trail}

	cp := doc.Clone()
	delete(cp, IDField)
	cp["title"] = "B"

	assert.Equal(t, "abc", doc[IDField])
	assert.Equal(t, "A", doc["title"])
	assert.Equal(t, trail, cp["trail"])
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"all", All, false},
		{"eq", Eq("date", "2024-01-01"), false},
		{"nested", Lt("meta.date", "2024-01-01"), false},
		{"injection", Eq("date') OR 1=1 --", "x"), true},
		{"dollar", Eq("$where", "x"), true},
		{"bad op", Filter{Field: "date", Op: "regex", Value: "."}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
