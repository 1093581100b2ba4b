package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchPathQuery(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{
			name:   "plain schema name",
			schema: "publishing",
			want:   `SET search_path TO "publishing"`,
		},
		{
			name:   "embedded quote is escaped",
			schema: `pub"lic`,
			want:   `SET search_path TO "pub""lic"`,
		},
		{
			name:   "statement separator stays inside the identifier",
			schema: "publishing; DROP TABLE content_item",
			want:   `SET search_path TO "publishing; DROP TABLE content_item"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, searchPathQuery(tt.schema))
		})
	}
}
