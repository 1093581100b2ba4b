package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlePostgresError(t *testing.T) {
	r := &Repository{}

	tests := []struct {
		name    string
		code    string
		column  string
		message string
		want    string
	}{
		{
			name:    "unique violation",
			code:    "23505",
			message: "duplicate key value violates unique constraint",
			want:    "content item already exists",
		},
		{
			name:    "not null violation",
			code:    "23502",
			column:  "title",
			message: "null value in column",
			want:    "required field title is missing",
		},
		{
			name:    "undefined table",
			code:    "42P01",
			message: `relation "content_item" does not exist`,
			want:    "database migration required",
		},
		{
			name:    "other code",
			code:    "53300",
			message: "too many connections",
			want:    "database error in get content item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, ColumnName: tt.column, Message: tt.message}
			err := r.handlePostgresError("get content item", pgErr)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			// The original error stays reachable for errors.As chains.
			var unwrapped *pgconn.PgError
			require.ErrorAs(t, err, &unwrapped)
			assert.Equal(t, tt.code, unwrapped.Code)
		})
	}
}

func TestHandlePostgresErrorPlain(t *testing.T) {
	r := &Repository{}
	cause := errors.New("connection refused")

	err := r.handlePostgresError("list content items", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list content items")
}
