package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, fromPgUUID(pgUUID(id)))
}

func TestPgTextRoundTrip(t *testing.T) {
	assert.Nil(t, fromPgText(pgText(nil)))

	val := "Mars"
	assert.Equal(t, &val, fromPgText(pgText(&val)))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
}
