package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapWriteError(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "users_email_key"}
	fk := &pq.Error{Code: "23503"}
	other := errors.New("connection reset")

	assert.ErrorIs(t, MapWriteError(fmt.Errorf("insert: %w", unique)), ErrAlreadyExists)
	assert.ErrorIs(t, MapWriteError(fk), ErrInvalidInput)
	assert.Equal(t, other, MapWriteError(other))
	assert.NoError(t, MapWriteError(nil))
}

func TestConstraintName(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pq.Error{Code: "23505", Constraint: "users_phone_number_key"})

	assert.True(t, IsUniqueViolation(err))
	assert.Equal(t, "users_phone_number_key", ConstraintName(err))
	assert.Equal(t, "", ConstraintName(errors.New("plain")))
}
