package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("case report: %w", ErrNotFound), http.StatusNotFound},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("only students: %w", ErrForbidden), http.StatusForbidden},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"conflict", fmt.Errorf("already under review: %w", ErrConflict), http.StatusConflict},
		{"rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests},
		{"app error code wins", New(http.StatusUnprocessableEntity, "nope", ErrNotFound), http.StatusUnprocessableEntity},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatus(tt.err))
		})
	}
}

func TestPublicMessageHidesInternalCause(t *testing.T) {
	remote := Remote("Failed to save profile changes", errors.New("pq: connection refused"))

	assert.Equal(t, "Failed to save profile changes", PublicMessage(remote))
	assert.Equal(t, "Something went wrong, please try again", PublicMessage(errors.New("pq: boom")))
	assert.Equal(t, "Full name is required", PublicMessage(Validation("Full name is required")))
	assert.True(t, errors.Is(Validation("x"), ErrInvalidInput))
}
