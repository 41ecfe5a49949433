package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/phishlms/internal/errors"
)

func TestError_Is(t *testing.T) {
	tests := map[string]struct {
		err    error
		target error
		want   bool
	}{
		"same reason should match": {
			err:    errors.MalformedSubmission("answers length %d, want %d", 2, 3),
			target: errors.ErrMalformedSubmission,
			want:   true,
		},
		"wrapped error should match by reason": {
			err:    fmt.Errorf("evaluate: %w", errors.EmptyQuestionSet()),
			target: errors.ErrEmptyQuestionSet,
			want:   true,
		},
		"same code but different reason should not match": {
			err:    errors.InvalidOptionIndex(4, 4),
			target: errors.ErrMalformedSubmission,
			want:   false,
		},
		"forbidden and unauthenticated share the unauthorized reason": {
			err:    errors.Forbidden("user mismatch"),
			target: errors.ErrUnauthorized,
			want:   true,
		},
		"target without reason should match by code": {
			err:    errors.NotFound("profile not found: user=%s", "u1"),
			target: errors.New(errors.CodeNotFound),
			want:   true,
		},
		"plain error should not match": {
			err:    stderrors.New("boom"),
			target: errors.ErrSessionExpired,
			want:   false,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stderrors.Is(tt.err, tt.target))
		})
	}
}

func TestError_HTTPStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, errors.EmptyQuestionSet().HTTPStatusCode())
	assert.Equal(t, http.StatusBadRequest, errors.MalformedSubmission("x").HTTPStatusCode())
	assert.Equal(t, http.StatusUnauthorized, errors.Unauthorized("x").HTTPStatusCode())
	assert.Equal(t, http.StatusForbidden, errors.Forbidden("x").HTTPStatusCode())
	assert.Equal(t, http.StatusInternalServerError, errors.New(errors.Code(99)).HTTPStatusCode())
}

func TestConvert(t *testing.T) {
	cause := stderrors.New("db down")
	e := errors.Convert(fmt.Errorf("load: %w", cause))
	require.Equal(t, errors.CodeInternal, e.Code)
	require.ErrorIs(t, e, cause)

	orig := errors.SessionExpired()
	require.Same(t, orig, errors.Convert(fmt.Errorf("wrap: %w", orig)))
}
