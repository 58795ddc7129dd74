package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthError_IsMatchesKind(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrStoreUnavailable, cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "Service temporarily unavailable: boom", err.Error())

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, KindStoreUnavailable, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "sentinel", err: ErrLastAdmin, want: KindLastAdmin},
		{name: "validation", err: NewValidationError(errors.New("bad")), want: KindValidation},
		{name: "foreign", err: errors.New("other"), want: KindInternal},
		{name: "nil", err: nil, want: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.NotEmpty(t, tt.want.String())
		})
	}
}
