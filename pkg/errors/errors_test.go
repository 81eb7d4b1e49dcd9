package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(Timeout, "provider timed out")
	require.Error(t, err)
	assert.Equal(t, "provider timed out", err.Error())

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, Timeout, e.Code())
}

func TestWrap(t *testing.T) {
	t.Run("wraps and unwraps", func(t *testing.T) {
		inner := fmt.Errorf("connection refused")
		err := Wrap(inner, ServerError, "provider call failed")

		assert.Equal(t, "provider call failed: connection refused", err.Error())
		assert.ErrorIs(t, err, inner)
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, ServerError, "ignored"))
	})
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(RateLimited, "too many requests"), Fields{"attempt": 2})

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, RateLimited, e.Code())
	assert.Equal(t, 2, e.Fields()["attempt"])
	assert.Contains(t, err.Error(), "attempt=2")
}

func TestIs_MatchesByCode(t *testing.T) {
	err := WithFields(New(ProviderUnavailable, "circuit open"), Fields{"cooldown": "30s"})
	assert.ErrorIs(t, err, New(ProviderUnavailable, "anything"))
	assert.NotErrorIs(t, err, New(Timeout, "anything"))
}

func TestCode(t *testing.T) {
	assert.Equal(t, AuthError, Code(New(AuthError, "bad key")))
	assert.Equal(t, Unknown, Code(fmt.Errorf("plain error")))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"timeout", New(Timeout, ""), true},
		{"rate limited", New(RateLimited, ""), true},
		{"server error", New(ServerError, ""), true},
		{"invalid input", New(InvalidInput, ""), false},
		{"auth error", New(AuthError, ""), false},
		{"canceled", New(Canceled, ""), false},
		{"provider unavailable", New(ProviderUnavailable, ""), false},
		{"persistence failure", New(PersistenceFailure, ""), false},
		{"plain error", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestCheckContext(t *testing.T) {
	t.Run("live context", func(t *testing.T) {
		assert.NoError(t, CheckContext(context.Background(), "op"))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := CheckContext(ctx, "op")
		require.Error(t, err)
		assert.Equal(t, Canceled, Code(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
