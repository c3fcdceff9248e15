package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-system-backend/internal/apperr"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{AdminID: 7, Username: "admin"})

	p, ok := PrincipalFromCtx(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), p.AdminID)
	assert.Equal(t, "admin", p.Username)

	got, err := RequireAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRequireAdmin(t *testing.T) {
	testCases := []struct {
		name string
		ctx  context.Context
	}{
		{"empty context", context.Background()},
		{"blank username", WithPrincipal(context.Background(), Principal{AdminID: 1})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RequireAdmin(tc.ctx)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestRequestID(t *testing.T) {
	assert.Empty(t, RequestIDFromCtx(context.Background()))
	assert.Equal(t, "abc", RequestIDFromCtx(WithRequestID(context.Background(), "abc")))
}
