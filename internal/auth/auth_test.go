package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/ctxutil"
	"visitor-system-backend/internal/store/storetest"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := NewJWTManager(testSecret, "visitor-test", 15*time.Minute)

	token, err := manager.GenerateAccessToken(ctxutil.Principal{AdminID: 3, Username: "petugas"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.AdminID)
	assert.Equal(t, "petugas", p.Username)
}

func TestJWTManager_Rejects(t *testing.T) {
	manager := NewJWTManager(testSecret, "visitor-test", 15*time.Minute)
	token, err := manager.GenerateAccessToken(ctxutil.Principal{AdminID: 1, Username: "admin"})
	require.NoError(t, err)

	expired := NewJWTManager(testSecret, "visitor-test", 15*time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, err := expired.GenerateAccessToken(ctxutil.Principal{AdminID: 1, Username: "admin"})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		manager *JWTManager
		token   string
	}{
		{"empty token", manager, ""},
		{"garbage", manager, "not.a.jwt"},
		{"wrong secret", NewJWTManager(strings.Repeat("x", 40), "visitor-test", time.Minute), token},
		{"wrong issuer", NewJWTManager(testSecret, "someone-else", time.Minute), token},
		{"expired", manager, expiredToken},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.manager.ValidateAccessToken(tc.token)
			assert.Error(t, err)
		})
	}
}

func newService(t *testing.T, allowSetup bool) *Service {
	t.Helper()
	return NewService(storetest.NewStore(t), Config{
		SecretKey:       testSecret,
		Issuer:          "visitor-test",
		TokenTTL:        time.Hour,
		AllowSetupAdmin: allowSetup,
		BcryptCost:      bcrypt.MinCost,
	}, nil)
}

func TestService_SetupAndLogin(t *testing.T) {
	svc := newService(t, true)
	ctx := context.Background()

	admin, err := svc.SetupAdmin(ctx, "admin", "rahasia123")
	require.NoError(t, err)
	assert.NotEqual(t, "rahasia123", admin.PasswordHash)

	_, err = svc.SetupAdmin(ctx, "other", "rahasia123")
	assert.ErrorIs(t, err, ErrSetupDisabled)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	tok, err := svc.Login(ctx, "admin", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 3600, tok.ExpiresIn)

	p, err := svc.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, p.AdminID)
	assert.Equal(t, "admin", p.Username)

	_, err = svc.Authenticate(ctx, tok.AccessToken+"x")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_LoginFailures(t *testing.T) {
	svc := newService(t, true)
	ctx := context.Background()
	_, err := svc.SetupAdmin(ctx, "admin", "rahasia123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin", "salah-password")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody", "rahasia123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_SetupAdminValidation(t *testing.T) {
	testCases := []struct {
		name        string
		allow       bool
		username    string
		password    string
		expectedErr error
	}{
		{"disabled", false, "admin", "rahasia123", apperr.ErrForbidden},
		{"short password", true, "admin", "short", apperr.ErrValidation},
		{"username with space", true, "ad min", "rahasia123", apperr.ErrValidation},
		{"long password", true, "admin", strings.Repeat("p", 73), apperr.ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newService(t, tc.allow).SetupAdmin(context.Background(), tc.username, tc.password)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
