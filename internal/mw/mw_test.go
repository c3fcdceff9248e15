package mw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"visitor-system-backend/internal/ctxutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPerMinute(t *testing.T) {
	r := gin.New()
	r.POST("/token", PerMinute(5), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/token", nil).Code, "attempt %d", i+1)
	}
	w := serve(r, http.MethodPost, "/token", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many login attempts")
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	assert.True(t, limiter.GetLimiter("10.0.0.1").Allow())
	assert.False(t, limiter.GetLimiter("10.0.0.1").Allow())
	assert.True(t, limiter.GetLimiter("10.0.0.2").Allow())
	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
	assert.Equal(t, 2, limiter.Len())
}

func TestIPRateLimiter_EvictsIdleClients(t *testing.T) {
	limiter := newIPRateLimiter(1, 1, 50*time.Millisecond)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		limiter.GetLimiter(ip).Allow()
	}
	assert.Equal(t, 3, limiter.Len())

	require.Eventually(t, func() bool { return limiter.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewIPRateLimiter_IdleCoversRefill(t *testing.T) {
	assert.Equal(t, minLimiterIdle, NewIPRateLimiter(100, 10).idle)
	assert.InDelta(t, float64(5*time.Minute), float64(NewIPRateLimiter(rate.Every(time.Minute), 5).idle), float64(time.Millisecond))
}

func TestCache(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/rooms", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	first := serve(r, http.MethodGet, "/rooms", nil)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	second := serve(r, http.MethodGet, "/rooms", nil)
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	store.Flush()
	third := serve(r, http.MethodGet, "/rooms", nil)
	assert.Equal(t, "MISS", third.Header().Get(CacheHeader))
	assert.Equal(t, 2, calls)
}

type fakeValidator struct{}

func (fakeValidator) Authenticate(_ context.Context, token string) (ctxutil.Principal, error) {
	if token != "good" {
		return ctxutil.Principal{}, errors.New("bad token")
	}
	return ctxutil.Principal{AdminID: 1, Username: "admin"}, nil
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(Auth(fakeValidator{}))
	r.GET("/public", func(c *gin.Context) {
		_, ok := ctxutil.PrincipalFromCtx(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"admin": ok})
	})
	r.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		p, _ := ctxutil.PrincipalFromCtx(c.Request.Context())
		c.String(http.StatusOK, p.Username)
	})

	testCases := []struct {
		name           string
		path           string
		authorization  string
		expectedStatus int
		expectedBody   string
	}{
		{"anonymous public", "/public", "", http.StatusOK, `{"admin":false}`},
		{"admin on public", "/public", "Bearer good", http.StatusOK, `{"admin":true}`},
		{"anonymous admin", "/admin", "", http.StatusUnauthorized, ""},
		{"bad token", "/public", "Bearer bad", http.StatusUnauthorized, ""},
		{"lowercase scheme", "/admin", "bearer good", http.StatusOK, "admin"},
		{"basic scheme", "/admin", "Basic Z29vZA==", http.StatusUnauthorized, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.authorization != "" {
				header.Set("Authorization", tc.authorization)
			}
			w := serve(r, http.MethodGet, tc.path, header)
			require.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedBody != "" {
				assert.Equal(t, tc.expectedBody, w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.RequestIDFromCtx(c.Request.Context()))
	})

	w := serve(r, http.MethodGet, "/", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: []string{"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodOptions, "/", http.Header{"Origin": []string{"http://localhost:5173"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/", http.Header{"Origin": []string{"http://evil.example"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
