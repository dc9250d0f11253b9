package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gastronomia-be/internal/auth"
	"gastronomia-be/internal/logger"
	"gastronomia-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := auth.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer logger.Replace(zap.New(core))()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Request ID is injected before the access log runs
		assert.NotEmpty(t, logger.RequestIDFrom(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Chain(next, logger.RequestIDMiddleware, LoggingMiddleware)

	t.Run("Generates ID when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/abc", nil)
		req.Header.Set(logger.RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", w.Header().Get(logger.RequestIDHeader))
	})

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[1].ContextMap()
	assert.Equal(t, "/sessions/abc", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "test-id-123", fields["request_id"])
}

func TestCors(t *testing.T) {
	handler := CORS("http://localhost:4200")(okHandler())

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Normal request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuth(t *testing.T) {
	mw := AuthMiddleware(testSecret)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok, "Context should not contain user ID")
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		w := httptest.NewRecorder()

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		tokenString := signToken(t, 1, "user")

		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), userID)
			assert.Equal(t, "user", utils.GetUserRoleFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		tokenString := signToken(t, 7, utils.RoleAdmin)

		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: tokenString})
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, utils.RoleAdmin, utils.GetUserRoleFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(1),
			"exp":     time.Now().Add(-time.Hour).Unix(), // Expired
		})
		tokenString, err := token.SignedString(testSecret)
		assert.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/1", nil)
		req.Header.Set("Authorization", "Basic user:pass") // Wrong scheme
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter("internal-key")
	defer rl.Close()
	handler := rl.Middleware(okHandler())

	send := func(method, path string, headers map[string]string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("Strict tier for confirm", func(t *testing.T) {
		for i := 0; i < burstStrict; i++ {
			assert.Equal(t, http.StatusOK, send(http.MethodPost, "/sessions/a/confirm", nil))
		}
		assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/sessions/a/confirm", nil))

		// Other tiers keep their own bucket.
		assert.Equal(t, http.StatusOK, send(http.MethodPost, "/sessions/a/select", nil))
	})

	t.Run("Internal callers", func(t *testing.T) {
		headers := map[string]string{"X-Service-Auth": "internal-key"}
		for i := 0; i < burstStrict+1; i++ {
			assert.Equal(t, http.StatusOK, send(http.MethodPost, "/sessions/a/confirm", headers))
		}
	})

	t.Run("Tier resolution", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sessions/a", nil)
		_, _, tier := rl.resolveRateTier(req)
		assert.Equal(t, "general", tier)

		req.Header.Set("X-Client-Type", "frontend-heavy")
		_, _, tier = rl.resolveRateTier(req)
		assert.Equal(t, "frontend", tier)

		req = req.WithContext(utils.SetUserContext(req.Context(), 3, utils.RoleAdmin))
		_, _, tier = rl.resolveRateTier(req)
		assert.Equal(t, "internal", tier)
	})

	t.Run("Identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:1"
		assert.Equal(t, "ip:10.0.0.2", identity(req))

		req.Header.Set("X-Device-ID", "dev-1")
		assert.Equal(t, "device:dev-1", identity(req))

		req = req.WithContext(utils.SetUserContext(req.Context(), 9, ""))
		assert.Equal(t, "user:9", identity(req))
	})
}
