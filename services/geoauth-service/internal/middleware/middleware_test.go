package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/mocks"
	"GeoAuthPlatform/services/geoauth-service/internal/service"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger("dev", "error", "middleware-test")
	require.NoError(t, err)
	return log
}

func activeSession() *domain.Session {
	return &domain.Session{
		ID:        "session-1",
		UserID:    "user-1",
		Token:     "tok:abc",
		CSRFToken: "csrf:def",
		Status:    domain.SessionStatusActive,
	}
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthMiddleware_NoCookie(t *testing.T) {
	sessions := new(mocks.MockSessionService)
	handler := AuthMiddleware(sessions, "token", testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mydetails", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeErrors(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Unauthorized", resp.Errors[0].Title)
}

func TestAuthMiddleware_UnknownAndExpiredIdentical(t *testing.T) {
	sessions := new(mocks.MockSessionService)
	// Репозиторий отдает одну и ту же ошибку для незнакомого
	// и истекшего токена
	sessions.On("Validate", mock.Anything, mock.Anything).
		Return(nil, apperrors.New(apperrors.ErrSessionNotFound, "session not found"))

	handler := AuthMiddleware(sessions, "token", testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	responses := make([]*httptest.ResponseRecorder, 0, 2)
	for _, tok := range []string{"tok:unknown", "tok:expired"} {
		req := httptest.NewRequest(http.MethodGet, "/mydetails", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: tok})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		responses = append(responses, rec)
	}

	assert.Equal(t, http.StatusUnauthorized, responses[0].Code)
	assert.Equal(t, responses[0].Code, responses[1].Code)
	assert.Equal(t, responses[0].Body.String(), responses[1].Body.String())
}

func TestAuthMiddleware_ValidSession(t *testing.T) {
	sessions := new(mocks.MockSessionService)
	sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)

	var fromCtx *domain.Session
	handler := AuthMiddleware(sessions, "token", testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/mydetails", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fromCtx)
	assert.Equal(t, "user-1", fromCtx.UserID)
}

func csrfHandler(t *testing.T) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return CSRFMiddleware("X-CSRF-Token", testLogger(t))(next)
}

func withSession(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), service.SessionKey, activeSession())
	return r.WithContext(ctx)
}

func TestCSRFMiddleware_MissingHeader(t *testing.T) {
	req := withSession(httptest.NewRequest(http.MethodDelete, "/deleteaccount", nil))
	rec := httptest.NewRecorder()
	csrfHandler(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFMiddleware_WrongToken(t *testing.T) {
	req := withSession(httptest.NewRequest(http.MethodDelete, "/deleteaccount", nil))
	req.Header.Set("X-CSRF-Token", "csrf:wrong")
	rec := httptest.NewRecorder()
	csrfHandler(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRFMiddleware_ValidToken(t *testing.T) {
	req := withSession(httptest.NewRequest(http.MethodDelete, "/deleteaccount", nil))
	req.Header.Set("X-CSRF-Token", "csrf:def")
	rec := httptest.NewRecorder()
	csrfHandler(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubRateLimiter struct {
	exceeded bool
	err      error
}

func (s *stubRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.exceeded, s.err
}

func TestRateLimitMiddleware_UnderLimit(t *testing.T) {
	handler := RateLimitMiddleware(&stubRateLimiter{}, 10, time.Minute, testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/places/paris", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_Exceeded(t *testing.T) {
	handler := RateLimitMiddleware(&stubRateLimiter{exceeded: true}, 10, time.Minute, testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/places/paris", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitMiddleware_LimiterErrorAllows(t *testing.T) {
	handler := RateLimitMiddleware(&stubRateLimiter{err: assert.AnError}, 10, time.Minute, testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/places/paris", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(testLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/places/paris", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Текст паники наружу не уходит
	assert.NotContains(t, rec.Body.String(), "boom")
}
