package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/health"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/metrics"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/mocks"
)

// mockAuthService - мок для AuthService
type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, email, plainPassword string) (*domain.User, *domain.Session, error) {
	args := m.Called(ctx, email, plainPassword)
	if args.Get(1) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.Session), args.Error(2)
}

func (m *mockAuthService) Login(ctx context.Context, email, plainPassword string) (*domain.User, *domain.Session, error) {
	args := m.Called(ctx, email, plainPassword)
	if args.Get(1) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.Session), args.Error(2)
}

func (m *mockAuthService) Logout(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthService) DeleteAccount(ctx context.Context, session *domain.Session, plainPassword string) error {
	args := m.Called(ctx, session, plainPassword)
	return args.Error(0)
}

func (m *mockAuthService) MyDetails(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// mockSearchService - мок для SearchService
type mockSearchService struct {
	mock.Mock
}

func (m *mockSearchService) Search(ctx context.Context, rawKey string) ([]byte, error) {
	args := m.Called(ctx, rawKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type allowAllLimiter struct{}

func (allowAllLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

type handlerTestDeps struct {
	auth     *mockAuthService
	search   *mockSearchService
	sessions *mocks.MockSessionService
	router   http.Handler
}

func setupRouter(t *testing.T) *handlerTestDeps {
	t.Helper()

	log, err := logger.NewLogger("dev", "error", "handler-test")
	require.NoError(t, err)

	deps := &handlerTestDeps{
		auth:     new(mockAuthService),
		search:   new(mockSearchService),
		sessions: new(mocks.MockSessionService),
	}

	handler := NewHandler(deps.auth, deps.search, CookieConfig{
		Name:   "token",
		MaxAge: 1209600,
		Secure: false,
	}, log)

	deps.router = NewRouter(RouterConfig{
		Handler:     handler,
		Sessions:    deps.sessions,
		RateLimiter: allowAllLimiter{},
		RateLimit:   100,
		RateWindow:  time.Minute,
		CookieName:  "token",
		CSRFHeader:  "X-CSRF-Token",
		Metrics:     metrics.NewMetrics("handler_test"),
		Health:      health.NewDependencyHealthChecker("test"),
		Logger:      log,
	})
	return deps
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

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegister_Success(t *testing.T) {
	deps := setupRouter(t)

	deps.auth.On("Register", mock.Anything, "user@example.com", "pw123").
		Return(&domain.User{ID: "user-1", Email: "user@example.com"}, activeSession(), nil)

	req := httptest.NewRequest(http.MethodPost, "/users/register",
		strings.NewReader(`{"email":"user@example.com","password":"pw123"}`))
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "User Registration Successful", body["title"])
	assert.Equal(t, "csrf:def", body["csrfToken"])

	cookie := sessionCookie(rec, "token")
	require.NotNil(t, cookie)
	assert.Equal(t, "tok:abc", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1209600, cookie.MaxAge)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	deps := setupRouter(t)

	deps.auth.On("Register", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, apperrors.New(apperrors.ErrConflict, "user with this email already exists"))

	req := httptest.NewRequest(http.MethodPost, "/users/register",
		strings.NewReader(`{"email":"user@example.com","password":"pw123"}`))
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Registration Error", resp.Errors[0].Title)
	assert.Nil(t, sessionCookie(rec, "token"))
}

func TestRegister_MalformedBody(t *testing.T) {
	deps := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	deps.auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	deps := setupRouter(t)

	deps.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil, apperrors.New(apperrors.ErrInvalidCredentials, "invalid email or password"))

	req := httptest.NewRequest(http.MethodPost, "/users/login",
		strings.NewReader(`{"email":"user@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Invalid Credentials", resp.Errors[0].Title)
}

func TestMyDetails_WithoutCookie(t *testing.T) {
	deps := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/users/mydetails", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	deps.auth.AssertNotCalled(t, "MyDetails", mock.Anything, mock.Anything)
}

func TestMyDetails_Success(t *testing.T) {
	deps := setupRouter(t)

	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)
	deps.auth.On("MyDetails", mock.Anything, "user-1").
		Return(&domain.User{ID: "user-1", Email: "user@example.com"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/mydetails", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "user@example.com", user["email"])
}

func TestPlaces_Success(t *testing.T) {
	deps := setupRouter(t)

	payload := []byte(`{"results":[{"formatted_address":"Paris, France"}]}`)
	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)
	deps.search.On("Search", mock.Anything, "Paris").Return(payload, nil)

	req := httptest.NewRequest(http.MethodGet, "/users/places?searchKey=Paris", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "place detail", body["title"])
	// detail содержит сырой ответ провайдера без переупаковки
	detail, err := json.Marshal(body["detail"])
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(detail))
}

func TestPlaces_UpstreamTimeout(t *testing.T) {
	deps := setupRouter(t)

	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)
	deps.search.On("Search", mock.Anything, mock.Anything).
		Return(nil, apperrors.New(apperrors.ErrUpstreamTimeout, "geocoding provider timed out"))

	req := httptest.NewRequest(http.MethodGet, "/users/places?searchKey=paris", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestLogout_RequiresCSRF(t *testing.T) {
	deps := setupRouter(t)

	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)

	req := httptest.NewRequest(http.MethodPut, "/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	deps.auth.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestLogout_Success(t *testing.T) {
	deps := setupRouter(t)

	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)
	deps.auth.On("Logout", mock.Anything, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPut, "/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	req.Header.Set("X-CSRF-Token", "csrf:def")
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec, "token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestDeleteAccount_WrongPassword(t *testing.T) {
	deps := setupRouter(t)

	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)
	deps.auth.On("DeleteAccount", mock.Anything, mock.Anything, "wrong").
		Return(apperrors.New(apperrors.ErrInvalidCredentials, "invalid email or password"))

	req := httptest.NewRequest(http.MethodDelete, "/users/mydetails",
		strings.NewReader(`{"password":"wrong"}`))
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	req.Header.Set("X-CSRF-Token", "csrf:def")
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAccount_Success(t *testing.T) {
	deps := setupRouter(t)

	deps.sessions.On("Validate", mock.Anything, "tok:abc").Return(activeSession(), nil)
	deps.auth.On("DeleteAccount", mock.Anything, mock.Anything, "pw123").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/users/mydetails",
		strings.NewReader(`{"password":"pw123"}`))
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:abc"})
	req.Header.Set("X-CSRF-Token", "csrf:def")
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Account Deleted", body["title"])

	cookie := sessionCookie(rec, "token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
}

func TestExpiredSessionRejectedAfterLogout(t *testing.T) {
	deps := setupRouter(t)

	// После logout токен перестает валидироваться
	deps.sessions.On("Validate", mock.Anything, "tok:stale").
		Return(nil, apperrors.New(apperrors.ErrSessionNotFound, "session not found"))

	req := httptest.NewRequest(http.MethodGet, "/users/mydetails", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tok:stale"})
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	deps := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	deps.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
