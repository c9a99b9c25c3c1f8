package http

import (
	"encoding/json"
	"net/http"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/services/geoauth-service/internal/middleware"
	"GeoAuthPlatform/services/geoauth-service/internal/service"
)

// CookieConfig параметры сессионной куки
type CookieConfig struct {
	Name   string
	MaxAge int
	// Secure выставляется для всех окружений, кроме dev
	Secure bool
}

// Handler обработчики HTTP эндпоинтов сервиса
type Handler struct {
	auth   service.AuthService
	search service.SearchService
	cookie CookieConfig
	logger logger.Logger
}

// NewHandler создает новый Handler
func NewHandler(auth service.AuthService, search service.SearchService, cookie CookieConfig, log logger.Logger) *Handler {
	return &Handler{
		auth:   auth,
		search: search,
		cookie: cookie,
		logger: log,
	}
}

// credentialsRequest тело запросов регистрации и входа
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// passwordRequest тело запроса удаления учетной записи
type passwordRequest struct {
	Password string `json:"password"`
}

// Register обрабатывает POST /users/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, apperrors.New(apperrors.ErrValidation, "invalid request body"))
		return
	}

	_, session, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.setSessionCookie(w, session.Token)
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"title":     "User Registration Successful",
		"detail":    "Successfully registered new user",
		"csrfToken": session.CSRFToken,
	})
}

// Login обрабатывает POST /users/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, apperrors.New(apperrors.ErrValidation, "invalid request body"))
		return
	}

	_, session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.setSessionCookie(w, session.Token)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":     "Login Successful",
		"detail":    "Successfully validated user credentials",
		"csrfToken": session.CSRFToken,
	})
}

// MyDetails обрабатывает GET /users/mydetails
func (h *Handler) MyDetails(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.writeError(r, w, apperrors.New(apperrors.ErrSessionNotFound, "authentication required"))
		return
	}

	user, err := h.auth.MyDetails(r.Context(), session.UserID)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":  "Authentication successful",
		"detail": "Successfully authenticated user",
		"user":   map[string]string{"email": user.Email},
	})
}

// Places обрабатывает GET /users/places?searchKey=
func (h *Handler) Places(w http.ResponseWriter, r *http.Request) {
	searchKey := r.URL.Query().Get("searchKey")

	payload, err := h.search.Search(r.Context(), searchKey)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":  "place detail",
		"detail": json.RawMessage(payload),
	})
}

// DeleteAccount обрабатывает DELETE /users/mydetails
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.writeError(r, w, apperrors.New(apperrors.ErrSessionNotFound, "authentication required"))
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, apperrors.New(apperrors.ErrValidation, "invalid request body"))
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), session, req.Password); err != nil {
		h.writeError(r, w, err)
		return
	}

	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":  "Account Deleted",
		"detail": "Account with credentials provided has been successfully deleted",
	})
}

// Logout обрабатывает PUT /users/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.writeError(r, w, apperrors.New(apperrors.ErrSessionNotFound, "authentication required"))
		return
	}

	if err := h.auth.Logout(r.Context(), session); err != nil {
		h.writeError(r, w, err)
		return
	}

	h.clearSessionCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"title":  "Logout Successful",
		"detail": "Successfully expired login session",
	})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   h.cookie.MaxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", logger.Error(err))
	}
}

// writeError переводит любую ошибку в фиксированный конверт.
// Полный текст ошибки остается в логе, клиент видит только код и detail
func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	appErr := apperrors.AsError(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
	} else {
		h.logger.Warn("request rejected",
			logger.String("path", r.URL.Path),
			logger.String("code", string(appErr.Code)))
	}
	apperrors.WriteHTTP(w, err)
}
