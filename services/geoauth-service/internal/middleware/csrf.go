package middleware

import (
	"crypto/subtle"
	"net/http"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
)

// CSRFMiddleware сверяет CSRF токен из заголовка с токеном сессии.
// Ставится после AuthMiddleware: сессия уже лежит в контексте.
// Сравнение выполняется за постоянное время
func CSRFMiddleware(headerName string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok {
				apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrSessionNotFound, "authentication required"))
				return
			}

			provided := r.Header.Get(headerName)
			if provided == "" ||
				subtle.ConstantTimeCompare([]byte(provided), []byte(session.CSRFToken)) != 1 {
				log.Warn("csrf token mismatch",
					logger.String("user_id", session.UserID),
					logger.String("path", r.URL.Path))
				apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrForbidden, "invalid csrf token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
