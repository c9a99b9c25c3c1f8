package middleware

import (
	"context"
	"net/http"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/service"
)

// AuthMiddleware проверяет сессионную куку и кладет сессию в контекст.
// Запрос без куки, с неизвестным или истекшим токеном отклоняется
// одинаковым ответом 401
func AuthMiddleware(sessions service.SessionService, cookieName string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrSessionNotFound, "authentication required"))
				return
			}

			session, err := sessions.Validate(r.Context(), cookie.Value)
			if err != nil {
				if apperrors.AsError(err).Code != apperrors.ErrSessionNotFound {
					log.Error("session validation failed", logger.Error(err))
				}
				apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrSessionNotFound, "authentication required"))
				return
			}

			ctx := context.WithValue(r.Context(), service.SessionKey, session)
			ctx = context.WithValue(ctx, service.UserIDKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext возвращает сессию, положенную AuthMiddleware
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(service.SessionKey).(*domain.Session)
	return session, ok
}
