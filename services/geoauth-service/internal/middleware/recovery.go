package middleware

import (
	"net/http"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
)

// RecoveryMiddleware перехватывает панику в обработчиках и отдает 500.
// Текст паники в ответ не попадает
func RecoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						logger.Any("panic", rec),
						logger.String("path", r.URL.Path))
					apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrInternal, "internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
