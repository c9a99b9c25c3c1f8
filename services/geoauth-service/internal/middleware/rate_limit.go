package middleware

import (
	"net"
	"net/http"
	"time"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/ratelimit"
)

// RateLimitMiddleware создает middleware для ограничения частоты запросов
func RateLimitMiddleware(rateLimiter ratelimit.RateLimiter, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getIP(r)

			limitExceeded, err := rateLimiter.CheckRateLimit(r.Context(), key, limit, window)
			if err != nil {
				// В случае ошибки Rate Limiter разрешаем запрос
				log.Error("Rate limiter error, allowing request",
					logger.Error(err),
					logger.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			if limitExceeded {
				log.Warn("Rate limit exceeded",
					logger.String("key", key),
					logger.Int("limit", limit),
					logger.String("path", r.URL.Path))
				apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrRateLimited, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getIP извлекает IP адрес из запроса
func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
