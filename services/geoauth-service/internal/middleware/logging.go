package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"GeoAuthPlatform/pkg/logger"
)

// LoggingMiddleware логирует все HTTP запросы
func LoggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Генерируем trace_id для запроса
			traceID := generateTraceID()

			ctx := context.WithValue(r.Context(), "trace_id", traceID)
			r = r.WithContext(ctx)

			logFields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("url", r.URL.String()),
				logger.String("remote_addr", r.RemoteAddr),
				logger.String("trace_id", traceID),
			}

			log.Info("Started request", logFields...)

			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logFields = append(logFields, logger.Int("status_code", wrapped.statusCode))
			logFields = append(logFields, logger.Float64("duration_ms", float64(time.Since(start).Milliseconds())))

			log.Info("Completed request", logFields...)
		})
	}
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateTraceID генерирует уникальный идентификатор запроса
func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "trace-" + fmt.Sprintf("%d", time.Now().UnixNano())
	}

	// UUID v4
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
