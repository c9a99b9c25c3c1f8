package http

import (
	"net/http"
	"time"

	"GeoAuthPlatform/pkg/health"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/metrics"
	"GeoAuthPlatform/pkg/ratelimit"
	"GeoAuthPlatform/services/geoauth-service/internal/middleware"
	"GeoAuthPlatform/services/geoauth-service/internal/service"
)

// RouterConfig зависимости для сборки маршрутов
type RouterConfig struct {
	Handler     *Handler
	Sessions    service.SessionService
	RateLimiter ratelimit.RateLimiter
	RateLimit   int
	RateWindow  time.Duration
	CookieName  string
	CSRFHeader  string
	Metrics     *metrics.Metrics
	Health      *health.DependencyHealthChecker
	Logger      logger.Logger
}

// NewRouter собирает mux со всеми эндпоинтами и цепочками middleware.
// Порядок гейтов фиксирован: аутентификация до проверки CSRF,
// обе до любого кода обработчика
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	authGate := middleware.AuthMiddleware(cfg.Sessions, cfg.CookieName, cfg.Logger)
	csrfGate := middleware.CSRFMiddleware(cfg.CSRFHeader, cfg.Logger)
	rateLimit := middleware.RateLimitMiddleware(cfg.RateLimiter, cfg.RateLimit, cfg.RateWindow, cfg.Logger)

	// Публичные эндпоинты с ограничением частоты
	mux.Handle("POST /users/register", rateLimit(http.HandlerFunc(cfg.Handler.Register)))
	mux.Handle("POST /users/login", rateLimit(http.HandlerFunc(cfg.Handler.Login)))

	// Защищенные эндпоинты
	mux.Handle("GET /users/mydetails", authGate(http.HandlerFunc(cfg.Handler.MyDetails)))
	mux.Handle("GET /users/places", authGate(http.HandlerFunc(cfg.Handler.Places)))

	// Мутирующие эндпоинты требуют CSRF токен
	mux.Handle("DELETE /users/mydetails", authGate(csrfGate(http.HandlerFunc(cfg.Handler.DeleteAccount))))
	mux.Handle("PUT /users/logout", authGate(csrfGate(http.HandlerFunc(cfg.Handler.Logout))))

	// Служебные эндпоинты
	mux.Handle("GET /metrics", cfg.Metrics.GetHandler())
	mux.Handle("GET /health", health.Handler(cfg.Health))
	mux.Handle("GET /ready", health.ReadyHandler())
	mux.Handle("GET /live", health.LiveHandler())

	var root http.Handler = mux
	root = cfg.Metrics.Middleware(root)
	root = middleware.LoggingMiddleware(cfg.Logger)(root)
	root = middleware.RecoveryMiddleware(cfg.Logger)(root)

	return root
}
