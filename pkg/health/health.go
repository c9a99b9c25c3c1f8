package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker интерфейс для проверки здоровья сервиса
type HealthChecker interface {
	Check(ctx context.Context) *HealthStatus
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Status представляет статус зависимости
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Probe функция проверки одной зависимости (postgres, redis, rabbitmq)
type Probe func(ctx context.Context) error

// DependencyHealthChecker проверяет здоровье сервиса по набору зависимостей
type DependencyHealthChecker struct {
	version string
	probes  map[string]Probe
}

// NewDependencyHealthChecker создает новый DependencyHealthChecker
func NewDependencyHealthChecker(version string) *DependencyHealthChecker {
	return &DependencyHealthChecker{
		version: version,
		probes:  make(map[string]Probe),
	}
}

// AddProbe регистрирует проверку зависимости под заданным именем
func (c *DependencyHealthChecker) AddProbe(name string, probe Probe) {
	c.probes[name] = probe
}

// Check выполняет все зарегистрированные проверки.
// Сервис считается здоровым только если здоровы все зависимости.
func (c *DependencyHealthChecker) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   c.version,
		Services:  make(map[string]Status),
	}

	for name, probe := range c.probes {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := probe(probeCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Services[name] = Status{Status: "unhealthy", Details: err.Error()}
			continue
		}
		status.Services[name] = Status{Status: "healthy"}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(status)
	}
}

// ReadyHandler создает HTTP обработчик для ready check эндпоинта
// Возвращает 200 если сервис готов принимать трафик
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
		})
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта
// Возвращает 200 если сервис жив
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
		})
	}
}
