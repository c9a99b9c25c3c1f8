package repository

import (
	"context"
	"time"

	"GeoAuthPlatform/services/geoauth-service/internal/domain"
)

// UserRepository интерфейс для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionRepository интерфейс для работы с сессиями
// Сессии никогда не удаляются, только переводятся в статус expired
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	FindActiveByToken(ctx context.Context, token string) (*domain.Session, error)
	Expire(ctx context.Context, token string, at time.Time) error
	ExpireAllForUser(ctx context.Context, userID string, at time.Time) error
}

// SearchResultRepository интерфейс для работы с кэшем геокодирования
// Ключи нормализованы до записи и чтения, записи неизменяемые
type SearchResultRepository interface {
	Create(ctx context.Context, result *domain.SearchResult) error
	FindByKey(ctx context.Context, searchKey string) (*domain.SearchResult, error)
}

// SearchCache интерфейс для быстрого слоя кэша поверх хранилища
type SearchCache interface {
	Get(ctx context.Context, searchKey string) ([]byte, error)
	Set(ctx context.Context, searchKey string, payload []byte) error
}
