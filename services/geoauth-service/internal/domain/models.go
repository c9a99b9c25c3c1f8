package domain

import (
	"time"
)

// Статусы сессии. Сессия создается активной и единожды переходит
// в expired, обратного перехода нет. Записи сессий не удаляются.
const (
	SessionStatusActive  = "active"
	SessionStatusExpired = "expired"
)

// User представляет пользователя системы
// Пароли хранятся с использованием bcrypt (cost 10)
// Email хранится в нижнем регистре и должен быть уникальным
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session представляет сессию пользователя
// Токены непрозрачные (crypto/rand), хранятся как есть и уникальны.
// ExpiredAt заполняется только при переходе в статус expired.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Token     string     `json:"-"`
	CSRFToken string     `json:"-"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiredAt *time.Time `json:"expired_at,omitempty"`
}

// IsActive возвращает true, если сессия активна
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// SearchResult представляет закэшированный результат геокодирования
// Ключ нормализован (trim + нижний регистр), запись неизменяемая:
// после первой вставки данные по ключу никогда не перезаписываются
type SearchResult struct {
	ID        string    `json:"id"`
	SearchKey string    `json:"search_key"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEvent представляет событие аудита, публикуемое в очередь
type AuditEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Типы событий аудита
const (
	AuditUserRegistered = "user.registered"
	AuditUserLoggedIn   = "user.logged_in"
	AuditUserLoggedOut  = "user.logged_out"
	AuditUserDeleted    = "user.deleted"
	AuditLoginFailed    = "user.login_failed"
)
