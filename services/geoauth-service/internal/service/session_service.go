package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/pkg/token"
	"GeoAuthPlatform/services/geoauth-service/internal/repository"
)

// SessionService интерфейс управления жизненным циклом сессий.
// Сессия единожды создается активной и единожды истекает, записи
// после истечения сохраняются
type SessionService interface {
	Create(ctx context.Context, userID string) (*domain.Session, error)
	Validate(ctx context.Context, sessionToken string) (*domain.Session, error)
	Expire(ctx context.Context, sessionToken string) error
	ExpireAllForUser(ctx context.Context, userID string) error
}

// SessionManager реализация SessionService
type SessionManager struct {
	sessionRepository repository.SessionRepository
	tokenGenerator    token.Generator
}

// NewSessionManager создает новый экземпляр SessionManager
func NewSessionManager(
	sessionRepository repository.SessionRepository,
	tokenGenerator token.Generator,
) SessionService {
	return &SessionManager{
		sessionRepository: sessionRepository,
		tokenGenerator:    tokenGenerator,
	}
}

// Create создает новую активную сессию с парой токенов
func (s *SessionManager) Create(ctx context.Context, userID string) (*domain.Session, error) {
	sessionToken, err := s.tokenGenerator.NewSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	csrfToken, err := s.tokenGenerator.NewCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	session := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     sessionToken,
		CSRFToken: csrfToken,
		Status:    domain.SessionStatusActive,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sessionRepository.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate возвращает активную сессию по токену.
// Истекшая и несуществующая сессия дают одинаковую ошибку
func (s *SessionManager) Validate(ctx context.Context, sessionToken string) (*domain.Session, error) {
	return s.sessionRepository.FindActiveByToken(ctx, sessionToken)
}

// Expire переводит сессию в expired. Повторный вызов безопасен
func (s *SessionManager) Expire(ctx context.Context, sessionToken string) error {
	return s.sessionRepository.Expire(ctx, sessionToken, time.Now().UTC())
}

// ExpireAllForUser истекает все активные сессии пользователя
func (s *SessionManager) ExpireAllForUser(ctx context.Context, userID string) error {
	return s.sessionRepository.ExpireAllForUser(ctx, userID, time.Now().UTC())
}
