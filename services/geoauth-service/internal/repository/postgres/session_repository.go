package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/repository"
)

// SessionRepository реализация репозитория сессий для PostgreSQL.
// Сессии не удаляются: истечение фиксируется переводом статуса
// в expired и заполнением expired_at
type SessionRepository struct {
	*BaseRepository
}

// NewSessionRepository создает новый экземпляр SessionRepository
func NewSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &SessionRepository{BaseRepository: NewBaseRepository(pool)}
}

// Create сохраняет новую активную сессию
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `INSERT INTO sessions (id, user_id, token, csrf_token, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.Pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.CSRFToken,
		session.Status,
		session.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err) {
			return apperrors.Wrap(err, apperrors.ErrConflict, "session token already exists")
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// FindActiveByToken возвращает активную сессию по токену.
// Просроченная и несуществующая сессия неразличимы: обе дают
// SESSION_NOT_FOUND
func (r *SessionRepository) FindActiveByToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `SELECT id, user_id, token, csrf_token, status, created_at, expired_at
		FROM sessions WHERE token = $1 AND status = $2`

	var session domain.Session
	err := r.Pool.QueryRow(ctx, query, token, domain.SessionStatusActive).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.CSRFToken,
		&session.Status,
		&session.CreatedAt,
		&session.ExpiredAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound, "session not found")
		}
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	return &session, nil
}

// Expire переводит сессию в статус expired.
// Операция идемпотентна: повторный вызов для уже истекшей или
// неизвестной сессии не является ошибкой
func (r *SessionRepository) Expire(ctx context.Context, token string, at time.Time) error {
	query := `UPDATE sessions SET status = $2, expired_at = $3
		WHERE token = $1 AND status = $4`

	_, err := r.Pool.Exec(ctx, query, token, domain.SessionStatusExpired, at, domain.SessionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}

	return nil
}

// ExpireAllForUser переводит все активные сессии пользователя в expired.
// Вызывается перед удалением учетной записи
func (r *SessionRepository) ExpireAllForUser(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE sessions SET status = $2, expired_at = $3
		WHERE user_id = $1 AND status = $4`

	_, err := r.Pool.Exec(ctx, query, userID, domain.SessionStatusExpired, at, domain.SessionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to expire sessions for user: %w", err)
	}

	return nil
}
