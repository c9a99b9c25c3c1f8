package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "GeoAuthPlatform/pkg/errors"
	"GeoAuthPlatform/pkg/logger"
	"GeoAuthPlatform/pkg/metrics"
	"GeoAuthPlatform/pkg/validation"
	"GeoAuthPlatform/services/geoauth-service/internal/domain"
	"GeoAuthPlatform/services/geoauth-service/internal/pkg/password"
	"GeoAuthPlatform/services/geoauth-service/internal/repository"
)

// AuditRecorder интерфейс записи событий аудита
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}

// AuthService интерфейс для операций с учетными записями
type AuthService interface {
	Register(ctx context.Context, email, plainPassword string) (*domain.User, *domain.Session, error)
	Login(ctx context.Context, email, plainPassword string) (*domain.User, *domain.Session, error)
	Logout(ctx context.Context, session *domain.Session) error
	DeleteAccount(ctx context.Context, session *domain.Session, plainPassword string) error
	MyDetails(ctx context.Context, userID string) (*domain.User, error)
}

// Service реализация AuthService
type Service struct {
	userRepository repository.UserRepository
	sessions       SessionService
	passwordHasher password.Hasher
	validator      *validation.Validator
	audit          AuditRecorder
	metrics        *metrics.Metrics
	logger         logger.Logger
}

// NewAuthService создает новый экземпляр AuthService
func NewAuthService(
	userRepository repository.UserRepository,
	sessions SessionService,
	passwordHasher password.Hasher,
	validator *validation.Validator,
	auditRecorder AuditRecorder,
	m *metrics.Metrics,
	log logger.Logger,
) AuthService {
	return &Service{
		userRepository: userRepository,
		sessions:       sessions,
		passwordHasher: passwordHasher,
		validator:      validator,
		audit:          auditRecorder,
		metrics:        m,
		logger:         log,
	}
}

// Register создает пользователя и сразу открывает для него сессию.
// Повторная регистрация на тот же email дает CONFLICT из базы,
// гонка двух одновременных регистраций разрешается там же
func (s *Service) Register(ctx context.Context, email, plainPassword string) (*domain.User, *domain.Session, error) {
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := s.validator.ValidatePassword(plainPassword); err != nil {
		return nil, nil, err
	}

	normalizedEmail := s.validator.NormalizeEmail(email)

	passwordHash, err := s.passwordHasher.Hash(plainPassword)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrInternal, "failed to hash password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        normalizedEmail,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepository.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", logger.String("user_id", user.ID))
	s.audit.Record(domain.AuditEvent{
		Type:   domain.AuditUserRegistered,
		UserID: user.ID,
		Email:  user.Email,
	})

	return user, session, nil
}

// Login аутентифицирует пользователя и открывает новую сессию.
// Неизвестный email и неверный пароль дают одну и ту же ошибку:
// по ответу нельзя определить, существует ли учетная запись
func (s *Service) Login(ctx context.Context, email, plainPassword string) (*domain.User, *domain.Session, error) {
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := s.validator.ValidatePassword(plainPassword); err != nil {
		return nil, nil, err
	}

	normalizedEmail := s.validator.NormalizeEmail(email)

	user, err := s.userRepository.FindByEmail(ctx, normalizedEmail)
	if err != nil {
		if apperrors.AsError(err).Code == apperrors.ErrNotFound {
			s.recordLoginFailure(normalizedEmail, "unknown_email")
			return nil, nil, apperrors.New(apperrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, nil, err
	}

	if !s.passwordHasher.Check(plainPassword, user.PasswordHash) {
		s.recordLoginFailure(normalizedEmail, "bad_password")
		return nil, nil, apperrors.New(apperrors.ErrInvalidCredentials, "invalid email or password")
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", logger.String("user_id", user.ID))
	s.audit.Record(domain.AuditEvent{
		Type:   domain.AuditUserLoggedIn,
		UserID: user.ID,
		Email:  user.Email,
	})

	return user, session, nil
}

// Logout истекает текущую сессию. Операция идемпотентна
func (s *Service) Logout(ctx context.Context, session *domain.Session) error {
	if err := s.sessions.Expire(ctx, session.Token); err != nil {
		return err
	}

	s.audit.Record(domain.AuditEvent{
		Type:   domain.AuditUserLoggedOut,
		UserID: session.UserID,
	})

	return nil
}

// DeleteAccount удаляет учетную запись после повторной проверки пароля.
// Сначала истекают все активные сессии пользователя, затем удаляется
// запись пользователя: при сбое между шагами не остается активных
// сессий без владельца
func (s *Service) DeleteAccount(ctx context.Context, session *domain.Session, plainPassword string) error {
	user, err := s.userRepository.FindByID(ctx, session.UserID)
	if err != nil {
		return err
	}

	if !s.passwordHasher.Check(plainPassword, user.PasswordHash) {
		s.recordLoginFailure(user.Email, "bad_password")
		return apperrors.New(apperrors.ErrInvalidCredentials, "invalid email or password")
	}

	if err := s.sessions.ExpireAllForUser(ctx, session.UserID); err != nil {
		return err
	}

	if err := s.userRepository.Delete(ctx, session.UserID); err != nil {
		return err
	}

	s.logger.Info("user account deleted", logger.String("user_id", session.UserID))
	s.audit.Record(domain.AuditEvent{
		Type:   domain.AuditUserDeleted,
		UserID: session.UserID,
	})

	return nil
}

// MyDetails возвращает данные текущего пользователя
func (s *Service) MyDetails(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepository.FindByID(ctx, userID)
}

func (s *Service) recordLoginFailure(email, reason string) {
	s.logger.Warn("login failed", logger.String("reason", reason))
	s.metrics.RecordAuthFailure(reason)
	s.audit.Record(domain.AuditEvent{
		Type:   domain.AuditLoginFailed,
		Email:  email,
		Detail: reason,
	})
}
