package validation

import (
	"regexp"
	"strings"

	apperrors "GeoAuthPlatform/pkg/errors"
)

// Validator предоставляет общие функции валидации
type Validator struct{}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{}
}

// emailPattern задает структурную проверку адреса: локальная часть, @, домен с точкой.
// Полная RFC-валидация не требуется, проверяется только форма.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail проверяет структурную корректность email адреса.
// Ошибки валидации несут код VALIDATION_ERROR и на границе HTTP
// превращаются в 400, а не в 500.
func (v *Validator) ValidateEmail(email string) error {
	if email == "" {
		return apperrors.New(apperrors.ErrValidation, "email is required")
	}
	if len(email) > 254 {
		return apperrors.New(apperrors.ErrValidation, "email is too long")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.New(apperrors.ErrValidation, "email must be a valid email address")
	}
	return nil
}

// NormalizeEmail приводит email к каноническому виду.
// Адреса сравниваются без учета регистра, поэтому хранится нижний регистр.
func (v *Validator) NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword проверяет структурную форму пароля.
// Проверяется только форма (непустая строка), без требований к сложности.
func (v *Validator) ValidatePassword(password string) error {
	if password == "" {
		return apperrors.New(apperrors.ErrValidation, "password must be a non-empty string")
	}
	// bcrypt ограничен 72 байтами
	if len(password) > 72 {
		return apperrors.New(apperrors.ErrValidation, "password is too long")
	}
	return nil
}

// NormalizeSearchKey приводит поисковый ключ к каноническому виду.
// Одна и та же нормализация применяется и при записи, и при чтении кеша:
// обрезка пробелов + нижний регистр.
func (v *Validator) NormalizeSearchKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ValidateSearchKey проверяет поисковый ключ после нормализации
func (v *Validator) ValidateSearchKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return apperrors.New(apperrors.ErrValidation, "search key is required")
	}
	return nil
}
