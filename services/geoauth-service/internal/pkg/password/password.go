package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher интерфейс для работы с паролями
type Hasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// BcryptHasher реализация Hasher с использованием bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создает новый BcryptHasher
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash хеширует пароль с использованием bcrypt
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check проверяет, соответствует ли пароль хешу
func (h *BcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
