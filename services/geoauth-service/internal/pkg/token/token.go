package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Длина токена в байтах до кодирования (256 бит энтропии)
const tokenBytes = 32

// Префиксы различают сессионные и CSRF токены в хранилище и логах
const (
	sessionPrefix = "tok:"
	csrfPrefix    = "csrf:"
)

// Generator интерфейс для генерации токенов
type Generator interface {
	NewSessionToken() (string, error)
	NewCSRFToken() (string, error)
}

// RandomGenerator генерирует непрозрачные токены из crypto/rand.
// Токены не несут никакой информации о пользователе: вся привязка
// живет в хранилище сессий
type RandomGenerator struct{}

// NewRandomGenerator создает новый RandomGenerator
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// NewSessionToken генерирует новый сессионный токен
func (g *RandomGenerator) NewSessionToken() (string, error) {
	return generate(sessionPrefix)
}

// NewCSRFToken генерирует новый CSRF токен
func (g *RandomGenerator) NewCSRFToken() (string, error) {
	return generate(csrfPrefix)
}

func generate(prefix string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
