package service

// Ключи для использования в контексте
// Используются для передачи данных между middleware и обработчиками

type contextKey string

// UserIDKey ключ для хранения ID пользователя в контексте
const UserIDKey contextKey = "user_id"

// SessionKey ключ для хранения сессии в контексте
const SessionKey contextKey = "session"
