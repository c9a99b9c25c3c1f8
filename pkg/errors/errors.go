package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error представляет кастомную ошибку с дополнительной информацией
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// ErrorCode представляет код ошибки
type ErrorCode string

// Определение кодов ошибок
const (
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrValidation         ErrorCode = "VALIDATION_ERROR"
	ErrInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrConflict           ErrorCode = "CONFLICT"
	ErrUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error возвращает сообщение об ошибке
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, является ли ошибка указанного типа
func (e *Error) Is(target error) bool {
	if targetError, ok := target.(*Error); ok {
		return e.Code == targetError.Code
	}
	return false
}

// New создает новую кастомную ошибку
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку в кастомную
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithDetails добавляет детали к ошибке
func (e *Error) WithDetails(details string) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// HTTPStatus возвращает соответствующий HTTP статус для ошибки.
// Неизвестный и просроченный токен сессии дают одинаковый 401:
// снаружи эти два случая различить нельзя.
func (e *Error) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation:
		return http.StatusBadRequest
	case ErrInvalidCredentials, ErrSessionNotFound:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Title возвращает человекочитаемый заголовок ошибки для ответа клиенту
func (e *Error) Title() string {
	if e == nil {
		return ""
	}

	switch e.Code {
	case ErrNotFound:
		return "Not Found"
	case ErrValidation:
		return "Bad Request"
	case ErrInvalidCredentials:
		return "Invalid Credentials"
	case ErrSessionNotFound:
		return "Unauthorized"
	case ErrForbidden:
		return "Forbidden"
	case ErrConflict:
		return "Registration Error"
	case ErrUpstream:
		return "Upstream Error"
	case ErrUpstreamTimeout:
		return "Upstream Timeout"
	case ErrRateLimited:
		return "Too Many Requests"
	default:
		return "Internal Server Error"
	}
}

// ErrorEntry представляет один элемент массива errors в ответе клиенту
type ErrorEntry struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ErrorResponse представляет тело ответа с ошибками.
// Формат фиксирован для всех эндпоинтов: {"errors":[{title,detail,errorMessage}]}
type ErrorResponse struct {
	Errors []ErrorEntry `json:"errors"`
}

// WriteHTTP сериализует ошибку в фиксированный конверт ответа.
// Внутренняя причина (Cause) клиенту не отдается, только Message и Details.
// Полный текст ошибки логируется на стороне сервера.
func WriteHTTP(w http.ResponseWriter, err error) {
	appErr := AsError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus())

	response := ErrorResponse{
		Errors: []ErrorEntry{
			{
				Title:        appErr.Title(),
				Detail:       appErr.Message,
				ErrorMessage: appErr.Details,
			},
		},
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		w.Write([]byte(`{"errors":[{"title":"Internal Server Error","detail":"failed to encode error response"}]}`))
	}
}

// AsError приводит произвольную ошибку к *Error.
// Ошибки без кода считаются внутренними: их текст наружу не раскрывается.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*Error); ok {
		return appErr
	}
	return Wrap(err, ErrInternal, "internal server error")
}
