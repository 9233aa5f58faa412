package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeAlreadyResolved     ErrorCode = "ALREADY_RESOLVED"
	ErrCodeCooldownActive      ErrorCode = "COOLDOWN_ACTIVE"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeRoleConflict        ErrorCode = "ROLE_CONFLICT"
	ErrCodeDependencyFailure   ErrorCode = "DEPENDENCY_FAILURE"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
)

// AppError: единственный тип ошибки, который use case отдаёт наружу.
// Details содержит машиночитаемый контекст для клиента (поле, текущий статус и т.п.).
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail возвращает копию ошибки с дополнительным полем деталей.
// Копия нужна, чтобы не портить глобальные переменные-ошибки.
func (e *AppError) WithDetail(key string, value any) *AppError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт ошибку валидации с указанием поля.
func Validation(field, message string) *AppError {
	return New(ErrCodeValidation, message).WithDetail(field, message)
}

// InvalidState сообщает о неверном состоянии сущности вместе с текущим статусом.
func InvalidState(message string, current any) *AppError {
	return New(ErrCodeInvalidState, message).WithDetail("current_status", current)
}

// AlreadyResolved сообщает, что предложение уже обработано.
func AlreadyResolved(current any) *AppError {
	return New(ErrCodeAlreadyResolved, "предложение уже обработано").WithDetail("current_status", current)
}

// CooldownActive сообщает оставшееся время до повторной отправки.
func CooldownActive(remainingSeconds int) *AppError {
	return New(ErrCodeCooldownActive, fmt.Sprintf("повторное предложение возможно через %d сек.", remainingSeconds)).
		WithDetail("remaining_seconds", remainingSeconds)
}

// DependencyFailure оборачивает ошибку внешнего сервиса.
func DependencyFailure(err error, service string) *AppError {
	return Wrap(err, ErrCodeDependencyFailure, "внешний сервис недоступен: "+service)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidState, ErrCodeAlreadyResolved, ErrCodeRoleConflict:
		return http.StatusConflict
	case ErrCodeCooldownActive, ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case ErrCodeDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или пустую строку для "чужих" ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsInvalidState(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeInvalidState || code == ErrCodeAlreadyResolved
}

var (
	ErrJobNotFound         = New(ErrCodeNotFound, "задание не найдено")
	ErrOfferNotFound       = New(ErrCodeNotFound, "предложение не найдено")
	ErrTransactionNotFound = New(ErrCodeNotFound, "транзакция не найдена")
	ErrUserNotFound        = New(ErrCodeNotFound, "пользователь не найден")
	ErrProfileNotFound     = New(ErrCodeNotFound, "профиль не найден")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials  = New(ErrCodeUnauthorized, "неверные учетные данные")
	ErrInsufficientBalance = New(ErrCodeInsufficientBalance, "недостаточно средств")
)
