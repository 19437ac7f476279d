package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden              ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest             ErrorCode = "BAD_REQUEST"
	ErrCodeConflict               ErrorCode = "CONFLICT"
	ErrCodeStateConflict          ErrorCode = "STATE_CONFLICT"
	ErrCodeAlreadyDisputed        ErrorCode = "ALREADY_DISPUTED"
	ErrCodeInsufficientSettlement ErrorCode = "INSUFFICIENT_SETTLEMENT"
	ErrCodeRateLimited            ErrorCode = "RATE_LIMITED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation             ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError          ErrorCode = "DATABASE_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
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

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с копиями sentinel-ошибок.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInsufficientSettlement:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeStateConflict, ErrCodeAlreadyDisputed:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для нетипизированных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsInternal сообщает, что ошибка относится к инфраструктуре и не должна показываться клиенту как есть.
func IsInternal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInternal, ErrCodeDatabaseError:
		return true
	}
	return false
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

func IsStateConflict(err error) bool {
	return CodeOf(err) == ErrCodeStateConflict
}

var (
	ErrTransactionNotFound = New(ErrCodeNotFound, "сделка не найдена")
	ErrInviteNotFound      = New(ErrCodeNotFound, "код приглашения не найден")
	ErrDisputeNotFound     = New(ErrCodeNotFound, "спор не найден")
	ErrSlipNotFound        = New(ErrCodeNotFound, "платёжная квитанция не найдена")
	ErrMessageNotFound     = New(ErrCodeNotFound, "сообщение не найдено")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")
	ErrNotParticipant      = New(ErrCodeForbidden, "пользователь не является участником сделки")
	ErrStatusChanged       = New(ErrCodeStateConflict, "статус сделки изменился, обновите данные")
	ErrAlreadyDisputed     = New(ErrCodeAlreadyDisputed, "по сделке уже открыт спор")
)
