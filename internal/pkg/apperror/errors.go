package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	ErrCodeExpired           ErrorCode = "EXPIRED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeMissingInput      ErrorCode = "MISSING_INPUT"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
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

// Validation короткая форма для ошибок валидации входных данных.
func Validation(err error) *AppError {
	return Wrap(err, ErrCodeValidation, err.Error())
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized, ErrCodeInvalidCredential, ErrCodeExpired:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeMissingInput:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// As извлекает AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode проверяет код AppError в цепочке.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return HasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

var (
	ErrUserNotFound         = New(ErrCodeNotFound, "пользователь не найден")
	ErrInvalidCredentials   = New(ErrCodeInvalidCredential, "неверные учетные данные")
	ErrInvalidOTP           = New(ErrCodeInvalidCredential, "неверный одноразовый код")
	ErrOTPExpired           = New(ErrCodeExpired, "срок действия кода истёк")
	ErrInvalidRefreshToken  = New(ErrCodeInvalidCredential, "refresh токен невалиден")
	ErrMissingIdentifier    = New(ErrCodeMissingInput, "identifier обязателен")
	ErrMissingCredential    = New(ErrCodeMissingInput, "укажите пароль или одноразовый код")
	ErrMissingPassword      = New(ErrCodeMissingInput, "пароль обязателен")
	ErrMissingOTP           = New(ErrCodeMissingInput, "одноразовый код обязателен")
	ErrUserAlreadyExists    = New(ErrCodeValidation, "пользователь с такими данными уже существует")
	ErrMissingRefreshToken  = New(ErrCodeMissingInput, "refresh токен обязателен")
	ErrAmbiguousIdentifier  = New(ErrCodeConflict, "identifier соответствует нескольким пользователям")
	ErrContactRequired      = New(ErrCodeValidation, "необходимо указать email или номер телефона")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")
	ErrProviderNotFound     = New(ErrCodeNotFound, "сервис-провайдер не найден")
	ErrCategoryNotFound     = New(ErrCodeNotFound, "категория не найдена")
	ErrCityNotFound         = New(ErrCodeNotFound, "город не найден")
	ErrAddressNotFound      = New(ErrCodeNotFound, "адрес не найден")
	ErrExpertNotFound       = New(ErrCodeNotFound, "специализация не найдена")
	ErrWeekdayNotFound      = New(ErrCodeNotFound, "день недели не найден")
	ErrReviewNotFound       = New(ErrCodeNotFound, "отзыв не найден")
	ErrRateNotFound         = New(ErrCodeNotFound, "оценка не найдена")
	ErrWorkTimeNotFound     = New(ErrCodeNotFound, "рабочее время не найдено")
	ErrTagNotFound          = New(ErrCodeNotFound, "тег не найден")
	ErrImageNotFound        = New(ErrCodeNotFound, "изображение не найдено")
	ErrOwnerNotFound        = New(ErrCodeNotFound, "владелец не найден")
	ErrProviderExpertExists = New(ErrCodeConflict, "специализация уже добавлена")
	ErrTagExists            = New(ErrCodeConflict, "такой тег уже есть")
	ErrCategoryExists       = New(ErrCodeConflict, "категория с таким названием уже существует")
)
