package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/middleware"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

var (
	// ErrUserNotFound в контексте нет пользователя (маршрут без AuthMiddleware)
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID параметр пути не является UUID
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID извлекает ID пользователя из gin.Context.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// OptionalUserID ID пользователя или nil для анонимного запроса.
func OptionalUserID(c *gin.Context) *uuid.UUID {
	userID, err := CurrentUserID(c)
	if err != nil {
		return nil
	}
	return &userID
}

// CurrentActor пользователь и его staff-флаг для проверок доступа.
func CurrentActor(c *gin.Context) (service.Actor, error) {
	userID, err := CurrentUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.Actor{UserID: userID, IsStaff: c.GetBool(middleware.ContextIsStaffKey)}, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}
	return parsed, nil
}

// ParseUUIDQuery необязательный UUID из query; пустое значение даёт nil.
func ParseUUIDQuery(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrInvalidUUID
	}
	return &parsed, nil
}

// RespondError отвечает по AppError; прочие ошибки логируются и маскируются под 500.
func RespondError(c *gin.Context, err error) {
	status, body := middleware.ErrorBody(err)
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")
	}
	c.JSON(status, body)
}

// RespondBadRequest ошибка разбора запроса.
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "некорректный запрос"
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: message, Code: string(apperror.ErrCodeBadRequest)})
}

// RespondUnauthorized 401 без AppError.
func RespondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error: apperror.ErrUnauthorized.Message,
		Code:  string(apperror.ErrCodeUnauthorized),
	})
}

// BindJSON разбирает тело запроса; при ошибке отвечает 400 и возвращает false.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondBadRequest(c, "ошибка валидации запроса: "+err.Error())
		return false
	}
	return true
}

// PathUUID разбирает параметр пути; при ошибке отвечает 400 и возвращает false.
func PathUUID(c *gin.Context, paramName string) (uuid.UUID, bool) {
	id, err := ParseUUIDParam(c, paramName)
	if err != nil {
		RespondBadRequest(c, "параметр "+paramName+" должен быть валидным UUID")
		return uuid.Nil, false
	}
	return id, true
}

// ParseIntQuery читает целый query-параметр с fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination limit и offset из query с ограничениями.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
