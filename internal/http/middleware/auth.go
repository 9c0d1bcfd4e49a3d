package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey  = "userID"
	ContextIsStaffKey = "isStaff"
)

// AccessParser разбирает access токен.
type AccessParser interface {
	ParseAccess(token string) (*service.AccessClaims, error)
}

// AuthMiddleware требует валидный access токен в заголовке Authorization.
func AuthMiddleware(tokens AccessParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortUnauthorized(c, apperror.ErrUnauthorized.Message)
			return
		}
		if !authenticate(c, tokens, raw) {
			abortUnauthorized(c, "токен невалиден")
			return
		}
		c.Next()
	}
}

// OptionalAuth пропускает анонимные запросы; токен, если передан, обязан быть валидным.
// Кроме заголовка принимается ?token= для WebSocket, где заголовки недоступны.
func OptionalAuth(tokens AccessParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw = c.Query("token")
		}
		if raw != "" && !authenticate(c, tokens, raw) {
			abortUnauthorized(c, "токен невалиден")
			return
		}
		c.Next()
	}
}

// RequireStaff пропускает только staff. Ставится после AuthMiddleware.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsStaffKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Error: apperror.ErrForbidden.Message,
				Code:  string(apperror.ErrCodeForbidden),
			})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func authenticate(c *gin.Context, tokens AccessParser, raw string) bool {
	claims, err := tokens.ParseAccess(raw)
	if err != nil || claims.UserID == uuid.Nil {
		return false
	}
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextIsStaffKey, claims.Staff)
	return true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
		Error: message,
		Code:  string(apperror.ErrCodeUnauthorized),
	})
}
