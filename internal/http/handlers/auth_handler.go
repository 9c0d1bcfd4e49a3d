package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// AuthUseCases операции аутентификации, нужные HTTP слою.
type AuthUseCases interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*service.SignUpResult, error)
	SendOTP(ctx context.Context, identifier string) error
	LoginWithOTP(ctx context.Context, identifier, otp string, meta map[string]string) (*service.TokenPair, error)
	Login(ctx context.Context, in service.LoginInput, meta map[string]string) (*service.TokenPair, error)
	LoginWithPassword(ctx context.Context, identifier, password string, meta map[string]string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListSecurityEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.SecurityEvent, error)
}

// AuthHandler предоставляет HTTP слой для регистрации и логина.
type AuthHandler struct {
	auth AuthUseCases
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth AuthUseCases) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUp обрабатывает POST /auth/sign-up.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.SignUp(c.Request.Context(), service.SignUpInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		Username:    req.Username,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}

	resp := dto.SignUpResponse{User: result.User}
	if result.OTPSent {
		resp.Message = "OTP sent"
	}
	c.JSON(http.StatusCreated, resp)
}

// SendOTP обрабатывает POST /auth/send-otp.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if !common.BindJSON(c, &req) {
		return
	}

	if err := h.auth.SendOTP(c.Request.Context(), req.Identifier); err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OTP sent"})
}

// VerifyOTP обрабатывает POST /auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if !common.BindJSON(c, &req) {
		return
	}

	pair, err := h.auth.LoginWithOTP(c.Request.Context(), req.Identifier, req.OTP, requestMeta(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Login обрабатывает POST /auth/login: пароль или одноразовый код.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !common.BindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		OTP:        req.OTP,
	}, requestMeta(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Token обрабатывает POST /auth/token: только пароль.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if !common.BindJSON(c, &req) {
		return
	}

	pair, err := h.auth.LoginWithPassword(c.Request.Context(), req.Identifier, req.Password, requestMeta(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh обрабатывает POST /auth/token/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !common.BindJSON(c, &req) {
		return
	}

	access, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AccessResponse{Access: access})
}

// Me обрабатывает GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SecurityEvents обрабатывает GET /auth/security-events.
func (h *AuthHandler) SecurityEvents(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	events, err := h.auth.ListSecurityEvents(c.Request.Context(), userID, common.ParseIntQuery(c, "limit", 20))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func requestMeta(c *gin.Context) map[string]string {
	return map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}
}
