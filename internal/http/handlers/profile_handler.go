package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// ProfileUseCases чтение и изменение профиля.
type ProfileUseCases interface {
	Get(ctx context.Context, userID uuid.UUID) (*service.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, in service.ProfileInput) (*service.Profile, error)
}

// ProfileHandler профиль текущего пользователя.
type ProfileHandler struct {
	profiles ProfileUseCases
}

func NewProfileHandler(profiles ProfileUseCases) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get обрабатывает GET /profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Update обрабатывает PUT /profile. Отсутствующие поля не меняются.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}

	var req dto.UpdateProfileRequest
	if !common.BindJSON(c, &req) {
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), userID, service.ProfileInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Address:   req.Address,
		Location:  req.Location,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
