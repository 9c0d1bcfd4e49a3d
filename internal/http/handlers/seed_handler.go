package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

const (
	defaultSeedUsers     = 20
	defaultSeedProviders = 30
	maxSeedRows          = 500
)

// SeedHandler обрабатывает запросы для генерации фейковых данных.
type SeedHandler struct {
	seedService *service.SeedService
}

// NewSeedHandler создаёт новый seed handler.
func NewSeedHandler(seedService *service.SeedService) *SeedHandler {
	return &SeedHandler{seedService: seedService}
}

// Seed генерирует фейковые данные.
// POST /api/seed
func (h *SeedHandler) Seed(c *gin.Context) {
	var req dto.SeedRequest
	if c.Request.ContentLength > 0 && !common.BindJSON(c, &req) {
		return
	}
	req.Users = clampSeed(req.Users, defaultSeedUsers)
	req.Providers = clampSeed(req.Providers, defaultSeedProviders)

	result, err := h.seedService.SeedData(c.Request.Context(), req.Users, req.Providers)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func clampSeed(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	if v > maxSeedRows {
		return maxSeedRows
	}
	return v
}
