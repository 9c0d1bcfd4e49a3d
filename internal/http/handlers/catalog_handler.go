package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// CatalogHandler справочники: категории, города, адреса, дни недели, специализации.
type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListCategories обрабатывает GET /categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory обрабатывает GET /categories/:id.
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// CreateCategory обрабатывает POST /categories.
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !common.BindJSON(c, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), service.CategoryInput{Name: req.Name, Icon: req.Icon})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory обрабатывает PUT /categories/:id.
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !common.BindJSON(c, &req) {
		return
	}
	category, err := h.catalog.UpdateCategory(c.Request.Context(), id, service.CategoryInput{Name: req.Name, Icon: req.Icon})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory обрабатывает DELETE /categories/:id.
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListCities(c *gin.Context) {
	cities, err := h.catalog.ListCities(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cities)
}

func (h *CatalogHandler) CreateCity(c *gin.Context) {
	var req dto.CityRequest
	if !common.BindJSON(c, &req) {
		return
	}
	city, err := h.catalog.CreateCity(c.Request.Context(), req.Name)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, city)
}

// ListAddresses обрабатывает GET /addresses?city_id=.
func (h *CatalogHandler) ListAddresses(c *gin.Context) {
	cityID, err := common.ParseUUIDQuery(c, "city_id")
	if err != nil {
		common.RespondBadRequest(c, "city_id должен быть валидным UUID")
		return
	}
	addresses, err := h.catalog.ListAddresses(c.Request.Context(), cityID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, addresses)
}

func (h *CatalogHandler) GetAddress(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	address, err := h.catalog.GetAddress(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *CatalogHandler) CreateAddress(c *gin.Context) {
	var req dto.AddressRequest
	if !common.BindJSON(c, &req) {
		return
	}
	address, err := h.catalog.CreateAddress(c.Request.Context(), addressInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *CatalogHandler) UpdateAddress(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AddressRequest
	if !common.BindJSON(c, &req) {
		return
	}
	address, err := h.catalog.UpdateAddress(c.Request.Context(), id, addressInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *CatalogHandler) DeleteAddress(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteAddress(c.Request.Context(), id); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func addressInput(req dto.AddressRequest) service.AddressInput {
	return service.AddressInput{
		District:      req.District,
		CityID:        req.CityID,
		Neighbourhood: req.Neighbourhood,
		FullAddress:   req.FullAddress,
	}
}

// ListWeekdays обрабатывает GET /weekdays.
func (h *CatalogHandler) ListWeekdays(c *gin.Context) {
	weekdays, err := h.catalog.ListWeekdays(c.Request.Context())
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, weekdays)
}

// ListExperts обрабатывает GET /experts?category_id=.
func (h *CatalogHandler) ListExperts(c *gin.Context) {
	categoryID, err := common.ParseUUIDQuery(c, "category_id")
	if err != nil {
		common.RespondBadRequest(c, "category_id должен быть валидным UUID")
		return
	}
	experts, err := h.catalog.ListExperts(c.Request.Context(), categoryID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, experts)
}

func (h *CatalogHandler) CreateExpert(c *gin.Context) {
	var req dto.ExpertRequest
	if !common.BindJSON(c, &req) {
		return
	}
	expert, err := h.catalog.CreateExpert(c.Request.Context(), service.ExpertInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Icon:       req.Icon,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expert)
}
