package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/models"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// ProviderHandler карточки сервис-провайдеров и вложенные сущности.
type ProviderHandler struct {
	providers *service.ProviderService
}

func NewProviderHandler(providers *service.ProviderService) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

// List обрабатывает GET /service-providers?category_id=&q=&limit=&offset=.
func (h *ProviderHandler) List(c *gin.Context) {
	categoryID, err := common.ParseUUIDQuery(c, "category_id")
	if err != nil {
		common.RespondBadRequest(c, "category_id должен быть валидным UUID")
		return
	}
	limit, offset := common.GetPagination(c)

	items, err := h.providers.List(c.Request.Context(), models.ProviderFilter{
		CategoryID: categoryID,
		Query:      c.Query("q"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Limit: limit, Offset: offset})
}

// Get обрабатывает GET /service-providers/:id. С токеном в ответе есть user_rate.
func (h *ProviderHandler) Get(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.providers.Get(c.Request.Context(), id, common.OptionalUserID(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Create обрабатывает POST /service-providers.
func (h *ProviderHandler) Create(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	var req dto.ProviderRequest
	if !common.BindJSON(c, &req) {
		return
	}

	sp, err := h.providers.Create(c.Request.Context(), actor, providerInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

// Update обрабатывает PUT /service-providers/:id.
func (h *ProviderHandler) Update(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ProviderRequest
	if !common.BindJSON(c, &req) {
		return
	}

	sp, err := h.providers.Update(c.Request.Context(), actor, id, providerInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

// Delete обрабатывает DELETE /service-providers/:id.
func (h *ProviderHandler) Delete(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.providers.Delete(c.Request.Context(), actor, id); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OwnerMe обрабатывает GET /owners/me.
func (h *ProviderHandler) OwnerMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return
	}
	overview, err := h.providers.OwnerOverview(c.Request.Context(), userID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func providerInput(req dto.ProviderRequest) service.ProviderInput {
	return service.ProviderInput{
		Name:       req.Name,
		AddressID:  req.AddressID,
		CategoryID: req.CategoryID,
		Location:   req.Location,
	}
}

// --- рабочее время ---

func (h *ProviderHandler) ListWorkTimes(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.providers.ListWorkTimes(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ProviderHandler) CreateWorkTime(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	var req dto.WorkTimeRequest
	if !common.BindJSON(c, &req) {
		return
	}
	wt, err := h.providers.CreateWorkTime(c.Request.Context(), actor, providerID, workTimeInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wt)
}

func (h *ProviderHandler) UpdateWorkTime(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	itemID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	var req dto.WorkTimeRequest
	if !common.BindJSON(c, &req) {
		return
	}
	wt, err := h.providers.UpdateWorkTime(c.Request.Context(), actor, providerID, itemID, workTimeInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wt)
}

func (h *ProviderHandler) DeleteWorkTime(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	itemID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	if err := h.providers.DeleteWorkTime(c.Request.Context(), actor, providerID, itemID); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func workTimeInput(req dto.WorkTimeRequest) service.WorkTimeInput {
	return service.WorkTimeInput{
		WeekdayID: req.WeekdayID,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		IsActive:  req.IsActive,
	}
}

// --- теги ---

func (h *ProviderHandler) ListTags(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	tags, err := h.providers.ListTags(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *ProviderHandler) CreateTag(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	var req dto.TagRequest
	if !common.BindJSON(c, &req) {
		return
	}
	tag, err := h.providers.CreateTag(c.Request.Context(), actor, providerID, service.TagInput{Key: req.Key, Value: req.Value})
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *ProviderHandler) DeleteTag(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	itemID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	if err := h.providers.DeleteTag(c.Request.Context(), actor, providerID, itemID); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- изображения ---

func (h *ProviderHandler) ListImages(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	images, err := h.providers.ListImages(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// UploadImage обрабатывает POST /service-providers/:id/images (multipart: file, kind).
func (h *ProviderHandler) UploadImage(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondBadRequest(c, "файл не передан")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	img, err := h.providers.UploadImage(c.Request.Context(), actor, providerID, c.PostForm("kind"), fileHeader.Filename, file)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *ProviderHandler) DeleteImage(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	itemID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	if err := h.providers.DeleteImage(c.Request.Context(), actor, providerID, itemID); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- специализации ---

func (h *ProviderHandler) ListExperts(c *gin.Context) {
	id, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	experts, err := h.providers.ListExperts(c.Request.Context(), id)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, experts)
}

func (h *ProviderHandler) AddExpert(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	var req dto.ProviderExpertRequest
	if !common.BindJSON(c, &req) {
		return
	}
	pe, err := h.providers.AddExpert(c.Request.Context(), actor, providerID, req.ExpertID, req.IsActive)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pe)
}

// RemoveExpert обрабатывает DELETE /service-providers/:id/experts/:itemId, где itemId это expert_id.
func (h *ProviderHandler) RemoveExpert(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	expertID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	if err := h.providers.RemoveExpert(c.Request.Context(), actor, providerID, expertID); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// actorAndProvider общий пролог записывающих вложенных маршрутов.
func actorAndProvider(c *gin.Context) (service.Actor, uuid.UUID, bool) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c)
		return service.Actor{}, uuid.Nil, false
	}
	providerID, ok := common.PathUUID(c, "id")
	if !ok {
		return service.Actor{}, uuid.Nil, false
	}
	return actor, providerID, true
}
