package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/servicehub-backend/internal/dto"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers/common"
	"github.com/ignatzorin/servicehub-backend/internal/service"
)

// ReviewHandler отзывы и оценки провайдера.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler создаёт новый обработчик отзывов.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// ListReviews обрабатывает GET /service-providers/:id/reviews.
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	providerID, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListReviews(c.Request.Context(), providerID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// CreateReview обрабатывает POST /service-providers/:id/reviews.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), actor.UserID, providerID, reviewInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

// UpdateReview обрабатывает PUT /service-providers/:id/reviews/:itemId.
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	reviewID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}

	review, err := h.reviews.UpdateReview(c.Request.Context(), actor.UserID, providerID, reviewID, reviewInput(req))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DeleteReview обрабатывает DELETE /service-providers/:id/reviews/:itemId.
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	reviewID, ok := common.PathUUID(c, "itemId")
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(c.Request.Context(), actor, providerID, reviewID); err != nil {
		common.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func reviewInput(req dto.ReviewRequest) service.ReviewInput {
	return service.ReviewInput{Title: req.Title, Description: req.Description, IsActive: req.IsActive}
}

// ListRates обрабатывает GET /service-providers/:id/rates.
func (h *ReviewHandler) ListRates(c *gin.Context) {
	providerID, ok := common.PathUUID(c, "id")
	if !ok {
		return
	}
	rates, err := h.reviews.ListRates(c.Request.Context(), providerID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// Rate обрабатывает PUT /service-providers/:id/rates. Повторная оценка заменяет прежнюю.
func (h *ReviewHandler) Rate(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	var req dto.RateRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.reviews.Rate(c.Request.Context(), actor.UserID, providerID, req.Score)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteRate обрабатывает DELETE /service-providers/:id/rates.
func (h *ReviewHandler) DeleteRate(c *gin.Context) {
	actor, providerID, ok := actorAndProvider(c)
	if !ok {
		return
	}
	result, err := h.reviews.DeleteRate(c.Request.Context(), actor.UserID, providerID)
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
