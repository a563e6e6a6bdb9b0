// Package review exposes the review endpoints.
package review

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/globalbeauty/concierge-api/internal/handler"
	"github.com/globalbeauty/concierge-api/internal/middleware"
	"github.com/globalbeauty/concierge-api/internal/model"
	reviewService "github.com/globalbeauty/concierge-api/internal/service/review"
)

type Handler struct {
	service *reviewService.Service
}

func NewHandler(service *reviewService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reviews := r.Group("/reviews")
	{
		reviews.POST("", middleware.RequireUser(), h.CreateReview)
		reviews.GET("/my-reviews", middleware.RequireUser(), h.ListMyReviews)
		reviews.GET("/eligibility/:bookingId", h.CheckEligibility)
		reviews.POST("/:id/helpful", h.MarkHelpful)
	}
	r.GET("/clinics/:id/reviews", h.ListClinicReviews)
}

func (h *Handler) CreateReview(c *gin.Context) {
	var req model.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	review, err := h.service.Create(c.Request.Context(), middleware.CurrentIdentity(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(review))
}

func (h *Handler) ListMyReviews(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	p.Normalize(20, 100)

	reviews, total, err := h.service.ListMine(c.Request.Context(), middleware.CurrentIdentity(c), p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewPaginatedResponse(reviews, total, p))
}

func (h *Handler) CheckEligibility(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid booking id"))
		return
	}

	eligibility, err := h.service.CanReview(c.Request.Context(), middleware.CurrentIdentity(c), bookingID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(eligibility))
}

func (h *Handler) MarkHelpful(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid review id"))
		return
	}

	count, err := h.service.MarkHelpful(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"helpful_count": count}))
}

func (h *Handler) ListClinicReviews(c *gin.Context) {
	clinicID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid clinic id"))
		return
	}

	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	p.Normalize(20, 100)

	filters := &model.ReviewFilters{
		ClinicID:   clinicID,
		Sort:       model.ReviewSort(c.Query("sort")),
		Pagination: p,
	}

	reviews, total, stats, err := h.service.ListByClinic(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"items":       reviews,
		"total":       total,
		"page":        p.Page,
		"limit":       p.Limit,
		"total_pages": p.TotalPages(total),
		"stats":       stats,
	}))
}
