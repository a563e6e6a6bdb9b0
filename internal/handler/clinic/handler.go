// Package clinic exposes the public clinic directory endpoints.
package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/globalbeauty/concierge-api/internal/handler"
	"github.com/globalbeauty/concierge-api/internal/model"
	clinicService "github.com/globalbeauty/concierge-api/internal/service/clinic"
)

type Handler struct {
	service *clinicService.Service
}

func NewHandler(service *clinicService.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinics := r.Group("/clinics")
	{
		clinics.GET("", h.ListClinics)
		clinics.GET("/:id", h.GetClinic)
	}
}

func (h *Handler) ListClinics(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	p.Normalize(20, 100)

	filters := &model.ClinicFilters{
		City:       model.City(c.Query("city")),
		Tag:        c.Query("tag"),
		Pagination: p,
	}

	clinics, total, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewPaginatedResponse(clinics, total, p))
}

func (h *Handler) GetClinic(c *gin.Context) {
	clinic, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}
