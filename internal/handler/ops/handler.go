// Package ops exposes the staff booking pipeline endpoints. Every route
// sits behind the ops session guard.
package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/globalbeauty/concierge-api/internal/handler"
	"github.com/globalbeauty/concierge-api/internal/middleware"
	"github.com/globalbeauty/concierge-api/internal/model"
	bookingService "github.com/globalbeauty/concierge-api/internal/service/booking"
	notifyService "github.com/globalbeauty/concierge-api/internal/service/notify"
)

type Handler struct {
	bookings *bookingService.Service
	notify   *notifyService.Service
}

func NewHandler(bookings *bookingService.Service, notify *notifyService.Service) *Handler {
	return &Handler{bookings: bookings, notify: notify}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ops := r.Group("/ops", middleware.RequireOps())
	{
		ops.GET("/bookings", h.Queue)
		ops.GET("/bookings/stats", h.Stats)
		ops.GET("/bookings/:id", h.GetBooking)
		ops.PATCH("/bookings/:id/status", h.UpdateStatus)
		ops.POST("/bookings/:id/message", h.SendMessage)
	}
}

// Queue serves the work queue with SLA annotations, optionally filtered
// to one status.
func (h *Handler) Queue(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	p.Normalize(20, 100)

	items, total, err := h.bookings.Queue(c.Request.Context(), model.BookingStatus(c.Query("status")), p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewPaginatedResponse(items, total, p))
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.bookings.Stats(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) GetBooking(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), "")
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}

// SendMessage re-sends a template email to the booking contact on a
// staff member's request.
func (h *Handler) SendMessage(c *gin.Context) {
	var req struct {
		Template string `json:"template" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), "")
	if err != nil {
		handler.Error(c, err)
		return
	}

	recipient, err := h.notify.SendMessage(c.Request.Context(), booking, req.Template)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"template":  req.Template,
		"recipient": recipient,
	}))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	booking, err := h.bookings.Transition(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}
