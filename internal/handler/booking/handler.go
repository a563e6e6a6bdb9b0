// Package booking exposes the consumer booking endpoints.
package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/globalbeauty/concierge-api/internal/handler"
	"github.com/globalbeauty/concierge-api/internal/middleware"
	"github.com/globalbeauty/concierge-api/internal/model"
	bookingService "github.com/globalbeauty/concierge-api/internal/service/booking"
	identityService "github.com/globalbeauty/concierge-api/internal/service/identity"
)

type Handler struct {
	service  *bookingService.Service
	identity *identityService.Service
}

func NewHandler(service *bookingService.Service, identity *identityService.Service) *Handler {
	return &Handler{service: service, identity: identity}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/lookup", h.LookupBooking)
	}
	r.GET("/my/bookings", h.ListMyBookings)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	booking, err := h.service.Create(c.Request.Context(), h.actor(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(booking))
}

// GetBooking serves a single booking. Without a session cookie the code
// query param alone unlocks its own booking; email plus code also works
// for listings.
func (h *Handler) GetBooking(c *gin.Context) {
	booking, err := h.service.Get(c.Request.Context(), h.actor(c), c.Param("id"), c.Query("code"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}

type lookupRequest struct {
	Email      string `json:"email" binding:"required,email"`
	AccessCode string `json:"access_code" binding:"required"`
}

// LookupBooking resolves guest credentials to the booking they unlock.
func (h *Handler) LookupBooking(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actor := h.identity.ResolveGuest(c.Request.Context(), req.Email, req.AccessCode)
	if actor.IsAnonymous() {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("no booking matches those credentials"))
		return
	}

	booking, err := h.service.Get(c.Request.Context(), actor, actor.BookingID.String(), req.AccessCode)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(booking))
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	p.Normalize(20, 100)

	actor := h.actor(c)
	if actor.IsAnonymous() && c.Query("email") != "" && c.Query("code") != "" {
		// Credentials were supplied but matched nothing; keep the answer
		// generic.
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid email or access code"))
		return
	}

	bookings, total, err := h.service.ListMine(c.Request.Context(), actor, model.BookingStatus(c.Query("status")), p)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewPaginatedResponse(bookings, total, p))
}

// actor returns the session identity, falling back to guest credentials
// in the query string.
func (h *Handler) actor(c *gin.Context) model.Identity {
	actor := middleware.CurrentIdentity(c)
	if !actor.IsAnonymous() {
		return actor
	}

	email := c.Query("email")
	code := c.Query("code")
	if email != "" && code != "" {
		return h.identity.ResolveGuest(c.Request.Context(), email, code)
	}
	return actor
}
