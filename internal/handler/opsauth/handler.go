// Package opsauth exposes the staff console authentication endpoints.
package opsauth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/globalbeauty/concierge-api/internal/handler"
	"github.com/globalbeauty/concierge-api/internal/middleware"
	"github.com/globalbeauty/concierge-api/internal/model"
	opsauthService "github.com/globalbeauty/concierge-api/internal/service/opsauth"
)

type Handler struct {
	service      *opsauthService.Service
	auth         *middleware.Auth
	cookieMaxAge int
	secureCookie bool
}

func NewHandler(service *opsauthService.Service, auth *middleware.Auth, cookieMaxAge int, secureCookie bool) *Handler {
	return &Handler{
		service:      service,
		auth:         auth,
		cookieMaxAge: cookieMaxAge,
		secureCookie: secureCookie,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/ops/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/users", h.CreateUser)
		auth.GET("/me", middleware.RequireOps(), h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.OpsLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	opsUser, session, err := h.service.Login(c.Request.Context(), &req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.OpsSessionCookie, session.Token, h.cookieMaxAge, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(opsUser))
}

func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(middleware.OpsSessionCookie)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		handler.Error(c, err)
		return
	}
	h.auth.Forget(model.SessionUserTypeOps, token)

	c.SetCookie(middleware.OpsSessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// CreateUser provisions a staff account, gated by the admin secret in
// the payload rather than a session.
func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateOpsUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	opsUser, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(opsUser))
}

func (h *Handler) Me(c *gin.Context) {
	actor := middleware.CurrentIdentity(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"id":    actor.UserID,
		"email": actor.Email,
		"name":  actor.Name,
		"role":  actor.Role,
	}))
}
