// Package auth exposes the consumer sign-in endpoints. Sessions ride an
// HTTP-only cookie; the token never appears in a response body.
package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/globalbeauty/concierge-api/internal/handler"
	"github.com/globalbeauty/concierge-api/internal/middleware"
	"github.com/globalbeauty/concierge-api/internal/model"
	authService "github.com/globalbeauty/concierge-api/internal/service/auth"
)

type Handler struct {
	service      *authService.Service
	auth         *middleware.Auth
	cookieMaxAge int
	secureCookie bool
}

func NewHandler(service *authService.Service, auth *middleware.Auth, cookieMaxAge int, secureCookie bool) *Handler {
	return &Handler{
		service:      service,
		auth:         auth,
		cookieMaxAge: cookieMaxAge,
		secureCookie: secureCookie,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/google", h.GoogleLogin)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireUser(), h.Me)
	}
}

func (h *Handler) GoogleLogin(c *gin.Context) {
	var req authService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	user, session, err := h.service.Login(c.Request.Context(), &req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, session.Token, h.cookieMaxAge, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}

func (h *Handler) Logout(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookie)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		handler.Error(c, err)
		return
	}
	h.auth.Forget(model.SessionUserTypeUser, token)

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}
