package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	patcache "github.com/patrickmn/go-cache"

	"github.com/globalbeauty/concierge-api/internal/model"
	"github.com/globalbeauty/concierge-api/internal/service/identity"
)

const (
	// SessionCookie carries the consumer session token.
	SessionCookie = "session"
	// OpsSessionCookie carries the staff console session token.
	OpsSessionCookie = "ops_session"

	contextIdentity = "identity"
)

// Auth resolves request credentials into an Identity once per request.
// Resolutions are cached briefly per token, so a revoked session can
// survive at most the cache TTL.
type Auth struct {
	resolver *identity.Service
	cache    *patcache.Cache
}

func NewAuth(resolver *identity.Service, cacheTTL time.Duration) *Auth {
	return &Auth{
		resolver: resolver,
		cache:    patcache.New(cacheTTL, 5*time.Minute),
	}
}

// Identify resolves the session cookies and stores the identity in the
// context. It never rejects; unauthenticated requests proceed as
// Anonymous and route guards decide what that means.
func (a *Auth) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := model.Anonymous

		if token, err := c.Cookie(OpsSessionCookie); err == nil && token != "" {
			actor = a.resolve(c, "ops:"+token, func() model.Identity {
				return a.resolver.ResolveOps(c.Request.Context(), token)
			})
		}
		if actor.IsAnonymous() {
			if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
				actor = a.resolve(c, "user:"+token, func() model.Identity {
					return a.resolver.Resolve(c.Request.Context(), token)
				})
			}
		}

		c.Set(contextIdentity, actor)
		c.Next()
	}
}

func (a *Auth) resolve(c *gin.Context, key string, fn func() model.Identity) model.Identity {
	if cached, ok := a.cache.Get(key); ok {
		return cached.(model.Identity)
	}
	actor := fn()
	if !actor.IsAnonymous() {
		a.cache.Set(key, actor, patcache.DefaultExpiration)
	}
	return actor
}

// Forget drops a cached token resolution, called on logout so the
// revocation is visible immediately.
func (a *Auth) Forget(userType model.SessionUserType, token string) {
	switch userType {
	case model.SessionUserTypeOps:
		a.cache.Delete("ops:" + token)
	default:
		a.cache.Delete("user:" + token)
	}
}

// RequireUser rejects requests without a registered-user identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).IsRegistered() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "login required",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}
		c.Next()
	}
}

// RequireOps rejects requests without an ops identity.
func RequireOps() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).IsOps() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "ops access required",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}
		c.Next()
	}
}

// RequireOpsRole rejects ops identities below the given role.
func RequireOpsRole(role model.OpsRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentIdentity(c)
		if !actor.IsOps() || (role == model.OpsRoleAdmin && actor.Role != model.OpsRoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Code:    http.StatusForbidden,
				Message: "insufficient role",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity resolved for this request.
func CurrentIdentity(c *gin.Context) model.Identity {
	if v, ok := c.Get(contextIdentity); ok {
		if actor, ok := v.(model.Identity); ok {
			return actor
		}
	}
	return model.Anonymous
}
