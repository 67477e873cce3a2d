package middleware

import (
	"strings"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	AdminIdentityKey   = "admin_identity"
	AdminSessionHeader = "X-Admin-Session"
)

// RequireAdmin accepts a Bearer identity token from an allowlisted email or
// a live admin session id. Bearer wins when both are sent.
func RequireAdmin(admin service.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			identity *dto.AdminIdentity
			err      error
		)
		header := c.GetHeader("Authorization")
		session := strings.TrimSpace(c.GetHeader(AdminSessionHeader))
		switch {
		case strings.HasPrefix(header, "Bearer "):
			identity, err = admin.AuthorizeBearer(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		case session != "":
			identity, err = admin.VerifySession(c.Request.Context(), session)
		default:
			err = apierror.New(apierror.Unauthenticated, "Autenticación requerida")
		}
		if err != nil {
			apiErr := apierror.From(err)
			log.Warn().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("path", c.FullPath()).
				Str("code", string(apiErr.Code)).
				Msg("admin gate rejected request")
			c.AbortWithStatusJSON(apiErr.Code.HTTPStatus(), apierror.Response(apiErr))
			return
		}
		c.Set(AdminIdentityKey, identity)
		c.Next()
	}
}

// GetAdmin returns the identity set by RequireAdmin, or nil.
func GetAdmin(c *gin.Context) *dto.AdminIdentity {
	v, ok := c.Get(AdminIdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*dto.AdminIdentity)
	return identity
}
