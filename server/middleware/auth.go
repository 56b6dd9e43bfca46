package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/account"
	apperrors "github.com/kbukum/scribe/errors"
)

const principalKey = "scribe.principal"

// Authenticator resolves a bearer token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (account.Principal, error)
}

// ErrorResponder writes a failed request.
type ErrorResponder func(c *gin.Context, err error)

// Auth requires "Authorization: Bearer <token>". A missing header is
// rejected with 401, a token that matches no account with 403.
func Auth(auth Authenticator, respond ErrorResponder) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			respond(c, apperrors.Unauthorized(""))
			return
		}
		p, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			respond(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// Principal returns the authenticated account set by Auth.
func Principal(c *gin.Context) (account.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return account.Principal{}, false
	}
	p, ok := v.(account.Principal)
	return p, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
