package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"backoffice-chat/internal/identity"
	"backoffice-chat/internal/transport/httpdto"
	"backoffice-chat/pkg/logger"
)

// AuthMiddleware resolves the bearer token to an actor once per request
// and stores it in the request context. Handlers never touch the token.
func AuthMiddleware(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		a, err := resolver.ResolveActor(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		ctx := identity.WithActor(c.Request.Context(), a)
		ctx = context.WithValue(ctx, logger.ActorKey, a.ID().String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
