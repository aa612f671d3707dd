package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/identity"
	"backoffice-chat/internal/transport/httpdto"
	chaterrors "backoffice-chat/pkg/errors"
)

// respondError maps the typed error taxonomy to HTTP. Anything outside
// the taxonomy is a 500 with no detail leaked.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chaterrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), "VALIDATION_FAILED"))
	case errors.Is(err, chaterrors.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, chaterrors.ErrNotAParticipant):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "NOT_A_PARTICIPANT"))
	case errors.Is(err, chaterrors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
	case errors.Is(err, chaterrors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	case errors.Is(err, chaterrors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), "CONFLICT"))
	case errors.Is(err, chaterrors.ErrInvalidOperation):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), "INVALID_OPERATION"))
	case errors.Is(err, chaterrors.ErrOwnershipMismatch):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), "OWNERSHIP_MISMATCH"))
	case errors.Is(err, chaterrors.ErrRateLimited):
		if retryAfter, ok := chaterrors.RetryAfter(err); ok && retryAfter > 0 {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
		}
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limited", "RATE_LIMITED"))
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}

// actorOrAbort returns the resolved actor, writing 401 if the auth
// middleware never ran.
func actorOrAbort(c *gin.Context) (actor.Actor, bool) {
	a, ok := identity.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return actor.Actor{}, false
	}
	return a, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid "+name, "INVALID_REQUEST"))
		return uuid.Nil, false
	}
	return parsed, true
}
