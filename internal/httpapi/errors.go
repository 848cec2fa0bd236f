package httpapi

import (
	"errors"
	"net/http"

	"voicedial-platform/internal/domain"

	"github.com/gin-gonic/gin"
)

// writeDomainError maps domain error kinds onto HTTP statuses.
// Handlers should funnel every service error through here so the
// status mapping stays in one place.
//
//	not found           -> 404
//	invalid transition  -> 409
//	conflicting update  -> 409
//	precondition failed -> 412
//	anything else       -> 500
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflictingUpdate):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPreconditionFailed):
		c.AbortWithStatusJSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
