package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tenant-console-api/internal/domain"
)

// ErrorBody is the uniform error envelope. Error carries the stable kind
// code; clients switch on it, never on prose.
type ErrorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// WriteError maps a tagged error onto the HTTP surface. Untagged errors are
// infrastructure failures and surface as retryable 503s with no detail.
func WriteError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorBody{
			Error:     string(domain.KindTransient),
			Retryable: true,
		})
		return
	}
	c.AbortWithStatusJSON(statusOf(c, de.Kind), ErrorBody{
		Error:     string(de.Kind),
		Field:     de.Field,
		Retryable: de.Retryable,
	})
}

func statusOf(c *gin.Context, k domain.Kind) int {
	switch k {
	case domain.KindValidation, domain.KindDuplicateEmail:
		return http.StatusBadRequest
	case domain.KindMissingTenantClaim, domain.KindMissingSubjectClaim:
		return http.StatusUnauthorized
	case domain.KindCallerNotFound, domain.KindInsufficientPrivilege, domain.KindSelfDeletionForbidden:
		return http.StatusForbidden
	case domain.KindCrossTenantAccess:
		// reads hide the target's existence; mutations report the denial
		if c.Request.Method == http.MethodGet {
			return http.StatusNotFound
		}
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAllocationConflict:
		return http.StatusConflict
	case domain.KindThrottled:
		return http.StatusTooManyRequests
	case domain.KindOrphanedIdentity:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}
