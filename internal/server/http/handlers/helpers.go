package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/server/http/middleware"
)

// CurrentMerchantCode extracts the authenticated merchant code from the
// request context.
func CurrentMerchantCode(c *gin.Context) string {
	val, ok := c.Get(middleware.MerchantCodeContextKey)
	if !ok {
		return ""
	}
	code, _ := val.(string)
	return code
}

// respondError maps domain errors to HTTP statuses. State rejections
// carry their human-readable reason.
func respondError(c *gin.Context, err error) {
	if se, ok := domainErrors.AsState(err); ok {
		c.JSON(http.StatusConflict, gin.H{"error": se.Reason})
		return
	}
	switch {
	case errors.Is(err, domainErrors.ErrNotFound),
		errors.Is(err, domainErrors.ErrMerchantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainErrors.ErrMerchantDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainErrors.ErrUnsupportedTradeType),
		errors.Is(err, domainErrors.ErrConfigMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainErrors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, domainErrors.ErrOperationInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainErrors.ErrGatewayInvocation):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusInternalServerError)
	}
}
