package controllers

import (
	"Rally/errs"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses. The
// specific reason string ("game full", "already decided"...) is always
// surfaced so clients can show the real cause, not a generic failure.
func respondError(c *gin.Context, err error) {
	kind, ok := errs.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch kind {
	case errs.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.ReasonOf(err)})
	case errs.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": errs.ReasonOf(err)})
	case errs.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": errs.ReasonOf(err)})
	case errs.KindAuth:
		c.JSON(http.StatusForbidden, gin.H{"error": errs.ReasonOf(err)})
	case errs.KindTransient:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary store failure, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": errs.ReasonOf(err)})
	}
}
