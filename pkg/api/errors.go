package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oldnordic/odincode/pkg/plan"
)

// writeError maps a domain error to an HTTP status, following tarsy's
// pkg/api/errors.go mapServiceError dispatch-by-errors.As/Is pattern.
func writeError(c *gin.Context, err error) {
	var verr *plan.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	if errors.Is(err, plan.ErrEmptyPlan) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	slog.Error("api: unhandled error", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
