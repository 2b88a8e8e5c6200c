package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-hand/services"
)

// respondError übersetzt Service-Fehler in HTTP-Antworten.
func respondError(c *gin.Context, log *zap.Logger, err error, notFound string) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
}

// pathID liest :id. Ungültige IDs werden wie unbekannte behandelt.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// bindJSON liest den Request-Body. Bei partial ist ein leerer Body ein
// leeres Update.
func bindJSON(c *gin.Context, dst any, partial bool) error {
	err := c.ShouldBindJSON(dst)
	if partial && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
