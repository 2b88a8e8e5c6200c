package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-hand/services"
)

// attributeService ist die gemeinsame Schnittstelle der Zutaten- und
// Tag-Services.
type attributeService[T any] interface {
	List(ctx context.Context, userID uint, filter services.ListFilter) ([]T, error)
	Get(ctx context.Context, userID, id uint) (*T, error)
	Update(ctx context.Context, userID, id uint, name string) (*T, error)
	Delete(ctx context.Context, userID, id uint) error
}

type attributePayload struct {
	Name *string `json:"name"`
}

func setupAttributeRoutes[T any](rg *gin.RouterGroup, svc attributeService[T], label string, log *zap.Logger) {
	notFound := label + " not found"

	rg.GET("/", func(c *gin.Context) {
		assignedOnly, ok := parseFlag(c.Query("assigned_only"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assigned_only must be 0 or 1", "field": "assigned_only"})
			return
		}

		items, err := svc.List(c.Request.Context(), currentUserID(c), services.ListFilter{AssignedOnly: assignedOnly})
		if err != nil {
			respondError(c, log, err, notFound)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	rg.GET("/:id/", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound})
			return
		}
		item, err := svc.Get(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondError(c, log, err, notFound)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	update := func(partial bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": notFound})
				return
			}

			var payload attributePayload
			if err := bindJSON(c, &payload, partial); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}

			userID := currentUserID(c)
			if payload.Name == nil {
				if !partial {
					c.JSON(http.StatusBadRequest, gin.H{"error": "This field is required.", "field": "name"})
					return
				}
				item, err := svc.Get(c.Request.Context(), userID, id)
				if err != nil {
					respondError(c, log, err, notFound)
					return
				}
				c.JSON(http.StatusOK, item)
				return
			}

			item, err := svc.Update(c.Request.Context(), userID, id, *payload.Name)
			if err != nil {
				respondError(c, log, err, notFound)
				return
			}
			c.JSON(http.StatusOK, item)
		}
	}
	rg.PATCH("/:id/", update(true))
	rg.PUT("/:id/", update(false))

	rg.DELETE("/:id/", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound})
			return
		}
		if err := svc.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
			respondError(c, log, err, notFound)
			return
		}
		log.Info("Deleted "+label, zap.Uint("id", id), zap.Uint("user_id", currentUserID(c)))
		c.Status(http.StatusNoContent)
	})
}

// parseFlag wertet 0/1 bzw. true/false aus; leer gilt als false.
func parseFlag(raw string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false":
		return false, true
	case "1", "true":
		return true, true
	}
	return false, false
}
