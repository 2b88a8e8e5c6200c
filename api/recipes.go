package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipe-hand/services"
)

const maxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type namedPayload struct {
	Name string `json:"name"`
}

type recipePayload struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	TimeMinutes *int            `json:"time_minutes"`
	Price       *string         `json:"price"`
	Link        *string         `json:"link"`
	Tags        *[]namedPayload `json:"tags"`
	Ingredients *[]namedPayload `json:"ingredients"`
}

func (p recipePayload) input() services.RecipeInput {
	return services.RecipeInput{
		Title:       p.Title,
		Description: p.Description,
		TimeMinutes: p.TimeMinutes,
		Price:       p.Price,
		Link:        p.Link,
		Tags:        namesOf(p.Tags),
		Ingredients: namesOf(p.Ingredients),
	}
}

func namesOf(items *[]namedPayload) *[]string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(*items))
	for _, item := range *items {
		out = append(out, item.Name)
	}
	return &out
}

// parseIDs liest eine kommagetrennte ID-Liste wie "1,2,3".
func parseIDs(raw string) ([]uint, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func setupRecipeRoutes(router *gin.RouterGroup, deps Dependencies) {
	rg := router.Group("/recipes")
	svc := deps.Recipes
	log := deps.Logger
	const notFound = "recipe not found"

	rg.GET("/", func(c *gin.Context) {
		tagIDs, err := parseIDs(c.Query("tags"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "tags"})
			return
		}
		ingredientIDs, err := parseIDs(c.Query("ingredients"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "ingredients"})
			return
		}

		recipes, err := svc.List(c.Request.Context(), currentUserID(c), services.RecipeFilter{
			TagIDs:        tagIDs,
			IngredientIDs: ingredientIDs,
		})
		if err != nil {
			respondError(c, log, err, notFound)
			return
		}
		c.JSON(http.StatusOK, recipes)
	})

	rg.POST("/", func(c *gin.Context) {
		var payload recipePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		recipe, err := svc.Create(c.Request.Context(), currentUserID(c), payload.input())
		if err != nil {
			respondError(c, log, err, notFound)
			return
		}
		recipesCreatedCounter.Inc()
		c.JSON(http.StatusCreated, recipe)
	})

	rg.GET("/:id/", func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound})
			return
		}
		recipe, err := svc.Get(c.Request.Context(), currentUserID(c), id)
		if err != nil {
			respondError(c, log, err, notFound)
			return
		}
		c.JSON(http.StatusOK, recipe)
	})

	update := func(partial bool) gin.HandlerFunc {
		return func(c *gin.Context) {
			id, ok := pathID(c)
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": notFound})
				return
			}
			var payload recipePayload
			if err := bindJSON(c, &payload, partial); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}

			recipe, err := svc.Update(c.Request.Context(), currentUserID(c), id, payload.input(), partial)
			if err != nil {
				respondError(c, log, err, notFound)
				return
			}
			c.JSON(http.StatusOK, recipe)
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
		c.Status(http.StatusNoContent)
	})

	rg.POST("/:id/upload-image/", func(c *gin.Context) {
		if deps.Images == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
			return
		}
		id, ok := pathID(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound})
			return
		}
		userID := currentUserID(c)
		ctx := c.Request.Context()

		// Besitz vor dem Upload prüfen
		if _, err := svc.Get(ctx, userID, id); err != nil {
			respondError(c, log, err, notFound)
			return
		}

		header, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required", "field": "image"})
			return
		}
		if header.Size > maxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image too large", "field": "image"})
			return
		}
		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read image", "field": "image"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
		if err != nil || len(data) > maxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read image", "field": "image"})
			return
		}

		contentType := http.DetectContentType(data)
		ext, ok := imageExtensions[contentType]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Upload a valid image (jpeg or png).", "field": "image"})
			return
		}
		if orig := strings.ToLower(filepath.Ext(header.Filename)); orig == ".jpeg" && ext == ".jpg" {
			ext = orig
		}

		key := fmt.Sprintf("uploads/recipe/%s%s", uuid.NewString(), ext)
		link, err := deps.Images.Upload(ctx, key, data, contentType)
		if err != nil {
			log.Error("Image upload failed", zap.Uint("recipe_id", id), zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store image"})
			return
		}

		recipe, err := svc.SetImage(ctx, userID, id, link)
		if err != nil {
			respondError(c, log, err, notFound)
			return
		}
		imagesUploadedCounter.Inc()
		log.Info("Recipe image uploaded", zap.Uint("recipe_id", id), zap.String("key", key))
		c.JSON(http.StatusOK, gin.H{"id": recipe.ID, "image": recipe.ImageURL})
	})
}
