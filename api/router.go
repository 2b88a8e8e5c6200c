package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recipe-hand/models"
	"recipe-hand/services"
	"recipe-hand/storage"
)

// Dependencies bündelt alles, was die HTTP-Routen benötigen.
type Dependencies struct {
	Logger      *zap.Logger
	Tokens      *services.TokenIssuer
	Users       *services.UserService
	Recipes     *services.RecipeService
	Ingredients *services.IngredientService
	Tags        *services.TagService
	// Images ist nil, wenn kein Bildspeicher konfiguriert ist.
	Images storage.ImageStore
	// Ready prüft die Datenbank für /ready.
	Ready services.Probe
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(deps.Logger))
	router.Use(metricsMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupHealthRoutes(router, deps.Ready, deps.Logger)
	setupUserRoutes(router, deps)

	rg := router.Group("/api/recipe")
	rg.Use(tokenAuthMiddleware(deps.Tokens, deps.Users, deps.Logger))
	setupRecipeRoutes(rg, deps)
	setupAttributeRoutes[models.Ingredient](rg.Group("/ingredients"), deps.Ingredients, "ingredient", deps.Logger)
	setupAttributeRoutes[models.Tag](rg.Group("/tags"), deps.Tags, "tag", deps.Logger)

	return router
}
