package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-hand/services"
)

type registerPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type tokenPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type profilePayload struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func setupUserRoutes(router *gin.Engine, deps Dependencies) {
	rg := router.Group("/api/user")
	log := deps.Logger

	rg.POST("/create/", func(c *gin.Context) {
		var payload registerPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		user, err := deps.Users.Register(c.Request.Context(), payload.Email, payload.Password, payload.Name)
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "email"})
			return
		}
		if err != nil {
			respondError(c, log, err, "user not found")
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	rg.POST("/token/", func(c *gin.Context) {
		var payload tokenPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		user, err := deps.Users.Authenticate(c.Request.Context(), payload.Email, payload.Password)
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			respondError(c, log, err, "user not found")
			return
		}

		token, err := deps.Tokens.Issue(user)
		if err != nil {
			log.Error("Failed to issue token", zap.Uint("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	me := rg.Group("/me")
	me.Use(tokenAuthMiddleware(deps.Tokens, deps.Users, log))

	me.GET("/", func(c *gin.Context) {
		user, err := deps.Users.Get(c.Request.Context(), currentUserID(c))
		if err != nil {
			respondError(c, log, err, "user not found")
			return
		}
		c.JSON(http.StatusOK, user)
	})

	updateProfile := func(c *gin.Context) {
		var payload profilePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		user, err := deps.Users.Update(c.Request.Context(), currentUserID(c), services.UserUpdate{
			Name:     payload.Name,
			Password: payload.Password,
		})
		if err != nil {
			respondError(c, log, err, "user not found")
			return
		}
		c.JSON(http.StatusOK, user)
	}
	me.PATCH("/", updateProfile)
	me.PUT("/", updateProfile)
}
