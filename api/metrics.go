package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal     *prometheus.CounterVec
	recipesCreatedCounter prometheus.Counter
	imagesUploadedCounter prometheus.Counter
)

func init() {
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	recipesCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recipes_created_total",
			Help: "Total number of recipes created.",
		},
	)
	imagesUploadedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recipe_images_uploaded_total",
			Help: "Total number of recipe images uploaded.",
		},
	)
	prometheus.MustRegister(httpRequestsTotal, recipesCreatedCounter, imagesUploadedCounter)
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
