package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	APIName    = "PostDisaster AI System API"
	APIVersion = "1.0.0"
)

// Info GET /
func Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": APIName,
		"version": APIVersion,
		"endpoints": gin.H{
			"analyze_image":     "/analyze-image/",
			"analyze_city":      "/analyze-city/{city_id}",
			"get_cities":        "/cities/",
			"complete_analysis": "/complete-analysis/",
			"test_analysis":     "/test-analysis/",
			"analyses":          "/analyses/",
		},
	})
}

// Healthz GET /healthz
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
