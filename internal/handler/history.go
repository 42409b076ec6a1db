package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AbhyDev/PostDisaster-Ai-Agentic-Alert-System/internal/repository"
)

const maxHistoryLimit = 100

// ListRuns GET /analyses/?limit=20
func (h *AnalysisHandler) ListRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.service.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analyses": runs,
		"total":    len(runs),
	})
}

// GetRun GET /analyses/:run_id
func (h *AnalysisHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Param("run_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Analysis run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
