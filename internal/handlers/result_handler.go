package handlers

import (
	"net/http"

	"oddsley/internal/services"

	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	results *services.ResultService
}

func NewResultHandler(results *services.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// GetResults returns stored event results, optionally for one event
func (h *ResultHandler) GetResults(c *gin.Context) {
	eventID := c.Query("event")

	results, err := h.results.GetResults(eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
		"count":   len(results),
	})
}
