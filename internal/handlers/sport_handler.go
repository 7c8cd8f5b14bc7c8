package handlers

import (
	"net/http"

	"oddsley/internal/models"
	"oddsley/internal/oddsapi"
	"oddsley/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SportHandler struct {
	db      *gorm.DB
	service *services.SportService
}

func NewSportHandler(db *gorm.DB, service *services.SportService) *SportHandler {
	return &SportHandler{db: db, service: service}
}

// GetSports returns all sports, optionally only active ones
func (h *SportHandler) GetSports(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	sports, err := h.service.GetSports(activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sports,
		"count":   len(sports),
	})
}

// GetSportByKey returns a specific sport by its provider key
func (h *SportHandler) GetSportByKey(c *gin.Context) {
	key := c.Param("key")

	var sport models.Sport
	if err := h.db.Where("key = ?", key).First(&sport).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sport not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sport"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sport,
	})
}

// CreateSport upserts a sport by its provider key
func (h *SportHandler) CreateSport(c *gin.Context) {
	var req oddsapi.SportData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	sport, created, err := h.service.UpsertSport(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upsert sport"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success": true,
		"data":    sport,
		"created": created,
	})
}
