package handlers

import (
	"net/http"
	"strconv"

	"oddsley/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TeamHandler struct {
	db *gorm.DB
}

func NewTeamHandler(db *gorm.DB) *TeamHandler {
	return &TeamHandler{db: db}
}

// GetTeams returns teams with optional sport filtering
func (h *TeamHandler) GetTeams(c *gin.Context) {
	sportKey := c.Query("sport")
	limit := c.DefaultQuery("limit", "100")
	offset := c.DefaultQuery("offset", "0")

	limitInt, _ := strconv.Atoi(limit)
	offsetInt, _ := strconv.Atoi(offset)

	var teams []models.Team
	query := h.db.Preload("Sport").Order("name")
	if sportKey != "" {
		query = query.Joins("JOIN sports ON sports.id = teams.sport_id").
			Where("sports.key = ?", sportKey)
	}

	if err := query.Limit(limitInt).Offset(offsetInt).Find(&teams).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch teams"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    teams,
		"count":   len(teams),
	})
}
