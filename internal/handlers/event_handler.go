package handlers

import (
	"net/http"
	"strconv"

	"oddsley/internal/models"
	"oddsley/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EventHandler struct {
	db     *gorm.DB
	events *services.EventService
	odds   *services.OddsService
}

func NewEventHandler(db *gorm.DB, events *services.EventService, odds *services.OddsService) *EventHandler {
	return &EventHandler{db: db, events: events, odds: odds}
}

// GetEvents returns events with optional sport filtering
func (h *EventHandler) GetEvents(c *gin.Context) {
	sportKey := c.Query("sport")
	limit := c.DefaultQuery("limit", "100")
	limitInt, _ := strconv.Atoi(limit)

	events, err := h.events.GetEvents(sportKey, limitInt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    events,
		"count":   len(events),
	})
}

// GetEventByID returns a specific event with its teams and sport
func (h *EventHandler) GetEventByID(c *gin.Context) {
	eventID := c.Param("id")

	var event models.Event
	err := h.db.Preload("Sport").Preload("HomeTeam").Preload("AwayTeam").
		Where("id = ?", eventID).First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    event,
	})
}

// GetEventOdds returns all odds snapshots for an event
func (h *EventHandler) GetEventOdds(c *gin.Context) {
	eventID := c.Param("id")
	limit := c.DefaultQuery("limit", "50")
	limitInt, _ := strconv.Atoi(limit)

	snapshots, err := h.odds.GetSnapshots(eventID, limitInt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch odds"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshots,
		"count":   len(snapshots),
	})
}
