package handlers

import (
	"net/http"
	"strconv"

	"oddsley/internal/models"
	"oddsley/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OddsHandler struct {
	db   *gorm.DB
	odds *services.OddsService
}

func NewOddsHandler(db *gorm.DB, odds *services.OddsService) *OddsHandler {
	return &OddsHandler{db: db, odds: odds}
}

// GetSnapshots returns odds snapshots with optional event filtering
func (h *OddsHandler) GetSnapshots(c *gin.Context) {
	eventID := c.Query("event")
	limit := c.DefaultQuery("limit", "50")
	limitInt, _ := strconv.Atoi(limit)

	snapshots, err := h.odds.GetSnapshots(eventID, limitInt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch snapshots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshots,
		"count":   len(snapshots),
	})
}

// GetSnapshotByID returns one snapshot with its full bookmaker tree
func (h *OddsHandler) GetSnapshotByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid snapshot id"})
		return
	}

	snapshot, err := h.odds.GetSnapshot(uint(id))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch snapshot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}

// DeleteSnapshot removes a snapshot; its bookmaker/market/outcome tree
// goes with it via cascade
func (h *OddsHandler) DeleteSnapshot(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid snapshot id"})
		return
	}

	result := h.db.Delete(&models.Odd{}, uint(id))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete snapshot"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Snapshot not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Snapshot deleted",
	})
}
