package handlers

import (
	"errors"
	"net/http"

	"oddsley/internal/services"
	"oddsley/internal/tasks"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	registry *tasks.Registry
}

func NewTaskHandler(registry *tasks.Registry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// ListTasks returns the names of all registered tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	names := h.registry.Names()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    names,
		"count":   len(names),
	})
}

// RunTask executes a registered task immediately with the given params
// and returns its status string
func (h *TaskHandler) RunTask(c *gin.Context) {
	name := c.Param("name")

	var req struct {
		Params map[string]string `json:"params"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	status, err := h.registry.Run(c.Request.Context(), name, tasks.Params(req.Params))
	if err != nil {
		switch {
		case errors.Is(err, tasks.ErrUnknownTask):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrValidation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
	})
}
