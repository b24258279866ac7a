package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"xandpulse/models"
	"xandpulse/services"
)

// HealthResponse reports liveness and backend connectivity.
type HealthResponse struct {
	Status           string              `json:"status"`
	Timestamp        time.Time           `json:"timestamp"`
	StorageConnected bool                `json:"storage_connected"`
	CacheMode        string              `json:"cache_mode"`
	Scheduler        string              `json:"scheduler"`
	SkippedCycles    int64               `json:"skipped_cycles"`
	LastCycle        *models.CycleReport `json:"last_cycle,omitempty"`
}

// GetHealth godoc
// @Summary Process liveness plus storage connectivity
// @Router /health [get]
func (h *Handler) GetHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:           "ok",
		Timestamp:        time.Now(),
		StorageConnected: h.Store.Connected(),
		CacheMode:        string(h.Cache.GetCacheMode()),
		Scheduler:        h.Scheduler.State(),
		SkippedCycles:    h.Scheduler.Skipped(),
	}
	if report, ok := h.Scheduler.LastReport(); ok {
		resp.LastCycle = &report
	}
	return c.JSON(http.StatusOK, resp)
}

// TriggerCollection godoc
// @Summary Start a collection cycle now
// @Success 202
// @Failure 409 {object} ErrorResponse
// @Router /api/collect [post]
func (h *Handler) TriggerCollection(c echo.Context) error {
	err := h.Scheduler.TriggerNow()
	if errors.Is(err, services.ErrCycleRunning) {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"message": "collection cycle started"})
}
