package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"xandpulse/models"
	"xandpulse/services"
)

// AlertHandlers manages alert subscription endpoints
type AlertHandlers struct {
	alertService *services.AlertService
}

func NewAlertHandlers(alertService *services.AlertService) *AlertHandlers {
	return &AlertHandlers{
		alertService: alertService,
	}
}

// Subscribe godoc
// @Summary Watch a node from a channel (Discord channel id or webhook URL)
// @Router /api/alerts/subscriptions [post]
func (ah *AlertHandlers) Subscribe(c echo.Context) error {
	var sub models.Subscription
	if err := c.Bind(&sub); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if err := ah.alertService.Subscribe(sub.Channel, sub.Pubkey); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusCreated, sub)
}

// Unsubscribe godoc
// @Router /api/alerts/subscriptions [delete]
func (ah *AlertHandlers) Unsubscribe(c echo.Context) error {
	var sub models.Subscription
	if err := c.Bind(&sub); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	removed, err := ah.alertService.Unsubscribe(sub.Channel, sub.Pubkey)
	if errors.Is(err, services.ErrInvalidSubscription) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if !removed {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "subscription not found"})
	}

	return c.NoContent(http.StatusNoContent)
}

// ListSubscriptions godoc
// @Router /api/alerts/subscriptions/{channel} [get]
func (ah *AlertHandlers) ListSubscriptions(c echo.Context) error {
	channel := c.Param("channel")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"channel": channel,
		"pubkeys": ah.alertService.Subscriptions(channel),
	})
}

// GetAlertHistory godoc
// @Param limit query int false "Number of events (default 50)"
// @Router /api/alerts/history [get]
func (ah *AlertHandlers) GetAlertHistory(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}
	return c.JSON(http.StatusOK, ah.alertService.GetHistory(limit))
}
