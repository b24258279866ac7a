package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"xandpulse/services"
)

// HistoryHandlers manages historical data endpoints
type HistoryHandlers struct {
	historyService *services.HistoryService
	mongo          *services.MongoDBService
}

func NewHistoryHandlers(historyService *services.HistoryService, mongo *services.MongoDBService) *HistoryHandlers {
	return &HistoryHandlers{
		historyService: historyService,
		mongo:          mongo,
	}
}

func queryOr(c echo.Context, name, def string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return def
}

func badQuery(err error) bool {
	return errors.Is(err, services.ErrInvalidPeriod) || errors.Is(err, services.ErrInvalidInterval)
}

// GetNetworkHistory godoc
// @Summary Bucketed snapshot averages for one network
// @Param network query string true "Network name"
// @Param period query string false "1h, 6h, 24h, 7d or 30d (default 24h)"
// @Param interval query string false "1m, 5m, 15m, 1h or 6h (default 15m)"
// @Router /api/history/network [get]
func (hh *HistoryHandlers) GetNetworkHistory(c echo.Context) error {
	network := c.QueryParam("network")
	if network == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "network is required"})
	}

	points, err := hh.historyService.GetNetworkHistory(c.Request().Context(), network,
		queryOr(c, "period", "24h"), queryOr(c, "interval", "15m"))
	if badQuery(err) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, points)
}

// GetNodeHistory godoc
// @Summary Raw history rows for one node address
// @Param address path string true "Node address"
// @Param period query string false "1h, 6h, 24h, 7d or 30d (default 24h)"
// @Router /api/history/nodes/{address} [get]
func (hh *HistoryHandlers) GetNodeHistory(c echo.Context) error {
	address := c.Param("address")

	records, err := hh.historyService.GetNodeHistory(c.Request().Context(), address, queryOr(c, "period", "24h"))
	if badQuery(err) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, records)
}

// GetLatestSnapshots godoc
// @Summary Most recent snapshot of each network
// @Router /api/snapshots/latest [get]
func (hh *HistoryHandlers) GetLatestSnapshots(c echo.Context) error {
	return c.JSON(http.StatusOK, hh.historyService.GetLatestSnapshots(c.Request().Context()))
}

// GetAggregatedStats godoc
// @Summary Cross-network summary over a period
// @Param period query string false "1h, 6h, 24h, 7d or 30d (default 24h)"
// @Router /api/stats/aggregate [get]
func (hh *HistoryHandlers) GetAggregatedStats(c echo.Context) error {
	stats, err := hh.historyService.GetAggregatedStats(c.Request().Context(), queryOr(c, "period", "24h"))
	if badQuery(err) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

// GetStorageStats godoc
// @Summary Document counts of the telemetry collections
// @Router /api/storage/stats [get]
func (hh *HistoryHandlers) GetStorageStats(c echo.Context) error {
	if hh.mongo == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"connected": false})
	}

	counts, err := hh.mongo.GetDatabaseStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"connected":   hh.mongo.Connected(),
		"collections": counts,
	})
}
