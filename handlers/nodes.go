package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"xandpulse/config"
	"xandpulse/models"
	"xandpulse/services"
	"xandpulse/utils"
)

type Handler struct {
	Cfg       *config.Config
	Cache     *services.CacheService
	Store     services.TelemetryStore
	Scheduler *services.Scheduler
}

func NewHandler(cfg *config.Config, cache *services.CacheService, store services.TelemetryStore, scheduler *services.Scheduler) *Handler {
	return &Handler{
		Cfg:       cfg,
		Cache:     cache,
		Store:     store,
		Scheduler: scheduler,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// NodesResponse is the latest probe results of one network.
type NodesResponse struct {
	Network string               `json:"network"`
	Total   int                  `json:"total"`
	Online  int                  `json:"online"`
	Nodes   []models.ProbeResult `json:"nodes"`
}

// GetNodes godoc
// @Summary Latest probe results for a network
// @Param network query string true "Network name"
// @Param status query string false "Filter by status (online, offline)"
// @Router /api/nodes [get]
func (h *Handler) GetNodes(c echo.Context) error {
	network := c.QueryParam("network")
	if network == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "network is required"})
	}

	nodes, found := h.Cache.GetNetworkNodes(network)
	if !found {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "no data collected for network " + network + " yet"})
	}

	statusFilter := strings.ToLower(c.QueryParam("status"))
	resp := NodesResponse{Network: network, Nodes: make([]models.ProbeResult, 0, len(nodes))}
	for _, n := range nodes {
		if n.Online() {
			resp.Online++
		}
		if statusFilter != "" && n.Status != statusFilter {
			continue
		}
		resp.Nodes = append(resp.Nodes, n)
	}
	resp.Total = len(nodes)

	sort.SliceStable(resp.Nodes, func(i, j int) bool {
		return resp.Nodes[i].Address < resp.Nodes[j].Address
	})

	return c.JSON(http.StatusOK, resp)
}

// GetVersions godoc
// @Summary Registry version distribution of a network, newest version first
// @Param network query string true "Network name"
// @Router /api/versions [get]
func (h *Handler) GetVersions(c echo.Context) error {
	network := c.QueryParam("network")
	if network == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "network is required"})
	}

	snap, found := h.Cache.GetLatestSnapshot(network)
	if !found {
		stored, err := h.Store.LatestNetworkSnapshot(c.Request().Context(), network)
		if err != nil || stored == nil {
			return c.JSON(http.StatusOK, []models.VersionCount{})
		}
		snap = stored
	}

	return c.JSON(http.StatusOK, utils.SortVersionDistribution(snap.VersionDistribution))
}
