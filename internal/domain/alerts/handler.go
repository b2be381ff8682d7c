package alerts

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/alerts", h.GetAlerts)
}

func (h *Handler) GetAlerts(c echo.Context) error {
	horizon := 0
	if v := c.QueryParam("horizon_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid horizon_days")
		}
		horizon = n
	}

	alerts, err := h.svc.CurrentAlerts(c.Request().Context(), horizon)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	return c.JSON(http.StatusOK, alerts)
}
