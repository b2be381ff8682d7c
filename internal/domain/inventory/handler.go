package inventory

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vaxtrack/vaxtrack/internal/platform/auth"
	"github.com/vaxtrack/vaxtrack/pkg/pagination"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/batches/:id", h.GetBatch)
	api.GET("/vaccines/:vaccineId/batches", h.ListBatches)
	api.GET("/vaccines/:vaccineId/stock", h.GetAvailableStock)

	manager := api.Group("", auth.RequireRole("manager"))
	manager.POST("/batches", h.CreateBatch)
	manager.PUT("/batches/:id", h.UpdateBatch)
	manager.POST("/batches/:id/discard", h.DiscardBatch)
}

func (h *Handler) CreateBatch(c echo.Context) error {
	var b Batch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateBatch(c.Request().Context(), &b); err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetBatch(c.Request().Context(), id)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) UpdateBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch BatchPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.svc.UpdateBatch(c.Request().Context(), id, patch)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DiscardBatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.DiscardBatch(c.Request().Context(), id)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBatches(c echo.Context) error {
	vaccineID, err := uuid.Parse(c.Param("vaccineId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid vaccine id")
	}
	p := pagination.FromContext(c)
	filter := ListFilter{Status: c.QueryParam("status")}

	items, total, err := h.svc.ListBatchesByVaccine(c.Request().Context(), vaccineID, filter, p.Limit, p.Offset)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetAvailableStock(c echo.Context) error {
	vaccineID, err := uuid.Parse(c.Param("vaccineId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid vaccine id")
	}
	stock, err := h.svc.AvailableStock(c.Request().Context(), vaccineID)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"vaccine_id":      vaccineID,
		"available_stock": stock,
	})
}
