package catalog

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
	api.GET("/vaccines", h.ListVaccines)
	api.GET("/vaccines/:id", h.GetVaccine)

	manager := api.Group("", auth.RequireRole("manager"))
	manager.POST("/vaccines", h.CreateVaccine)
	manager.PUT("/vaccines/:id", h.UpdateVaccine)
	manager.DELETE("/vaccines/:id", h.DeleteVaccine)
}

func (h *Handler) CreateVaccine(c echo.Context) error {
	var v Vaccine
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateVaccine(c.Request().Context(), &v); err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVaccine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVaccine(c.Request().Context(), id)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateVaccine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch Vaccine
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	v, err := h.svc.UpdateVaccine(c.Request().Context(), id, &patch)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVaccine(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteVaccine(c.Request().Context(), id); err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListVaccines(c echo.Context) error {
	p := pagination.FromContext(c)

	var filter ListFilter
	switch c.QueryParam("obligatory") {
	case "true":
		t := true
		filter.Obligatory = &t
	case "false":
		f := false
		filter.Obligatory = &f
	}

	items, total, err := h.svc.ListVaccines(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
