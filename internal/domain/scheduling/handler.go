package scheduling

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	api.POST("/schedulings", h.CreateScheduling)
	api.GET("/schedulings", h.ListSchedulings)
	api.GET("/schedulings/by-date/:date", h.GetByDate)
	api.GET("/schedulings/agenda/:nurseId/:year/:month", h.GetMonthlyAgenda)
	api.GET("/schedulings/:id", h.GetScheduling)
	api.PATCH("/schedulings/:id", h.UpdateScheduling)
	api.POST("/schedulings/:id/cancel", h.CancelScheduling)
	api.POST("/schedulings/reminders/:date", h.SendReminders)
}

func (h *Handler) CreateScheduling(c echo.Context) error {
	var sch Scheduling
	if err := c.Bind(&sch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if sch.UserID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if err := h.svc.CreateScheduling(c.Request().Context(), &sch); err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, sch)
}

func (h *Handler) GetScheduling(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sch, err := h.svc.GetScheduling(c.Request().Context(), id)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, sch)
}

func (h *Handler) UpdateScheduling(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sch, err := h.svc.UpdateScheduling(c.Request().Context(), id, patch)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, sch)
}

func (h *Handler) CancelScheduling(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sch, err := h.svc.CancelScheduling(c.Request().Context(), id)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, sch)
}

func (h *Handler) ListSchedulings(c echo.Context) error {
	p := pagination.FromContext(c)

	filter := ListFilter{Status: c.QueryParam("status")}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		filter.UserID = id
	}
	if v := c.QueryParam("vaccine_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid vaccine_id")
		}
		filter.VaccineID = id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from date")
		}
		filter.From = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to date")
		}
		filter.To = t
	}

	items, total, err := h.svc.ListSchedulings(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetByDate(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	items, err := h.svc.GetByDate(c.Request().Context(), date)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SendReminders(c echo.Context) error {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	sent, err := h.svc.SendReminders(c.Request().Context(), date)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"sent": sent})
}

func (h *Handler) GetMonthlyAgenda(c echo.Context) error {
	nurseID, err := uuid.Parse(c.Param("nurseId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid nurse id")
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid month")
	}

	agenda, err := h.svc.GetMonthlyAgenda(c.Request().Context(), nurseID, year, time.Month(month))
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, agenda)
}
