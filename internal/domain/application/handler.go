package application

import (
	"net/http"
	"strconv"
	"time"

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
	api.POST("/applications", h.CreateApplication)
	api.GET("/applications", h.ListApplications)
	api.GET("/applications/:id", h.GetApplication)
	api.PATCH("/applications/:id", h.UpdateApplication)
	api.GET("/users/:userId/history", h.GetUserHistory)
}

// createRequest accepts either shape of the create union. Exactly one must
// be present.
type createRequest struct {
	SchedulingID *uuid.UUID `json:"scheduling_id"`

	UserID     *uuid.UUID `json:"user_id"`
	VaccineID  *uuid.UUID `json:"vaccine_id"`
	DoseNumber *int       `json:"dose_number"`

	BatchID         uuid.UUID `json:"batch_id"`
	ApplicationSite string    `json:"application_site"`
	Observations    *string   `json:"observations"`
}

func (h *Handler) CreateApplication(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appliedBy, err := callerID(c)
	if err != nil {
		return err
	}

	walkIn := req.UserID != nil || req.VaccineID != nil || req.DoseNumber != nil
	var input CreateInput
	switch {
	case req.SchedulingID != nil && walkIn:
		return vaxerr.JSON(c, vaxerr.New(vaxerr.KindConflictingInput,
			"either scheduling_id or the walk-in fields must be provided, not both"))
	case req.SchedulingID != nil:
		input = SchedulingBased{
			SchedulingID:    *req.SchedulingID,
			BatchID:         req.BatchID,
			AppliedByID:     appliedBy,
			ApplicationSite: req.ApplicationSite,
			Observations:    req.Observations,
		}
	case req.UserID != nil && req.VaccineID != nil && req.DoseNumber != nil:
		input = WalkInBased{
			UserID:          *req.UserID,
			VaccineID:       *req.VaccineID,
			DoseNumber:      *req.DoseNumber,
			BatchID:         req.BatchID,
			AppliedByID:     appliedBy,
			ApplicationSite: req.ApplicationSite,
			Observations:    req.Observations,
		}
	default:
		return vaxerr.JSON(c, vaxerr.New(vaxerr.KindConflictingInput,
			"either scheduling_id or user_id, vaccine_id and dose_number must be provided"))
	}

	app, err := h.svc.CreateApplication(c.Request().Context(), input)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, app)
}

func (h *Handler) GetApplication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	app, err := h.svc.GetApplication(c.Request().Context(), id)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

type updateRequest struct {
	ApplicationSite *string `json:"application_site"`
	Observations    *string `json:"observations"`
}

func (h *Handler) UpdateApplication(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	caller, err := callerID(c)
	if err != nil {
		return err
	}
	isManager := auth.HasRole(c.Request().Context(), "manager")

	app, err := h.svc.UpdateApplication(c.Request().Context(), id, caller, isManager, req.ApplicationSite, req.Observations)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

func (h *Handler) ListApplications(c echo.Context) error {
	p := pagination.FromContext(c)

	var filter ListFilter
	for param, dst := range map[string]*uuid.UUID{
		"user_id":       &filter.UserID,
		"vaccine_id":    &filter.VaccineID,
		"applied_by_id": &filter.AppliedByID,
		"batch_id":      &filter.BatchID,
	} {
		if v := c.QueryParam(param); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid "+param)
			}
			*dst = id
		}
	}
	if v := c.QueryParam("dose_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid dose_number")
		}
		filter.DoseNumber = n
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

	items, total, err := h.svc.ListApplications(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetUserHistory(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	history, err := h.svc.GetUserHistory(c.Request().Context(), userID)
	if err != nil {
		return vaxerr.JSON(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

func callerID(c echo.Context) (uuid.UUID, error) {
	raw := auth.UserIDFromContext(c.Request().Context())
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authenticated user")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid authenticated user id")
	}
	return id, nil
}
