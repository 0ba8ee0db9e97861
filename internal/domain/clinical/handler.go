package clinical

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medipay/medipay/internal/platform/auth"
	"github.com/medipay/medipay/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	read := g.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	read.GET("/records", h.ListRecords)
	read.GET("/records/:id", h.GetRecord)

	write := g.Group("", auth.RequireRole(auth.RoleDoctor))
	write.GET("/patients", h.ListPatients)
	write.POST("/records", h.CreateRecord)
	write.POST("/records/:id/prescriptions", h.AddPrescription)
}

func viewer(c echo.Context) auth.Principal {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return p
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListRecords(c echo.Context) error {
	items, err := h.svc.ListRecords(c.Request().Context(), viewer(c))
	if err != nil {
		return toHTTPError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), len(items), pg.Limit, pg.Offset))
}

func (h *Handler) GetRecord(c echo.Context) error {
	rec, err := h.svc.GetRecord(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListPatients(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Patients())
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var req CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	rec, err := h.svc.CreateRecord(c.Request().Context(), viewer(c), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) AddPrescription(c echo.Context) error {
	var req CreatePrescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	rx, err := h.svc.AddPrescription(c.Request().Context(), viewer(c), c.Param("id"), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rx)
}
