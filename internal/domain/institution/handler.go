package institution

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
	inst := g.Group("/institution", auth.RequireRole(auth.RoleInstitution))
	inst.GET("/access", h.GetAccess)

	inst.GET("/products", h.ListProducts)
	inst.POST("/products", h.CreateProduct)
	inst.POST("/products/:id/toggle", h.ToggleProduct)
	inst.DELETE("/products/:id", h.DeleteProduct)

	inst.GET("/staff", h.ListStaff)
	inst.POST("/staff", h.Invite)
	inst.POST("/staff/:id/activate", h.Activate)
	inst.POST("/staff/:id/deactivate", h.Deactivate)
	inst.POST("/staff/:id/resend", h.ResendInvitation)
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
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) GetAccess(c echo.Context) error {
	a, err := h.svc.Access(c.Request().Context(), viewer(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListProducts(c echo.Context) error {
	list, err := h.svc.ListProducts(c.Request().Context(), viewer(c), ProductFilter{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateProduct(c echo.Context) error {
	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	p, err := h.svc.CreateProduct(c.Request().Context(), viewer(c), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ToggleProduct(c echo.Context) error {
	p, err := h.svc.ToggleProduct(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	if err := h.svc.DeleteProduct(c.Request().Context(), viewer(c), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListStaff(c echo.Context) error {
	items, err := h.svc.ListStaff(c.Request().Context(), viewer(c))
	if err != nil {
		return toHTTPError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(items, pg), len(items), pg.Limit, pg.Offset))
}

func (h *Handler) Invite(c echo.Context) error {
	var req InviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, err := h.svc.Invite(c.Request().Context(), viewer(c), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) Activate(c echo.Context) error {
	u, err := h.svc.Activate(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Deactivate(c echo.Context) error {
	u, err := h.svc.Deactivate(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ResendInvitation(c echo.Context) error {
	u, err := h.svc.ResendInvitation(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}
