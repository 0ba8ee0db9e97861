package billing

import (
	"bytes"
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

// ListResponse is a paginated list with the aggregate of the whole list.
// Filtered, when set, aggregates only the rows matching the query.
type ListResponse struct {
	*pagination.Response
	Summary  interface{} `json:"summary"`
	Filtered interface{} `json:"filtered,omitempty"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/explorer", h.Explorer)

	authed := g.Group("", auth.RequireAuth())
	authed.GET("/invoices", h.ListInvoices)
	authed.GET("/invoices/:id", h.GetInvoice)
	authed.GET("/invoices/:id/pdf", h.DownloadInvoicePDF)
	authed.POST("/invoices/:id/email", h.EmailInvoice)
	authed.GET("/transactions", h.ListTransactions)

	authed.POST("/invoices", h.CreateInvoice, auth.RequireRole(auth.RoleDoctor))
	authed.GET("/payments", h.ListPayments, auth.RequireRole(auth.RoleInstitution, auth.RoleInsurance))
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
	case errors.Is(err, ErrSettled), errors.Is(err, ErrPaymentPending):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrAmountMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrMailUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListInvoices(c echo.Context) error {
	status, err := ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	list, err := h.svc.Invoices(c.Request().Context(), viewer(c), InvoiceFilter{
		Search: c.QueryParam("search"),
		Status: status,
	})
	if err != nil {
		return toHTTPError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, ListResponse{
		Response: pagination.NewResponse(pagination.Page(list.Invoices, pg), len(list.Invoices), pg.Limit, pg.Offset),
		Summary:  list.Summary,
	})
}

func (h *Handler) GetInvoice(c echo.Context) error {
	inv, err := h.svc.GetInvoice(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) DownloadInvoicePDF(c echo.Context) error {
	inv, err := h.svc.GetInvoice(c.Request().Context(), viewer(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	var buf bytes.Buffer
	if err := RenderInvoicePDF(&buf, inv); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+inv.ID+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) EmailInvoice(c echo.Context) error {
	if err := h.svc.EmailInvoice(c.Request().Context(), viewer(c), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	var req CreateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), viewer(c), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) ListTransactions(c echo.Context) error {
	status, err := ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	window, err := ParseDateWindow(c.QueryParam("window"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	list, err := h.svc.Transactions(c.Request().Context(), viewer(c), TransactionFilter{
		Search: c.QueryParam("search"),
		Status: status,
		Window: window,
	})
	if err != nil {
		return toHTTPError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, ListResponse{
		Response: pagination.NewResponse(pagination.Page(list.Transactions, pg), len(list.Transactions), pg.Limit, pg.Offset),
		Summary:  list.Summary,
		Filtered: list.Filtered,
	})
}

func (h *Handler) ListPayments(c echo.Context) error {
	list, err := h.svc.Payments(c.Request().Context(), viewer(c))
	if err != nil {
		return toHTTPError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, ListResponse{
		Response: pagination.NewResponse(pagination.Page(list.Payments, pg), len(list.Payments), pg.Limit, pg.Offset),
		Summary:  list.Summary,
	})
}

// ExplorerRow is a transaction as listed by the public explorer.
type ExplorerRow struct {
	*Transaction
	ShortHash string `json:"short_hash"`
}

func (h *Handler) Explorer(c echo.Context) error {
	view, err := h.svc.Explorer(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return toHTTPError(err)
	}
	pg := pagination.FromContext(c)
	page := pagination.Page(view.Transactions, pg)
	rows := make([]ExplorerRow, 0, len(page))
	for _, tx := range page {
		rows = append(rows, ExplorerRow{Transaction: tx, ShortHash: ShortHash(tx.BlockchainHash)})
	}
	return c.JSON(http.StatusOK, ListResponse{
		Response: pagination.NewResponse(rows, len(view.Transactions), pg.Limit, pg.Offset),
		Summary:  view.Summary,
	})
}
