package dashboard

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medipay/medipay/internal/domain/billing"
	"github.com/medipay/medipay/internal/domain/clinical"
	"github.com/medipay/medipay/internal/domain/institution"
	"github.com/medipay/medipay/internal/platform/auth"
)

// PageView is the descriptor rendered for every page.
type PageView struct {
	Title   string          `json:"title"`
	Path    string          `json:"path"`
	Role    auth.Role       `json:"role,omitempty"`
	Nav     []NavItem       `json:"nav,omitempty"`
	User    *auth.Principal `json:"user,omitempty"`
	Content interface{}     `json:"content"`
}

// Landing is the content of the public home page.
type Landing struct {
	Roles    []auth.Role `json:"roles"`
	Explorer string      `json:"explorer"`
}

// AuthForm is the content of the login and register pages.
type AuthForm struct {
	Roles  []auth.Role `json:"roles"`
	Action string      `json:"action"`
}

type Handler struct {
	views *Views
}

func NewHandler(views *Views) *Handler {
	return &Handler{views: views}
}

// RegisterPages mounts the page routes: public pages and one guarded
// subtree per role.
func (h *Handler) RegisterPages(e *echo.Echo) {
	e.GET("/", h.LandingPage)
	e.GET("/login", h.authPage("Login", "/api/v1/auth/login"))
	e.GET("/register", h.authPage("Register", "/api/v1/auth/register"))
	e.GET("/transactions", h.ExplorerPage)

	for _, role := range auth.Roles() {
		g := e.Group(role.DefaultPath(), auth.PageGuard(role))
		g.GET("", h.RolePage(role))
		g.GET("/:page", h.RolePage(role))
	}
}

// RegisterRoutes mounts the dashboard API.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	d := g.Group("/dashboard")
	d.GET("/guard", h.Guard)
	d.GET("/routes", h.Routes)
	d.GET("/nav", h.Nav, auth.RequireAuth())
}

func principal(c echo.Context) *auth.Principal {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil
	}
	return &p
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, billing.ErrForbidden), errors.Is(err, clinical.ErrForbidden), errors.Is(err, institution.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, billing.ErrNotFound), errors.Is(err, clinical.ErrNotFound), errors.Is(err, institution.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseQuery(c echo.Context) (Query, error) {
	status, err := billing.ParseStatusFilter(c.QueryParam("status"))
	if err != nil {
		return Query{}, err
	}
	window, err := billing.ParseDateWindow(c.QueryParam("window"))
	if err != nil {
		return Query{}, err
	}
	return Query{Search: c.QueryParam("search"), Status: status, Window: window}, nil
}

func (h *Handler) LandingPage(c echo.Context) error {
	return c.JSON(http.StatusOK, PageView{
		Title:   "MediPay",
		Path:    "/",
		User:    principal(c),
		Content: Landing{Roles: auth.Roles(), Explorer: "/transactions"},
	})
}

func (h *Handler) authPage(title, action string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, PageView{
			Title:   title,
			Path:    c.Path(),
			User:    principal(c),
			Content: AuthForm{Roles: auth.Roles(), Action: action},
		})
	}
}

func (h *Handler) ExplorerPage(c echo.Context) error {
	view, err := h.views.billing.Explorer(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, PageView{
		Title:   "Transaction Explorer",
		Path:    "/transactions",
		User:    principal(c),
		Content: view,
	})
}

// RolePage renders a sub-page of role's dashboard. The route guard has
// already admitted the viewer.
func (h *Handler) RolePage(role auth.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, ok := Lookup(role, c.Param("page"))
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "page not found")
		}
		q, err := parseQuery(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		viewer := principal(c)
		if viewer == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		content, err := h.views.Content(c.Request().Context(), *viewer, page, q)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, PageView{
			Title:   page.Title,
			Path:    page.Path,
			Role:    role,
			Nav:     NavFor(role),
			User:    viewer,
			Content: content,
		})
	}
}

func (h *Handler) Nav(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, NavFor(p.Role))
}

// RoleForPath reports which role's dashboard contains path. Public pages
// report ok with an empty role.
func RoleForPath(path string) (auth.Role, bool) {
	path = "/" + strings.Trim(path, "/")
	for _, r := range PublicRoutes {
		if r.Path == path {
			return "", true
		}
	}
	for _, role := range auth.Roles() {
		base := role.DefaultPath()
		if path == base || strings.HasPrefix(path, base+"/") {
			slug := strings.TrimPrefix(strings.TrimPrefix(path, base), "/")
			if _, ok := Lookup(role, slug); ok {
				return role, true
			}
		}
	}
	return "", false
}

// Guard runs the route guard for ?path= without rendering the page.
func (h *Handler) Guard(c echo.Context) error {
	role, ok := RoleForPath(c.QueryParam("path"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown path")
	}
	if role == "" {
		return c.JSON(http.StatusOK, auth.Decision{Render: true})
	}
	return c.JSON(http.StatusOK, auth.DecideContext(c, []auth.Role{role}))
}

type routeSurface struct {
	Public []PublicRoute        `json:"public"`
	Roles  map[auth.Role][]Page `json:"roles"`
}

func (h *Handler) Routes(c echo.Context) error {
	public, byRole := Surface()
	return c.JSON(http.StatusOK, routeSurface{Public: public, Roles: byRole})
}
