package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medipay/medipay/internal/platform/auth"
)

type Handler struct {
	svc          *Service
	secureCookie bool
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Success bool `json:"success"`
	*Session
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)

	authed := g.Group("", auth.RequireAuth())
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	authed.PATCH("/me", h.UpdateProfile)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, ok := h.svc.Login(c.Request().Context(), req)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "invalid credentials",
		})
	}
	h.setCookie(c, sess.Token, sess.ExpiresAt)
	return c.JSON(http.StatusOK, AuthResponse{Success: true, Session: sess})
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, ok := h.svc.Register(c.Request().Context(), req)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not open session")
	}
	h.setCookie(c, sess.Token, sess.ExpiresAt)
	return c.JSON(http.StatusCreated, AuthResponse{Success: true, Session: sess})
}

func (h *Handler) Logout(c echo.Context) error {
	claims := auth.ClaimsFromContext(c.Request().Context())
	if err := h.svc.Logout(c.Request().Context(), claims); err != nil {
		if errors.Is(err, ErrNoSession) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.setCookie(c, "", time.Unix(0, 0))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	u, ok := h.svc.Current(p.SessionID)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, ErrNoSession.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":             u,
		"is_authenticated": true,
	})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var upd ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	u, err := h.svc.UpdateProfile(c.Request().Context(), p.SessionID, upd)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) setCookie(c echo.Context, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
