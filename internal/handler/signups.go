package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signal-checkin/internal/middleware"
)

// SubmitSignup handles POST /v1/signups. Anyone may join the waitlist.
func (h *JournalHandler) SubmitSignup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.J.SubmitSignup(ctx, p, req.Email)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, toSignupResp(s))
}

// ListSignups handles GET /internal/v1/signups. Only the service principal
// set by RequireServiceKey gets past the core.
func (h *JournalHandler) ListSignups(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	rows, err := h.J.ListSignups(ctx, p)
	if err != nil {
		return writeError(c, p, err)
	}
	out := make([]signupResp, 0, len(rows))
	for _, s := range rows {
		out = append(out, toSignupResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"signups": out})
}
