package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signal-checkin/internal/middleware"
)

// ListEntries handles GET /v1/entries.
func (h *JournalHandler) ListEntries(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	rows, err := h.J.ListEntries(ctx, p)
	if err != nil {
		return writeError(c, p, err)
	}
	out := make([]entryResp, 0, len(rows))
	for _, e := range rows {
		out = append(out, toEntryResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}

// SubmitEntry handles POST /v1/entries. The declared owner defaults to the
// caller and is checked by the core.
func (h *JournalHandler) SubmitEntry(c echo.Context) error {
	var req entryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	e, err := h.J.SubmitEntry(ctx, p, req.input())
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusCreated, toEntryResp(e))
}

// GetEntry handles GET /v1/entries/:id.
func (h *JournalHandler) GetEntry(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	d, err := h.J.GetEntry(ctx, p, c.Param("id"))
	if err != nil {
		return writeError(c, p, err)
	}
	resp := toEntryResp(d.Entry)
	final := d.IsFinalForDay
	resp.IsFinalForDay = &final
	return c.JSON(http.StatusOK, resp)
}

// UpdateEntry handles PATCH /v1/entries/:id.
func (h *JournalHandler) UpdateEntry(c echo.Context) error {
	var req entryPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fields := req.immutable(); len(fields) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "field cannot be changed", "fields": fields})
	}
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	e, err := h.J.UpdateEntry(ctx, p, c.Param("id"), req.patch())
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, toEntryResp(e))
}

// DeleteEntry handles DELETE /v1/entries/:id.
func (h *JournalHandler) DeleteEntry(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.J.DeleteEntry(ctx, p, c.Param("id")); err != nil {
		return writeError(c, p, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Summary handles GET /v1/summary.
func (h *JournalHandler) Summary(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	s, err := h.J.Summarize(ctx, p)
	if err != nil {
		return writeError(c, p, err)
	}
	return c.JSON(http.StatusOK, toSummaryResp(s))
}
