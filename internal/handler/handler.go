package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
	"github.com/iliyamo/signal-checkin/internal/model"
	"github.com/iliyamo/signal-checkin/internal/service"
)

// Journal is the core the handlers delegate to. *service.Journal
// implements it.
type Journal interface {
	SubmitEntry(ctx context.Context, p authz.Principal, in service.EntryInput) (model.Entry, error)
	UpdateEntry(ctx context.Context, p authz.Principal, id string, patch service.EntryPatch) (model.Entry, error)
	DeleteEntry(ctx context.Context, p authz.Principal, id string) error
	ListEntries(ctx context.Context, p authz.Principal) ([]model.Entry, error)
	GetEntry(ctx context.Context, p authz.Principal, id string) (service.EntryDetail, error)
	Summarize(ctx context.Context, p authz.Principal) (service.Summary, error)
	SubmitSignup(ctx context.Context, p authz.Principal, email string) (model.Signup, error)
	ListSignups(ctx context.Context, p authz.Principal) ([]model.Signup, error)
}

var _ Journal = (*service.Journal)(nil)

// DefaultTimeout bounds a whole request, retries included.
const DefaultTimeout = 10 * time.Second

// JournalHandler bundles dependencies for the entry and signup endpoints.
// It holds no policy: every decision is made by the Journal core.
type JournalHandler struct {
	J       Journal
	Timeout time.Duration
}

func NewJournalHandler(j Journal) *JournalHandler {
	return &JournalHandler{J: j, Timeout: DefaultTimeout}
}

func (h *JournalHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// writeError maps core errors onto HTTP responses. A denial for an anonymous
// caller is reported as 401 so clients know to authenticate.
func writeError(c echo.Context, p authz.Principal, err error) error {
	var (
		ve *service.ValidationError
		fe *fieldcrypt.Error
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "violations": ve.Violations})
	case errors.Is(err, service.ErrNotPermitted):
		if p.IsAnonymous() {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not permitted"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrStorage):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage unavailable"})
	case errors.As(err, &fe):
		return echo.NewHTTPError(http.StatusInternalServerError, "encryption failed").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
