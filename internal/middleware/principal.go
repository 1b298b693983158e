package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signal-checkin/internal/authz"
)

// ServiceKeyHeader carries the privileged backend credential.
const ServiceKeyHeader = "X-Service-Key"

const principalKey = "principal"

// ResolvePrincipal resolves the Authorization header of every request into
// an authz.Principal and stores it in the context. It never rejects a
// request: a missing or bad credential simply yields Anonymous and the
// journal core decides what that principal may do.
func ResolvePrincipal(r *authz.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(principalKey, r.Resolve(c.Request().Header.Get(echo.HeaderAuthorization)))
			return next(c)
		}
	}
}

// RequireServiceKey guards backend-only routes. The request must carry the
// service key in ServiceKeyHeader and a bearer token that verifies; the
// resulting principal is a Service principal acting for the token's
// subject. An unset serviceKey disables the routes entirely.
func RequireServiceKey(serviceKey string, r *authz.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			given := c.Request().Header.Get(ServiceKeyHeader)
			if serviceKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(serviceKey)) != 1 {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			claims, ok := r.Verify(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(principalKey, authz.ServicePrincipal(claims))
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal stored by ResolvePrincipal or
// RequireServiceKey, or Anonymous when there is none.
func PrincipalFrom(c echo.Context) authz.Principal {
	if p, ok := c.Get(principalKey).(authz.Principal); ok {
		return p
	}
	return authz.Anonymous()
}
