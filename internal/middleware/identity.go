package middleware

// identity.go holds helpers shared across middleware files.

import "github.com/labstack/echo/v4"

// rateIdentity names the caller for rate-limit keys: the principal's kind and
// id, or "anon" when no credential verified.
func rateIdentity(c echo.Context) string {
	p := PrincipalFrom(c)
	if p.IsAnonymous() {
		return "anon"
	}
	return p.String()
}
