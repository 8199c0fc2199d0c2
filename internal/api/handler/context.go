package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/watchdeck/user-api/internal/api/middleware"
	"github.com/watchdeck/user-api/internal/core/domain"
)

// ctxClaim returns the claim injected by the Auth middleware. A missing
// claim means the route was mounted without Auth, which is rejected with 401
// before any service call.
func ctxClaim(c echo.Context) (*domain.Claim, error) {
	claim := middleware.ClaimFrom(c)
	if claim == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claim, nil
}
