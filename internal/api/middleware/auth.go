package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/watchdeck/user-api/internal/core/domain"
)

// ClaimKey is the echo context key holding the verified *domain.Claim.
const ClaimKey = "claim"

// Auth validates the JWT and injects the requester's claim into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			claim, ok := claimFromToken(claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}

			c.Set(ClaimKey, claim)

			return next(c)
		}
	}
}

// ClaimFrom returns the claim set by Auth, or nil when the request is
// unauthenticated.
func ClaimFrom(c echo.Context) *domain.Claim {
	claim, _ := c.Get(ClaimKey).(*domain.Claim)
	return claim
}

func claimFromToken(claims jwt.MapClaims) (*domain.Claim, bool) {
	userID, _ := claims["userId"].(string)
	rawRole, _ := claims["role"].(string)
	role, ok := domain.ParseRole(rawRole)
	if userID == "" || !ok {
		return nil, false
	}
	return &domain.Claim{UserID: userID, Role: role}, true
}
