package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gradewise/gradewise/core"
)

// identityMiddleware attaches the caller identity when a valid token comes with the request.
// Requests without one go through anonymously.
func identityMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if tokenStr := extractToken(ctx, conf.JWTCookieName); tokenStr != "" {
				if claims, err := ParseToken([]byte(conf.SecretKey), tokenStr); err == nil {
					ctx.Set(contextIdentityKey, claims.Identity())
				}
			}
			return next(ctx)
		}
	}
}

// authRequired rejects anonymous requests.
func authRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, ok := getContextIdentity(ctx); !ok {
			return errUnauthorized
		}
		return next(ctx)
	}
}

// extractToken reads the token from the auth cookie first, then from an "Authorization: Bearer" header.
func extractToken(ctx echo.Context, cookieName string) string {
	if cookie, err := ctx.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return ""
}

func getContextIdentity(ctx echo.Context) (core.Identity, bool) {
	id, ok := ctx.Get(contextIdentityKey).(core.Identity)
	return id, ok
}
