package middleware

import (
	"context"
	stderrors "errors"

	"money-tracker/internal/errors"
	"money-tracker/internal/handlers"
	"money-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// TokenBlacklist reports whether an access token was revoked by sign-out
type TokenBlacklist interface {
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RequireAuth creates a middleware that requires a valid JWT access token
// that has not been revoked. The caller identity is stored as user_id.
func RequireAuth(tokenService services.TokenServiceInterface, blacklist TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return handlers.SendError(c, errors.AuthMissingToken)
			}

			token, err := tokenService.BearerToken(authHeader)
			if err != nil {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat)
			}

			claims, err := tokenService.ParseAccessToken(token)
			if err != nil {
				if stderrors.Is(err, services.ErrExpiredToken) {
					return handlers.SendError(c, errors.AuthExpiredToken)
				}
				return handlers.SendError(c, errors.AuthInvalidTokenFormat)
			}

			ctx := c.Request().Context()

			revoked, err := blacklist.IsTokenBlacklisted(ctx, claims.ID)
			if err != nil {
				return handlers.SendSystemError(c, err)
			}
			if revoked {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Token has been revoked"))
			}

			userID, err := claims.Owner()
			if err != nil {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Invalid user ID in token"))
			}

			c.Set("user_id", userID)
			c.Set("user_email", claims.Email)
			c.Set("token_jti", claims.ID)

			if traceID := GetTraceID(c); traceID != "" {
				c.SetRequest(c.Request().WithContext(services.WithCorrelationID(ctx, traceID)))
			}

			return next(c)
		}
	}
}
