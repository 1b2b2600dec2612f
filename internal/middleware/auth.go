package middleware

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// UserIDHeader carries the verified subject to downstream handlers.
const UserIDHeader = "X-User-ID"

// JWTAuth verifies the bearer token on every request before handing off to
// next. HS256 is the only accepted signing algorithm; a token signed with
// anything else is invalid. The subject claim becomes the tenant identity.
//
// Expired, malformed and missing-subject tokens are told apart in the logs
// only; callers always see a bare 401.
func JWTAuth(secret string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method != jwt.SigningMethodHS256 {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					logger.Warn("expired jwt token")
				default:
					logger.Warn("invalid jwt token", zap.Error(err))
				}
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			// No subject means no identity, not an anonymous one.
			if claims.Subject == "" {
				logger.Warn("jwt token missing subject claim")
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			ctx.Request.Header.Set(UserIDHeader, claims.Subject)
			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
