package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// runAuth pushes one request through the middleware and reports whether the
// wrapped handler ran and with which user id.
func runAuth(t *testing.T, authorization string) (status int, passed bool, userID string) {
	t.Helper()

	var ctx fasthttp.RequestCtx
	if authorization != "" {
		ctx.Request.Header.Set("Authorization", authorization)
	}

	handler := JWTAuth(testSecret, nil)(func(ctx *fasthttp.RequestCtx) {
		passed = true
		userID = string(ctx.Request.Header.Peek(UserIDHeader))
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	handler(&ctx)

	return ctx.Response.StatusCode(), passed, userID
}

func TestJWTAuthValidToken(t *testing.T) {
	token := signedToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	status, passed, userID := runAuth(t, "Bearer "+token)
	if !passed {
		t.Fatalf("handler did not run, status = %d", status)
	}
	if userID != "alice" {
		t.Errorf("user id header = %q, want alice", userID)
	}
}

func TestJWTAuthRejections(t *testing.T) {
	expired := signedToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongSecret := signedToken(t, "other-secret", jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noSubject := signedToken(t, testSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	// Valid claims and the right secret, but not HS256.
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tests := []struct {
		name          string
		authorization string
	}{
		{name: "missing header", authorization: ""},
		{name: "garbage token", authorization: "Bearer not-a-jwt"},
		{name: "expired token", authorization: "Bearer " + expired},
		{name: "wrong secret", authorization: "Bearer " + wrongSecret},
		{name: "missing subject", authorization: "Bearer " + noSubject},
		{name: "hs512 algorithm", authorization: "Bearer " + hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, passed, _ := runAuth(t, tt.authorization)
			if passed {
				t.Fatal("handler ran on an unauthenticated request")
			}
			if status != fasthttp.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
		})
	}
}

func TestJWTAuthStripsClientSuppliedUserIDHeader(t *testing.T) {
	token := signedToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("Authorization", "Bearer "+token)
	// A spoofed identity header must be replaced by the verified subject.
	ctx.Request.Header.Set(UserIDHeader, "mallory")

	var userID string
	JWTAuth(testSecret, nil)(func(ctx *fasthttp.RequestCtx) {
		userID = string(ctx.Request.Header.Peek(UserIDHeader))
	})(&ctx)

	if userID != "alice" {
		t.Errorf("user id header = %q, want verified subject alice", userID)
	}
}
