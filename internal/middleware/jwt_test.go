package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

type identity struct {
	userID uint
	role   string
}

func newJWTApp(cfg JWTConfig, seen *identity) *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(cfg))
	app.Get("/", func(c *fiber.Ctx) error {
		seen.userID = UserID(c)
		seen.role = UserRole(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func sendWithAuth(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestJWTProtectedSetsIdentity(t *testing.T) {
	var seen identity
	app := newJWTApp(JWTConfig{Secret: "secret"}, &seen)

	token := signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "roles": []string{"Reviewer"}})
	require.Equal(t, fiber.StatusNoContent, sendWithAuth(t, app, "bearer "+token))
	require.Equal(t, uint(42), seen.userID)
	require.Equal(t, "reviewer", seen.role)

	token = signToken(t, "secret", jwt.SigningMethodHS512, jwt.MapClaims{"sub": "7", "role": " ADMIN ", "roles": []string{"student"}})
	require.Equal(t, fiber.StatusNoContent, sendWithAuth(t, app, "Bearer "+token))
	require.Equal(t, uint(7), seen.userID)
	require.Equal(t, "admin", seen.role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	var seen identity
	app := newJWTApp(JWTConfig{Secret: "secret"}, &seen)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"empty token":    "Bearer ",
		"wrong secret":   "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}),
		"expired":        "Bearer " + signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"zero subject":   "Bearer " + signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "0"}),
		"text subject":   "Bearer " + signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}),
		"no subject":     "Bearer " + signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, fiber.StatusUnauthorized, sendWithAuth(t, app, header))
		})
	}
}

func TestJWTProtectedEnforcesIssuerAndAudience(t *testing.T) {
	var seen identity
	app := newJWTApp(JWTConfig{Secret: "secret", Issuer: "https://auth.example.edu", Audience: "awards-portal"}, &seen)

	valid := signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "9",
		"iss": "https://auth.example.edu",
		"aud": []string{"awards-portal", "library"},
	})
	require.Equal(t, fiber.StatusNoContent, sendWithAuth(t, app, "Bearer "+valid))

	wrongAudience := signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "9",
		"iss": "https://auth.example.edu",
		"aud": "library",
	})
	require.Equal(t, fiber.StatusUnauthorized, sendWithAuth(t, app, "Bearer "+wrongAudience))

	missingIssuer := signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "9", "aud": "awards-portal"})
	require.Equal(t, fiber.StatusUnauthorized, sendWithAuth(t, app, "Bearer "+missingIssuer))
}

func TestJWTProtectedAllowsLeeway(t *testing.T) {
	var seen identity
	app := newJWTApp(JWTConfig{Secret: "secret", Leeway: time.Minute}, &seen)

	token := signToken(t, "secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "3", "exp": time.Now().Add(-10 * time.Second).Unix()})
	require.Equal(t, fiber.StatusNoContent, sendWithAuth(t, app, "Bearer "+token))
	require.Equal(t, uint(3), seen.userID)
}
