package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/awards-portal-api/internal/middleware"
)

func guardedApp(userID interface{}, role string, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/", guard, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func statusOf(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

func TestWithAuthRoleMatrix(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		required string
		status   int
	}{
		{"student as student", "Student", middleware.AuthRoleStudent, fiber.StatusNoContent},
		{"guest as student", "guest", middleware.AuthRoleStudent, fiber.StatusForbidden},
		{"admin as reviewer", "admin", middleware.AuthRoleReviewer, fiber.StatusNoContent},
		{"reviewer as reviewer", "reviewer", middleware.AuthRoleReviewer, fiber.StatusNoContent},
		{"reviewer as admin", "reviewer", middleware.AuthRoleAdmin, fiber.StatusForbidden},
		{"admin as student", "admin", middleware.AuthRoleStudent, fiber.StatusForbidden},
		{"no role as reviewer", "", middleware.AuthRoleReviewer, fiber.StatusForbidden},
		{"no role as any", "", middleware.AuthRoleAny, fiber.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			guard := middleware.WithAuth(passThrough, middleware.AuthOptions{Role: tc.required})
			require.Equal(t, tc.status, statusOf(t, guardedApp(uint(10), tc.role, guard)))
		})
	}
}

func TestWithAuthRequiresUser(t *testing.T) {
	reviewer := middleware.WithAuth(passThrough, middleware.AuthOptions{Role: middleware.AuthRoleReviewer})
	require.Equal(t, fiber.StatusUnauthorized, statusOf(t, guardedApp(nil, "admin", reviewer)))

	anyUser := middleware.WithAuth(passThrough, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true})
	require.Equal(t, fiber.StatusUnauthorized, statusOf(t, guardedApp(nil, "", anyUser)))
	require.Equal(t, fiber.StatusUnauthorized, statusOf(t, guardedApp(0, "student", anyUser)))

	anonymous := middleware.WithAuth(passThrough, middleware.AuthOptions{})
	require.Equal(t, fiber.StatusNoContent, statusOf(t, guardedApp(nil, "", anonymous)))
}

func TestRequireRole(t *testing.T) {
	guard := middleware.RequireRole(middleware.AuthRoleStudent, middleware.AuthRoleReviewer)

	require.Equal(t, fiber.StatusNoContent, statusOf(t, guardedApp(uint(1), "student", guard)))
	require.Equal(t, fiber.StatusNoContent, statusOf(t, guardedApp(uint(1), "ADMIN", guard)))
	require.Equal(t, fiber.StatusForbidden, statusOf(t, guardedApp(uint(1), "guest", guard)))
	require.Equal(t, fiber.StatusForbidden, statusOf(t, guardedApp(uint(1), "", guard)))
}
