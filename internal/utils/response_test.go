package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/awards-portal-api/internal/utils"
)

func respond(t *testing.T, handler fiber.Handler) (int, utils.APIResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestOKCarriesPaginationMeta(t *testing.T) {
	status, payload := respond(t, func(c *fiber.Ctx) error {
		return utils.OK(c, []string{"Travel Bursary"}, "", map[string]int{"total_items": 1})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, []interface{}{"Travel Bursary"}, payload.Data)
	require.Equal(t, map[string]interface{}{"total_items": float64(1)}, payload.Meta)
	require.Empty(t, payload.CorrelationID)
}

func TestSendSuccessWithStatusDefaults(t *testing.T) {
	status, payload := respond(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, 0, "", nil)
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Nil(t, payload.Data)
}

func TestFailQuotesCorrelationID(t *testing.T) {
	status, payload := respond(t, func(c *fiber.Ctx) error {
		c.Locals(utils.LocalsCorrelationID, "req-123")
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "application incomplete", map[string]string{"field": "budget"})
	})

	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.False(t, payload.Success)
	require.Equal(t, "application incomplete", payload.Message)
	require.Equal(t, map[string]interface{}{"field": "budget"}, payload.Details)
	require.Equal(t, "req-123", payload.CorrelationID)
	require.Nil(t, payload.Data)
}

func TestSendErrorDefaultsToServerError(t *testing.T) {
	status, payload := respond(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, 0, "")
	})

	require.Equal(t, fiber.StatusInternalServerError, status)
	require.Equal(t, "error", payload.Message)
	require.Nil(t, payload.Details)
}
