package handler

import (
	"net/http/httptest"
	"testing"

	"brainstorm-be/internal/pkg/logger"
	internalWS "brainstorm-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions map[string]bool

func (f fakeSessions) Exists(id string) bool { return f[id] }

func newApp(sessions fakeSessions) *fiber.App {
	log := logger.NewNopLogger()
	hub := internalWS.NewHub(nil, nil, nil, log)
	app := fiber.New()
	NewBrowserHandler(hub, sessions, log).RegisterRoutes(app)
	return app
}

func TestServeWs_UnknownSession(t *testing.T) {
	app := newApp(fakeSessions{})

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/sessions/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestServeWs_RequiresUpgrade(t *testing.T) {
	app := newApp(fakeSessions{"s1": true})

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/sessions/s1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
