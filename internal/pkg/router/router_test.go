package router

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eagleone34/kindercause-sub000/app/controllers"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/billing"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/checkout"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/jobqueue"
)

type stubProcessor struct{}

func (stubProcessor) HandleWebhook(context.Context, []byte, string) (billing.WebhookResult, error) {
	return billing.WebhookResult{EventID: "evt_1", EventType: "invoice.paid"}, nil
}

type stubBuilder struct{}

func (stubBuilder) BuildFundraiserSession(context.Context, checkout.Request) (*checkout.Session, error) {
	return &checkout.Session{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil
}

func (stubBuilder) BuildPlanSession(context.Context, checkout.PlanRequest) (*checkout.Session, error) {
	return &checkout.Session{ID: "cs_2", URL: "https://pay.test/cs_2"}, nil
}

type stubQueue struct{}

func (stubQueue) GetJobStats(context.Context) (map[jobqueue.JobStatus]int64, error) {
	return map[jobqueue.JobStatus]int64{}, nil
}

func (stubQueue) GetQueueSize(context.Context) (int64, error) {
	return 0, nil
}

func newTestApp(admins map[string]string) *fiber.App {
	app := fiber.New()
	InstallRouter(app, Controllers{
		Webhook:  controllers.NewWebhookController(stubProcessor{}),
		Checkout: controllers.NewCheckoutController(stubBuilder{}),
		Queue:    controllers.NewQueueController(stubQueue{}),
	}, Options{AdminUsers: admins})
	return app
}

func post(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(`{"price_id":"price_pro","type":"donation","amount":10}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRoutes_CheckoutEndpoints(t *testing.T) {
	app := newTestApp(nil)
	assert.Equal(t, fiber.StatusOK, post(t, app, "/api/v1/fundraisers/spring-gala/checkout"))
	assert.Equal(t, fiber.StatusOK, post(t, app, "/api/v1/billing/checkout"))
}

func TestRoutes_ApiIsRateLimited(t *testing.T) {
	app := newTestApp(nil)
	for i := 0; i < apiRateLimitMax; i++ {
		require.Equal(t, fiber.StatusOK, post(t, app, "/api/v1/billing/checkout"), "request %d", i)
	}
	assert.Equal(t, fiber.StatusTooManyRequests, post(t, app, "/api/v1/billing/checkout"))
}

func TestRoutes_WebhookIsNotRateLimited(t *testing.T) {
	app := newTestApp(nil)
	for i := 0; i < apiRateLimitMax+5; i++ {
		require.Equal(t, fiber.StatusOK, post(t, app, "/webhooks/stripe"), "delivery %d", i)
	}
}

func TestRoutes_AdminRequiresBasicAuth(t *testing.T) {
	app := newTestApp(map[string]string{"ops": "secret"})

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/queue", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/admin/queue", nil)
	req.SetBasicAuth("ops", "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRoutes_AdminDisabledWithoutCredentials(t *testing.T) {
	app := newTestApp(nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/admin/queue", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
