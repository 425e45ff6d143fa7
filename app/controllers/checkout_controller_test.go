package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/checkout"
)

type fakeBuilder struct {
	gotRequest checkout.Request
	gotPlan    checkout.PlanRequest
	err        error
}

func (b *fakeBuilder) BuildFundraiserSession(_ context.Context, req checkout.Request) (*checkout.Session, error) {
	b.gotRequest = req
	if b.err != nil {
		return nil, b.err
	}
	return &checkout.Session{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil
}

func (b *fakeBuilder) BuildPlanSession(_ context.Context, req checkout.PlanRequest) (*checkout.Session, error) {
	b.gotPlan = req
	if b.err != nil {
		return nil, b.err
	}
	return &checkout.Session{ID: "cs_2", URL: "https://pay.test/cs_2"}, nil
}

func newCheckoutApp(b *fakeBuilder, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID > 0 {
			c.Locals(USER_ID, userID)
		}
		return c.Next()
	})
	cc := NewCheckoutController(b)
	app.Post("/api/v1/fundraisers/:slug/checkout", cc.HandleFundraiserCheckout)
	app.Post("/api/v1/billing/checkout", cc.HandlePlanCheckout)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestHandleFundraiserCheckout(t *testing.T) {
	b := &fakeBuilder{}
	app := newCheckoutApp(b, 0)

	status, body := postJSON(t, app, "/api/v1/fundraisers/spring-gala/checkout",
		`{"type":"donation","amount":"25.50","recurring":true,"email":" a@b.test "}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "https://pay.test/cs_1", body["url"])

	assert.Equal(t, "spring-gala", b.gotRequest.FundraiserSlug)
	assert.Equal(t, "donation", b.gotRequest.Kind)
	assert.Equal(t, "25.5", b.gotRequest.Amount.String())
	assert.True(t, b.gotRequest.Recurring)
	assert.Equal(t, "a@b.test", b.gotRequest.Email)

	status, _ = postJSON(t, app, "/api/v1/fundraisers/spring-gala/checkout", `{"type":"ticket","quantity":2}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, b.gotRequest.Quantity)
}

func TestHandleFundraiserCheckout_Redirect(t *testing.T) {
	app := newCheckoutApp(&fakeBuilder{}, 0)

	req := httptest.NewRequest("POST", "/api/v1/fundraisers/spring-gala/checkout", strings.NewReader(`{"type":"ticket"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/html")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://pay.test/cs_1", resp.Header.Get("Location"))
}

func TestHandleFundraiserCheckout_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", checkout.ErrInvalidRequest), fiber.StatusBadRequest},
		{checkout.ErrFundraiserUnavailable, fiber.StatusNotFound},
		{checkout.ErrInsufficientCapacity, fiber.StatusConflict},
		{fmt.Errorf("%w: timeout", checkout.ErrProvider), fiber.StatusBadGateway},
		{fmt.Errorf("db down"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		app := newCheckoutApp(&fakeBuilder{err: tt.err}, 0)
		status, body := postJSON(t, app, "/api/v1/fundraisers/x/checkout", `{"type":"ticket"}`)
		assert.Equal(t, tt.want, status, tt.err.Error())
		assert.NotEmpty(t, body["error"])
	}

	app := newCheckoutApp(&fakeBuilder{}, 0)
	req := httptest.NewRequest("POST", "/api/v1/fundraisers/x/checkout", strings.NewReader("type=donation&amount=ten"))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePlanCheckout(t *testing.T) {
	b := &fakeBuilder{}
	app := newCheckoutApp(b, 42)

	status, body := postJSON(t, app, "/api/v1/billing/checkout", `{"price_id":"price_pro","organization_name":"Little Stars"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "cs_2", body["id"])
	assert.Equal(t, uint(42), b.gotPlan.UserID)
	assert.Equal(t, "price_pro", b.gotPlan.PriceID)
	assert.Equal(t, "Little Stars", b.gotPlan.OrganizationName)

	app = newCheckoutApp(&fakeBuilder{err: checkout.ErrUnknownPlan}, 0)
	status, body = postJSON(t, app, "/api/v1/billing/checkout", `{"price_id":"nope","email":"a@b.test"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "unknown_plan", body["error"])
}
