package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/checkout"
)

const checkoutTimeout = 20 * time.Second

// SessionBuilder creates hosted checkout sessions.
type SessionBuilder interface {
	BuildFundraiserSession(ctx context.Context, req checkout.Request) (*checkout.Session, error)
	BuildPlanSession(ctx context.Context, req checkout.PlanRequest) (*checkout.Session, error)
}

// CheckoutController starts fundraiser and plan checkouts.
type CheckoutController struct {
	builder SessionBuilder
}

func NewCheckoutController(builder SessionBuilder) *CheckoutController {
	return &CheckoutController{builder: builder}
}

type fundraiserCheckoutInput struct {
	Type      string      `json:"type" form:"type"`
	Amount    json.Number `json:"amount" form:"amount"`
	Quantity  int         `json:"quantity" form:"quantity"`
	Recurring bool        `json:"recurring" form:"recurring"`
	Email     string      `json:"email" form:"email"`
}

// HandleFundraiserCheckout handles POST /api/v1/fundraisers/:slug/checkout.
func (cc *CheckoutController) HandleFundraiserCheckout(c *fiber.Ctx) error {
	var in fundraiserCheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	amount := decimal.Zero
	if raw := strings.TrimSpace(in.Amount.String()); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_amount"})
		}
		amount = parsed
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	sess, err := cc.builder.BuildFundraiserSession(ctx, checkout.Request{
		FundraiserSlug: c.Params("slug"),
		Kind:           in.Type,
		Amount:         amount,
		Quantity:       in.Quantity,
		Recurring:      in.Recurring,
		Email:          strings.TrimSpace(in.Email),
	})
	if err != nil {
		return checkoutError(c, err)
	}
	return respondWithSession(c, sess)
}

type planCheckoutInput struct {
	PriceID          string `json:"price_id" form:"price_id"`
	Email            string `json:"email" form:"email"`
	OrganizationName string `json:"organization_name" form:"organization_name"`
}

// HandlePlanCheckout handles POST /api/v1/billing/checkout.
func (cc *CheckoutController) HandlePlanCheckout(c *fiber.Ctx) error {
	var in planCheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), checkoutTimeout)
	defer cancel()

	sess, err := cc.builder.BuildPlanSession(ctx, checkout.PlanRequest{
		PriceID:          in.PriceID,
		UserID:           userIDFromLocals(c),
		Email:            in.Email,
		OrganizationName: in.OrganizationName,
	})
	if err != nil {
		return checkoutError(c, err)
	}
	return respondWithSession(c, sess)
}

func respondWithSession(c *fiber.Ctx, sess *checkout.Session) error {
	if c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML {
		return c.Redirect(sess.URL, fiber.StatusSeeOther)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": sess.ID, "url": sess.URL})
}

func checkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, checkout.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, checkout.ErrUnknownPlan):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_plan"})
	case errors.Is(err, checkout.ErrFundraiserUnavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "fundraiser_not_found"})
	case errors.Is(err, checkout.ErrInsufficientCapacity):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "insufficient_capacity"})
	case errors.Is(err, checkout.ErrProvider):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_provider_unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "checkout_failed"})
	}
}
