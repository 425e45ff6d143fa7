package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/env"
)

// Config is the immutable configuration consumed by the reconciliation core.
// It is built once at startup and passed into the services that need it.
type Config struct {
	StripeSecretKey     string        `validate:"required"`
	StripeWebhookSecret string        `validate:"required"`
	WebhookTolerance    time.Duration `validate:"gt=0"`
	BaseURL             string        `validate:"required,url"`
	Currency            string        `validate:"required,len=3"`

	// PlatformFeePercent is the default cut the platform keeps from every
	// fundraiser payment. Organizations may override it.
	PlatformFeePercent decimal.Decimal

	// ProviderFeePercent and ProviderFeeFlat describe the published card fee.
	// They are used to estimate the provider fee for reporting, the real fee
	// is never read back from the provider.
	ProviderFeePercent decimal.Decimal
	ProviderFeeFlat    decimal.Decimal

	// Plans maps provider price ids to human readable plan names.
	Plans map[string]string
}

// PlanName resolves a price id against the plan catalog.
func (c *Config) PlanName(priceID string) (string, bool) {
	name, ok := c.Plans[strings.TrimSpace(priceID)]
	return name, ok
}

// Validate checks required fields and the fee ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	hundred := decimal.NewFromInt(100)
	for name, v := range map[string]decimal.Decimal{
		"PLATFORM_FEE_PERCENT": c.PlatformFeePercent,
		"PROVIDER_FEE_PERCENT": c.ProviderFeePercent,
	} {
		if v.IsNegative() || v.GreaterThan(hundred) {
			return fmt.Errorf("%s must be between 0 and 100, got %s", name, v.String())
		}
	}
	if c.ProviderFeeFlat.IsNegative() {
		return fmt.Errorf("PROVIDER_FEE_FLAT must not be negative")
	}
	return nil
}

// FromEnv builds the configuration from the loaded environment.
func FromEnv() (*Config, error) {
	platformFee, err := decimalEnv("PLATFORM_FEE_PERCENT", "5")
	if err != nil {
		return nil, err
	}
	providerPct, err := decimalEnv("PROVIDER_FEE_PERCENT", "2.9")
	if err != nil {
		return nil, err
	}
	providerFlat, err := decimalEnv("PROVIDER_FEE_FLAT", "0.30")
	if err != nil {
		return nil, err
	}
	toleranceSec, err := strconv.Atoi(env.GetEnv("STRIPE_WEBHOOK_TOLERANCE_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid STRIPE_WEBHOOK_TOLERANCE_SECONDS: %w", err)
	}
	plans, err := ParsePlans(env.GetEnv("STRIPE_PLANS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StripeSecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		WebhookTolerance:    time.Duration(toleranceSec) * time.Second,
		BaseURL:             strings.TrimRight(env.GetEnv("APP_BASE_URL", "http://localhost:4000"), "/"),
		Currency:            strings.ToLower(env.GetEnv("CURRENCY", "usd")),
		PlatformFeePercent:  platformFee,
		ProviderFeePercent:  providerPct,
		ProviderFeeFlat:     providerFlat,
		Plans:               plans,
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ParsePlans reads a catalog in the form "price_a:Starter,price_b:Pro".
func ParsePlans(raw string) (map[string]string, error) {
	plans := make(map[string]string)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		priceID, name, ok := strings.Cut(entry, ":")
		priceID = strings.TrimSpace(priceID)
		name = strings.TrimSpace(name)
		if !ok || priceID == "" || name == "" {
			return nil, fmt.Errorf("invalid STRIPE_PLANS entry %q", entry)
		}
		plans[priceID] = name
	}
	return plans, nil
}

func decimalEnv(key, def string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(env.GetEnv(key, def)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
