package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FeeSchedule holds the percentages used to split a payment.
type FeeSchedule struct {
	PlatformPercent decimal.Decimal
	// ProviderPercent and ProviderFlat model the provider's published card
	// pricing. The result is an estimate for reporting only.
	ProviderPercent decimal.Decimal
	ProviderFlat    decimal.Decimal
}

// FeeBreakdown is the split of one gross payment, in major currency units.
type FeeBreakdown struct {
	Gross       decimal.Decimal
	ProviderFee decimal.Decimal
	PlatformFee decimal.Decimal
	Net         decimal.Decimal
}

// MinorToMajor converts an amount in cents to a decimal amount.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// MajorToMinor converts a decimal amount to cents, rounding half away from zero.
func MajorToMinor(major decimal.Decimal) int64 {
	return major.Mul(hundred).Round(0).IntPart()
}

// EstimateProviderFee applies the published percentage plus flat fee.
func (f FeeSchedule) EstimateProviderFee(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(f.ProviderPercent).Div(hundred).Add(f.ProviderFlat).Round(2)
}

// PlatformFee returns round(gross * P / 100) to the cent.
func (f FeeSchedule) PlatformFee(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(f.PlatformPercent).Div(hundred).Round(2)
}

// Split computes the full breakdown. Net is gross minus both fees and is
// allowed to go negative for very small payments.
func (f FeeSchedule) Split(gross decimal.Decimal) FeeBreakdown {
	providerFee := f.EstimateProviderFee(gross)
	platformFee := f.PlatformFee(gross)
	return FeeBreakdown{
		Gross:       gross,
		ProviderFee: providerFee,
		PlatformFee: platformFee,
		Net:         gross.Sub(providerFee).Sub(platformFee),
	}
}

// ApplicationFeeMinor is the platform share of a charge in cents, as sent to
// the provider when routing funds to a connected account.
func ApplicationFeeMinor(totalMinor int64, platformPercent decimal.Decimal) int64 {
	return decimal.NewFromInt(totalMinor).Mul(platformPercent).Div(hundred).Round(0).IntPart()
}
