package entitlements

import "time"

// YearlyDiscountPercent is taken off twelve monthly payments for a yearly plan.
const YearlyDiscountPercent = 15

const (
	MonthlyGrant = 30 * 24 * time.Hour
	YearlyGrant  = 365 * 24 * time.Hour
)

// YearlyPriceCents returns round(monthly * 12 * 0.85), rounding half up.
func YearlyPriceCents(monthlyCents int64) int64 {
	if monthlyCents <= 0 {
		return 0
	}
	return (monthlyCents*12*(100-YearlyDiscountPercent) + 50) / 100
}

// PriceCents is what a buyer pays for p given the product's one-off and
// monthly prices.
func PriceCents(p PurchaseType, directCents, monthlyCents int64) (int64, bool) {
	switch p {
	case PurchaseDirect:
		return directCents, directCents > 0
	case PurchaseSubscriptionMonthly:
		return monthlyCents, monthlyCents > 0
	case PurchaseSubscriptionYearly:
		return YearlyPriceCents(monthlyCents), monthlyCents > 0
	}
	return 0, false
}

// ExpiryFor returns when a grant of kind acquired at acquiredAt lapses.
// The grant length does not depend on what was paid.
func ExpiryFor(kind Kind, acquiredAt time.Time) *time.Time {
	var d time.Duration
	switch kind {
	case KindSubscriptionMonthly:
		d = MonthlyGrant
	case KindSubscriptionYearly:
		d = YearlyGrant
	default:
		return nil
	}
	t := acquiredAt.Add(d)
	return &t
}
