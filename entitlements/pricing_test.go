package entitlements

import (
	"math"
	"testing"
	"time"
)

func TestYearlyPriceCents(t *testing.T) {
	if got := YearlyPriceCents(1000); got != 10200 {
		t.Fatalf("expected 10200, got %d", got)
	}
	for _, m := range []int64{1, 99, 499, 1234, 2999, 100001} {
		want := int64(math.Round(float64(m) * 12 * 0.85))
		if got := YearlyPriceCents(m); got != want {
			t.Fatalf("monthly %d: expected %d, got %d", m, want, got)
		}
	}
	if got := YearlyPriceCents(0); got != 0 {
		t.Fatalf("expected 0 for free product, got %d", got)
	}
}

func TestPriceCents(t *testing.T) {
	if p, ok := PriceCents(PurchaseDirect, 4900, 1000); !ok || p != 4900 {
		t.Fatalf("direct: got %d, %v", p, ok)
	}
	if p, ok := PriceCents(PurchaseSubscriptionMonthly, 4900, 1000); !ok || p != 1000 {
		t.Fatalf("monthly: got %d, %v", p, ok)
	}
	if p, ok := PriceCents(PurchaseSubscriptionYearly, 4900, 1000); !ok || p != 10200 {
		t.Fatalf("yearly: got %d, %v", p, ok)
	}
	if _, ok := PriceCents(PurchaseSubscriptionMonthly, 4900, 0); ok {
		t.Fatal("a product without a monthly price cannot be subscribed to")
	}
	if _, ok := PriceCents("lifetime", 4900, 1000); ok {
		t.Fatal("unknown purchase type should be rejected")
	}
}

func TestExpiryFor(t *testing.T) {
	acquired := time.Date(2026, 1, 31, 8, 30, 0, 0, time.UTC)
	if ExpiryFor(KindPerpetual, acquired) != nil {
		t.Fatal("perpetual records never expire")
	}
	m := ExpiryFor(KindSubscriptionMonthly, acquired)
	if m == nil || !m.Equal(acquired.Add(30*24*time.Hour)) {
		t.Fatalf("monthly: unexpected expiry %v", m)
	}
	y := ExpiryFor(KindSubscriptionYearly, acquired)
	if y == nil || !y.Equal(acquired.Add(365*24*time.Hour)) {
		t.Fatalf("yearly: unexpected expiry %v", y)
	}
}

func TestPurchaseTypeKindRoundTrip(t *testing.T) {
	for _, p := range []PurchaseType{PurchaseDirect, PurchaseSubscriptionMonthly, PurchaseSubscriptionYearly} {
		k, ok := p.Kind()
		if !ok {
			t.Fatalf("%s should map to a kind", p)
		}
		if k.PurchaseType() != p {
			t.Fatalf("%s -> %s -> %s", p, k, k.PurchaseType())
		}
	}
	if _, ok := PurchaseType("gift").Kind(); ok {
		t.Fatal("unknown purchase type should not map")
	}
}
