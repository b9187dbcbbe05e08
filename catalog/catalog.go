// Package catalog describes the audit-script products on sale.
// The storefront core only reads products; editing them is out of scope.
package catalog

import (
	"context"
	"errors"
	"strings"
)

// Status is the lifecycle state of a product.
type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusOffline     Status = "offline"
	StatusDevelopment Status = "development"
)

// ParseStatus maps s to a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusActive, StatusMaintenance, StatusOffline, StatusDevelopment:
		return st, true
	}
	return "", false
}

// Purchasable reports whether new checkouts may be started. Products under
// maintenance keep their owners but take no new buyers.
func (s Status) Purchasable() bool {
	return s == StatusActive
}

var (
	ErrNotFound    = errors.New("catalog: product not found")
	ErrUnavailable = errors.New("catalog: store unavailable")
)

// Product is a single downloadable audit script.
type Product struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Status            Status `json:"status"`
	PriceCents        int64  `json:"price_cents"`
	MonthlyPriceCents int64  `json:"monthly_price_cents"`
}

// Reader looks products up by id.
type Reader interface {
	Product(ctx context.Context, id string) (Product, error)
}
