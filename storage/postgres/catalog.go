package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PaulFidika/auditstore/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Catalog reads products. Status is read on every call; nothing is cached.
type Catalog struct {
	pg *pgxpool.Pool
}

func NewCatalog(pg *pgxpool.Pool) *Catalog { return &Catalog{pg: pg} }

func (c *Catalog) Product(ctx context.Context, id string) (catalog.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Product{}, catalog.ErrNotFound
	}
	var (
		p      catalog.Product
		status string
	)
	err := c.pg.QueryRow(ctx,
		`SELECT id, name, status, price_cents, monthly_price_cents FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &status, &p.PriceCents, &p.MonthlyPriceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	st, ok := catalog.ParseStatus(status)
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: product %s has unknown status %q", catalog.ErrUnavailable, id, status)
	}
	p.Status = st
	return p, nil
}

// Upsert writes p. The storefront only calls it to seed products from config.
func (c *Catalog) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := c.pg.Exec(ctx,
		`INSERT INTO products (id, name, status, price_cents, monthly_price_cents)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name=EXCLUDED.name, status=EXCLUDED.status,
		   price_cents=EXCLUDED.price_cents, monthly_price_cents=EXCLUDED.monthly_price_cents,
		   updated_at=now()`,
		p.ID, p.Name, string(p.Status), p.PriceCents, p.MonthlyPriceCents)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	return nil
}
