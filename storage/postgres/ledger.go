// Package pgstore implements the storefront's durable stores on postgres.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/auditstore/entitlements"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, user_id, product_id, kind, acquired_at, expires_at, source_session_id`

// Ledger is the entitlements.Ledger over entitlement_records. The unique
// constraint on source_session_id makes PutIfAbsent atomic.
type Ledger struct {
	pg *pgxpool.Pool
}

func NewLedger(pg *pgxpool.Pool) *Ledger { return &Ledger{pg: pg} }

func scanRecord(row pgx.Row) (entitlements.Record, error) {
	var (
		r          entitlements.Record
		id, userID uuid.UUID
		kind       string
		expiresAt  *time.Time
	)
	if err := row.Scan(&id, &userID, &r.ProductID, &kind, &r.AcquiredAt, &expiresAt, &r.SourceSessionID); err != nil {
		return entitlements.Record{}, err
	}
	r.ID = id.String()
	r.UserID = userID.String()
	r.Kind = entitlements.Kind(kind)
	r.AcquiredAt = r.AcquiredAt.UTC()
	if expiresAt != nil {
		t := expiresAt.UTC()
		r.ExpiresAt = &t
	}
	return r, nil
}

func (l *Ledger) one(ctx context.Context, q string, args ...any) (entitlements.Record, error) {
	r, err := scanRecord(l.pg.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return entitlements.Record{}, entitlements.ErrNotFound
	}
	if err != nil {
		return entitlements.Record{}, fmt.Errorf("%w: %v", entitlements.ErrUnavailable, err)
	}
	return r, nil
}

func (l *Ledger) Latest(ctx context.Context, userID, productID string) (entitlements.Record, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return entitlements.Record{}, entitlements.ErrNotFound
	}
	return l.one(ctx,
		`SELECT `+recordColumns+` FROM entitlement_records
		 WHERE user_id=$1 AND product_id=$2
		 ORDER BY acquired_at DESC, id DESC LIMIT 1`,
		uid, productID)
}

func (l *Ledger) BySession(ctx context.Context, sessionID string) (entitlements.Record, error) {
	return l.one(ctx,
		`SELECT `+recordColumns+` FROM entitlement_records WHERE source_session_id=$1`,
		sessionID)
}

// PutIfAbsent inserts r; when another writer already recorded the session,
// the existing row is returned instead.
func (l *Ledger) PutIfAbsent(ctx context.Context, r entitlements.Record) (entitlements.Record, bool, error) {
	uid, err := uuid.Parse(strings.TrimSpace(r.UserID))
	if err != nil {
		return entitlements.Record{}, false, fmt.Errorf("ledger: user id %q is not a uuid", r.UserID)
	}
	id := uuid.New()
	stored, err := scanRecord(l.pg.QueryRow(ctx,
		`INSERT INTO entitlement_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (source_session_id) DO NOTHING
		 RETURNING `+recordColumns,
		id, uid, r.ProductID, string(r.Kind), r.AcquiredAt, r.ExpiresAt, r.SourceSessionID))
	switch {
	case err == nil:
		return stored, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := l.BySession(ctx, r.SourceSessionID)
		if err != nil {
			return entitlements.Record{}, false, err
		}
		return existing, false, nil
	}
	return entitlements.Record{}, false, fmt.Errorf("%w: %v", entitlements.ErrUnavailable, err)
}

func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]entitlements.Record, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, nil
	}
	rows, err := l.pg.Query(ctx,
		`SELECT `+recordColumns+` FROM entitlement_records
		 WHERE user_id=$1 ORDER BY acquired_at DESC, id DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entitlements.ErrUnavailable, err)
	}
	defer rows.Close()
	var out []entitlements.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entitlements.ErrUnavailable, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", entitlements.ErrUnavailable, err)
	}
	return out, nil
}
