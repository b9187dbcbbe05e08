package pgstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/PaulFidika/auditstore/catalog"
	"github.com/PaulFidika/auditstore/entitlements"
	migrations "github.com/PaulFidika/auditstore/migrations/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// openTestDB connects to STOREFRONT_TEST_DATABASE_URL and migrates it.
// Tests are skipped when it is unset.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := migrations.Up(ctx, pool, logrus.New()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestLedger_PutIfAbsentConcurrent(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	products := NewCatalog(pool)
	if err := products.Upsert(ctx, catalog.Product{ID: "pg-test", Name: "pg", Status: catalog.StatusActive, MonthlyPriceCents: 1000}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	l := NewLedger(pool)
	session := "cs_pg_" + uuid.NewString()
	user := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := entitlements.Record{
		UserID:          user,
		ProductID:       "pg-test",
		Kind:            entitlements.KindSubscriptionMonthly,
		AcquiredAt:      now,
		ExpiresAt:       entitlements.ExpiryFor(entitlements.KindSubscriptionMonthly, now),
		SourceSessionID: session,
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]bool{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, ok, err := l.PutIfAbsent(ctx, rec)
			if err != nil {
				t.Errorf("PutIfAbsent: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[stored.ID] = true
		}()
	}
	wg.Wait()
	if created != 1 || len(ids) != 1 {
		t.Fatalf("expected one creation and one id, got created=%d ids=%v", created, ids)
	}

	latest, err := l.Latest(ctx, user, "pg-test")
	if err != nil || latest.SourceSessionID != session || latest.ExpiresAt == nil {
		t.Fatalf("Latest: %+v %v", latest, err)
	}
	list, err := l.ListByUser(ctx, user)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser: %v %v", list, err)
	}
}

func TestCatalog_NotFound(t *testing.T) {
	pool := openTestDB(t)
	if _, err := NewCatalog(pool).Product(context.Background(), "missing-"+uuid.NewString()); err != catalog.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
