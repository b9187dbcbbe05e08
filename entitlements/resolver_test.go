package entitlements

import (
	"testing"
	"time"

	"github.com/PaulFidika/auditstore/catalog"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func perpetual() *Record {
	return &Record{UserID: "u1", ProductID: "p1", Kind: KindPerpetual, AcquiredAt: t0, SourceSessionID: "cs_1"}
}

func monthly(acquired time.Time) *Record {
	return &Record{
		UserID:          "u1",
		ProductID:       "p1",
		Kind:            KindSubscriptionMonthly,
		AcquiredAt:      acquired,
		ExpiresAt:       ExpiryFor(KindSubscriptionMonthly, acquired),
		SourceSessionID: "cs_2",
	}
}

func TestResolve_AdminOverride(t *testing.T) {
	for _, st := range []catalog.Status{catalog.StatusActive, catalog.StatusMaintenance, catalog.StatusDevelopment} {
		d := Resolve(nil, true, st, t0)
		if !d.HasAccess || d.Label != LabelAdminOverride {
			t.Fatalf("status %s: expected admin override with access, got %+v", st, d)
		}
		if !d.CanDownloadNow {
			t.Fatalf("status %s: admin should be able to download", st)
		}
	}
	d := Resolve(perpetual(), true, catalog.StatusOffline, t0)
	if !d.HasAccess || d.CanDownloadNow {
		t.Fatalf("offline product: expected access without download, got %+v", d)
	}
}

func TestResolve_NoRecord(t *testing.T) {
	d := Resolve(nil, false, catalog.StatusActive, t0)
	if d.HasAccess || d.CanDownloadNow || d.Label != LabelNone {
		t.Fatalf("expected no access, got %+v", d)
	}
	if d.PurchaseType != "" || d.ExpiresAt != nil {
		t.Fatalf("expected empty purchase details, got %+v", d)
	}
}

func TestResolve_Perpetual(t *testing.T) {
	d := Resolve(perpetual(), false, catalog.StatusActive, t0.Add(10*365*24*time.Hour))
	if !d.HasAccess || !d.CanDownloadNow || d.Label != LabelDirect {
		t.Fatalf("expected direct access, got %+v", d)
	}
	if d.PurchaseType != PurchaseDirect || d.ExpiresAt != nil {
		t.Fatalf("unexpected purchase details %+v", d)
	}
}

func TestResolve_SubscriptionBoundary(t *testing.T) {
	rec := monthly(t0)
	exp := *rec.ExpiresAt

	before := Resolve(rec, false, catalog.StatusActive, exp.Add(-time.Second))
	if !before.HasAccess || before.Label != LabelSubscriptionActive {
		t.Fatalf("one second before expiry: expected active, got %+v", before)
	}
	if before.ExpiresAt == nil || !before.ExpiresAt.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v", exp, before.ExpiresAt)
	}

	at := Resolve(rec, false, catalog.StatusActive, exp)
	if at.HasAccess || at.Label != LabelSubscriptionExpired {
		t.Fatalf("at expiry: expected expired, got %+v", at)
	}

	after := Resolve(rec, false, catalog.StatusActive, exp.Add(time.Hour))
	if after.HasAccess || after.CanDownloadNow || after.Label != LabelSubscriptionExpired {
		t.Fatalf("after expiry: expected expired, got %+v", after)
	}
	if after.PurchaseType != PurchaseSubscriptionMonthly {
		t.Fatalf("expected monthly purchase type, got %q", after.PurchaseType)
	}
}

func TestResolve_MaintenanceKeepsOwnership(t *testing.T) {
	rec := perpetual()
	active := Resolve(rec, false, catalog.StatusActive, t0)
	if !active.HasAccess || !active.CanDownloadNow {
		t.Fatalf("active: expected download, got %+v", active)
	}
	maint := Resolve(rec, false, catalog.StatusMaintenance, t0)
	if !maint.HasAccess {
		t.Fatal("maintenance must not revoke ownership")
	}
	if maint.CanDownloadNow {
		t.Fatal("maintenance must block downloads")
	}
	if maint.Label != LabelDirect {
		t.Fatalf("expected direct label during maintenance, got %q", maint.Label)
	}
}

func TestResolve_OfflineBlocksDownload(t *testing.T) {
	d := Resolve(monthly(t0), false, catalog.StatusOffline, t0.Add(time.Hour))
	if !d.HasAccess || d.CanDownloadNow {
		t.Fatalf("expected access without download, got %+v", d)
	}
}

func TestResolve_DevelopmentNeverOwned(t *testing.T) {
	d := Resolve(perpetual(), false, catalog.StatusDevelopment, t0)
	if d.HasAccess || d.CanDownloadNow || d.Label != LabelNone {
		t.Fatalf("development product must not be owned, got %+v", d)
	}
}
