package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsDiscovered(t *testing.T) {
	ms := Migrations.Sorted()
	if len(ms) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Name >= ms[i].Name {
			t.Fatalf("migrations out of order: %s then %s", ms[i-1].Name, ms[i].Name)
		}
	}
}

func TestEntitlementSessionIsUnique(t *testing.T) {
	raw, err := fs.ReadFile(FS, "20260301000003_entitlement_records.up.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "UNIQUE (source_session_id)") {
		t.Fatal("entitlement_records must enforce one record per checkout session")
	}
}
