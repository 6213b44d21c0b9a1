package migration

import (
	"context"
	"testing"

	"github.com/EquidnaMX/stag-herd/internal/testutil"
)

func TestRunMigrationsAppliesOnce(t *testing.T) {
	db := testutil.OpenDB(t)

	applied, err := RunMigrations(context.Background(), db)
	if err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if len(applied) != 4 {
		t.Fatalf("applied = %v, want 4 versions", applied)
	}
	if applied[0] != "000001_payments" {
		t.Fatalf("first version = %q", applied[0])
	}

	for _, table := range []string{"payments", "webhook_reservations", "payment_outbox", "audit_logs"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %s missing", table)
		}
	}

	applied, err = RunMigrations(context.Background(), db)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("second run applied %v", applied)
	}
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := testutil.OpenDB(t)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	for _, model := range Models() {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("table for %T missing", model)
		}
	}
}
