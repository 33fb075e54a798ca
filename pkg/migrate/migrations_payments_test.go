package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avillareal/marketpay-backend/pkg/migrate"
)

func TestPaymentsCoreMigrationSchema(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_payments_core.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payments core migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE payment_intents",
		"CREATE UNIQUE INDEX idx_payment_intents_order ON payment_intents (order_id)",
		"refunded_amount numeric(12,2) NOT NULL DEFAULT 0",
		"CREATE TABLE payment_events",
		"intent_id uuid NOT NULL REFERENCES payment_intents (id)",
		"CREATE TABLE notifications",
		"DROP TABLE payment_intents",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	// All four tables must generate their own ids; inserts never supply one
	// when the application leaves the id zero-valued.
	if got := strings.Count(content, "id uuid PRIMARY KEY DEFAULT gen_random_uuid()"); got != 4 {
		t.Errorf("expected 4 id columns with a uuid default, found %d", got)
	}
}

func TestAutoMigrateModelsBuildsSQLiteSchema(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:automigrate_schema?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := migrate.AutoMigrateModels(conn); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}

	for _, table := range []string{"orders", "payment_intents", "payment_events", "notifications"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("expected table %q after auto-migration", table)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
