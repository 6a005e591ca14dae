package migrate_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainExpectedSchema(t *testing.T) {
	tests := map[string][]string{
		"create_carts_tables": {
			"CREATE TABLE IF NOT EXISTS carts",
			"CONSTRAINT carts_user_id_key UNIQUE (user_id)",
			"CREATE TABLE IF NOT EXISTS cart_items",
			"quantity integer NOT NULL CHECK (quantity >= 1)",
		},
		"create_orders_tables": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
			"CREATE TABLE IF NOT EXISTS order_items",
			"CREATE INDEX IF NOT EXISTS idx_orders_user_created",
		},
		"create_requests_table": {
			"CREATE TABLE IF NOT EXISTS requests",
			"CONSTRAINT requests_order_id_key UNIQUE (order_id)",
		},
		"create_sequence_counters_table": {
			"CREATE TABLE IF NOT EXISTS sequence_counters",
			"seq bigint NOT NULL",
		},
		"create_outbox_events_table": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"WHERE published_at IS NULL",
		},
	}

	for suffix, checks := range tests {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestOrderStatusCheckListsEveryStatus(t *testing.T) {
	content := readMigration(t, "create_orders_tables")
	for _, status := range []string{"pending", "awaiting_approval", "approved", "processing", "shipped", "delivered", "cancelled", "rejected"} {
		if !strings.Contains(content, "'"+status+"'") {
			t.Errorf("orders status check missing %q", status)
		}
	}
}

func TestValidateDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected bundled migrations to validate: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename to fail validation")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.AutoMigrate(conn); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	for _, table := range []string{"users", "carts", "cart_items", "orders", "order_items", "requests", "sequence_counters", "outbox_events"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}
