package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/amaykorade/zakapay-hackathon/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(embedded) {
		t.Fatalf("embedded %d migrations, found %d on disk", len(embedded), len(onDisk))
	}
}

func TestValidateRejectsBrokenMigrations(t *testing.T) {
	const ok = "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\n"
	cases := map[string]fstest.MapFS{
		"bad name": {"add_things.sql": {Data: []byte(ok)}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(ok)},
			"20260101000000_b.sql": {Data: []byte(ok)},
		},
		"missing down": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"reversed":     {"20260101000000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
		"unbalanced":   {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
	}
	for name, fsys := range cases {
		if err := migrate.Validate(fsys); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if err := migrate.Validate(fstest.MapFS{
		"20260101000000_a.sql": {Data: []byte(ok)},
		"README.md":            {Data: []byte("notes")},
	}); err != nil {
		t.Fatalf("valid migration rejected: %v", err)
	}
}

func TestCollectionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_users_and_collections.sql")

	checks := []string{
		"CREATE TYPE collection_status AS ENUM ('PENDING', 'PARTIAL', 'COMPLETED', 'CANCELLED')",
		"CREATE TYPE payer_status AS ENUM ('UNPAID', 'PAID', 'CANCELLED')",
		"CREATE TABLE IF NOT EXISTS collections",
		"CHECK (num_payers BETWEEN 1 AND 100)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payers_slug ON payers (slug)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPaymentsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_payments.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payment_allocations",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_methods_name_provider ON payment_methods (name, provider)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_provider_ref ON payments (provider, provider_ref)",
		"payment_id uuid NOT NULL REFERENCES payments (id)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSourceRefLivesOnAllocations(t *testing.T) {
	content := readMigration(t, "*_move_source_ref_to_allocations.sql")

	checks := []string{
		"ALTER TABLE payment_allocations ADD COLUMN IF NOT EXISTS source_ref text",
		"ALTER TABLE payment_methods DROP COLUMN IF EXISTS external_ref",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Payer Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260402093000_add_payer_notes.sql" {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("validate created migration: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add payer notes", now); err == nil {
		t.Fatal("expected collision error")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
