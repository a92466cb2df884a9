package shared

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" {
				t.Errorf("migration version %d missing up SQL", m.Version)
			}
			if m.Down == "" {
				t.Errorf("migration version %d missing down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations and rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}
		if count == 0 {
			t.Error("expected at least one migration to be applied")
		}

		for _, table := range []string{"profiles", "scrobbles", "snapshots", "export_jobs"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		var newCount int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&newCount)
		if err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if newCount >= count {
			t.Errorf("expected migration count to decrease after rollback, got %d (was %d)", newCount, count)
		}

		if _, err := db.Exec("SELECT 1 FROM export_jobs LIMIT 1"); err == nil {
			t.Error("export_jobs table should be dropped by the rollback")
		}
	})

	t.Run("MigrationStatus", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		migrations, _ := loadMigrations()

		_, pending, err := MigrationStatus(db)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if pending != len(migrations) {
			t.Errorf("expected %d pending migrations, got %d", len(migrations), pending)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		current, pending, err := MigrationStatus(db)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if pending != 0 {
			t.Errorf("expected no pending migrations, got %d", pending)
		}
		if current != migrations[len(migrations)-1].Version {
			t.Errorf("expected current version %d, got %d", migrations[len(migrations)-1].Version, current)
		}
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- header\nCREATE TABLE x (id INTEGER); -- trailing\n\n")
		if got != "CREATE TABLE x (id INTEGER);" {
			t.Errorf("unexpected result %q", got)
		}
	})

	t.Run("idempotent migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}

func TestOpenDatabase(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		if _, err := OpenDatabase(DatabaseConfig{}); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("file database is migrated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scrobblex.db")
		db, err := OpenDatabase(DatabaseConfig{Path: path, MaxOpenConns: 4, MaxIdleConns: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		current, pending, err := MigrationStatus(db)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pending != 0 || current == 0 {
			t.Errorf("expected all migrations applied, got current=%d pending=%d", current, pending)
		}

		var fk int
		if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil || fk != 1 {
			t.Errorf("expected foreign keys enabled, got %d (%v)", fk, err)
		}
	})
}
