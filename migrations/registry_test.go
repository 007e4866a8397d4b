package migrations

import (
	"context"
	"io/fs"
	"strings"
	"testing"
)

func TestFilesystemsReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegisterUsesValidationTargets(t *testing.T) {
	var calls []string
	_, err := Register(context.Background(), func(_ context.Context, dialect string, _ string, _ fs.FS) error {
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(DialectSQLite))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 {
		t.Fatalf("expected 1 registration call, got %d", len(calls))
	}
	if calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite registration, got %q", calls[0])
	}
}

func TestRegisterPassesSourceLabel(t *testing.T) {
	var label string
	_, err := Register(context.Background(), func(_ context.Context, _ string, sourceLabel string, _ fs.FS) error {
		label = sourceLabel
		return nil
	}, WithValidationTargets(DialectSQLite), WithDialectSourceLabel("broadcast-tests"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if label != "broadcast-tests" {
		t.Fatalf("expected overridden source label, got %q", label)
	}
}

func TestCoreSchemaShipsForBothDialects(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}

	requiredTables := []string{
		"broadcast_tokens",
		"broadcast_oauth_states",
		"broadcast_campaigns",
		"broadcast_coordination_events",
	}
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		var combined strings.Builder
		for _, match := range matches {
			content, readErr := fs.ReadFile(entry.FS, match)
			if readErr != nil {
				t.Fatalf("read %s %s: %v", entry.Dialect, match, readErr)
			}
			combined.Write(content)
		}
		schema := combined.String()
		for _, table := range requiredTables {
			if !strings.Contains(schema, table) {
				t.Fatalf("%s schema is missing table %s", entry.Dialect, table)
			}
		}
	}
}

func TestEveryUpMigrationHasDownPair(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	for _, entry := range filesystems {
		ups, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		for _, up := range ups {
			down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
			if _, statErr := fs.ReadFile(entry.FS, down); statErr != nil {
				t.Fatalf("%s migration %s has no down pair: %v", entry.Dialect, up, statErr)
			}
		}
	}
}
