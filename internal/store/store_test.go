package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if _, err := s1.WritePlan(t.Context(), createTestPlan("fp-1", "q-1", 1)); err != nil {
		t.Fatalf("WritePlan() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	if _, err := s2.ReadPlan(t.Context(), "fp-1"); err != nil {
		t.Errorf("plan lost across reopen: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("Open() with invalid path should fail")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db = %v, want nil", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)
	if s.DB() == nil {
		t.Fatal("DB() returned nil")
	}
	if err := s.DB().Ping(); err != nil {
		t.Errorf("Ping() through DB() failed: %v", err)
	}
}

func TestPragmas_Applied(t *testing.T) {
	s := createTestStore(t)
	for _, p := range pragmas {
		t.Run(p.name, func(t *testing.T) {
			if err := s.verifyPragma(p.name, p.reported); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestVerifyPragma_Mismatch(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "1"); err == nil {
		t.Error("verifyPragma() should report a mismatched value")
	}
}

func TestSchema_Tables(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		table   string
		columns []string
	}{
		{"vertex_stats", []string{"label", "count"}},
		{"edge_stats", []string{"label", "count", "out_degree", "in_degree"}},
		{"plans", []string{
			"fingerprint", "query_fingerprint", "compilation_id", "seq",
			"plan", "explain", "compiler_version", "format_version",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got := getTableColumns(t, s.db, tt.table)
			if len(got) != len(tt.columns) {
				t.Fatalf("%s columns = %v, want %v", tt.table, got, tt.columns)
			}
			for _, col := range tt.columns {
				if !contains(got, col) {
					t.Errorf("%s missing column %q", tt.table, col)
				}
			}
		})
	}
}

func TestSchema_NegativeCountRejected(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO vertex_stats (label, count) VALUES ('person', -1)`)
	if err == nil {
		t.Error("negative vertex count should violate CHECK constraint")
	}

	_, err = s.db.Exec(`INSERT INTO edge_stats (label, count, out_degree, in_degree) VALUES ('knows', 1, -2, 1)`)
	if err == nil {
		t.Error("negative out_degree should violate CHECK constraint")
	}
}

func TestSchema_PlanFingerprintUnique(t *testing.T) {
	s := createTestStore(t)

	insert := `INSERT INTO plans
		(fingerprint, query_fingerprint, compilation_id, seq, plan, explain, compiler_version, format_version)
		VALUES ('fp', 'q', 'c', 1, '{}', '', '0.1.0', '1')`
	if _, err := s.db.Exec(insert); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if _, err := s.db.Exec(insert); err == nil {
		t.Error("duplicate fingerprint should violate PRIMARY KEY")
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_V1QueryIndexExists(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "plans")
	if !contains(indexes, "idx_plans_query") {
		t.Errorf("plans table missing idx_plans_query, indexes: %v", indexes)
	}
}

func TestMigration_IdempotentUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}

		var version int
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			t.Fatalf("failed to get user_version: %v", err)
		}
		if version != currentSchemaVersion {
			t.Errorf("iteration %d: user_version = %d, want %d", i, version, currentSchemaVersion)
		}
		s.Close()
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Schema without migrations, as written by the first release.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}
	if !contains(getTableIndexes(t, s.db, "plans"), "idx_plans_query") {
		t.Error("expected idx_plans_query after migration")
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
