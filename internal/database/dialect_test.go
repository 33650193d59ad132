package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("DSN", func(t *testing.T) {
		result := dialect.DSN(DialectConfig{Path: "./drills.db"})
		expected := "./drills.db?_foreign_keys=on&_busy_timeout=5000"
		if result != expected {
			t.Errorf("DSN() = %v, want %v", result, expected)
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (name, email) VALUES (?, ?)",
			expected: "INSERT INTO users (name, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET name = ?, email = ? WHERE id = ?",
			expected: "UPDATE users SET name = ?, email = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		subdir  string
		wantErr bool
	}{
		{"", "sqlite", false},
		{"sqlite3", "sqlite", false},
		{"PostgreSQL", "postgres", false},
		{"mysql", "mysql", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			dialect, err := DialectFor(tt.dbType)
			if tt.wantErr {
				if err == nil {
					t.Error("DialectFor() should fail for unsupported type")
				}
				return
			}
			if err != nil {
				t.Fatalf("DialectFor() error = %v", err)
			}
			if dialect.MigrationsSubdir() != tt.subdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", dialect.MigrationsSubdir(), tt.subdir)
			}
		})
	}
}

func TestMySQLDSNParsesTime(t *testing.T) {
	dialect := NewMySQLDialect()
	tests := []struct {
		url      string
		expected string
	}{
		{"user:pw@tcp(db:3306)/drills", "user:pw@tcp(db:3306)/drills?parseTime=true"},
		{"user:pw@tcp(db:3306)/drills?tls=true", "user:pw@tcp(db:3306)/drills?tls=true&parseTime=true"},
		{"user:pw@tcp(db:3306)/drills?parseTime=false", "user:pw@tcp(db:3306)/drills?parseTime=false"},
	}
	for _, tt := range tests {
		if got := dialect.DSN(DialectConfig{URL: tt.url}); got != tt.expected {
			t.Errorf("DSN(%q) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestCaseInsensitiveLike(t *testing.T) {
	if got := NewPostgresDialect().CaseInsensitiveLike(); got != "ILIKE" {
		t.Errorf("postgres CaseInsensitiveLike() = %v, want ILIKE", got)
	}
	if got := NewSQLiteDialect().CaseInsensitiveLike(); got != "LIKE" {
		t.Errorf("sqlite CaseInsensitiveLike() = %v, want LIKE", got)
	}
}

func TestBoolValue(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		want    [2]string
	}{
		{"sqlite", NewSQLiteDialect(), [2]string{"1", "0"}},
		{"postgres", NewPostgresDialect(), [2]string{"TRUE", "FALSE"}},
		{"mysql", NewMySQLDialect(), [2]string{"TRUE", "FALSE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.BoolValue(true); got != tt.want[0] {
				t.Errorf("BoolValue(true) = %v, want %v", got, tt.want[0])
			}
			if got := tt.dialect.BoolValue(false); got != tt.want[1] {
				t.Errorf("BoolValue(false) = %v, want %v", got, tt.want[1])
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- header comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx ON a(id);
INSERT INTO a VALUES (1)`

	got := SplitStatements(content)
	if len(got) != 3 {
		t.Fatalf("SplitStatements() returned %d statements, want 3: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (\n    id INTEGER\n)" {
		t.Errorf("first statement = %q", got[0])
	}
	if got[2] != "INSERT INTO a VALUES (1)" {
		t.Errorf("last statement = %q", got[2])
	}
}
