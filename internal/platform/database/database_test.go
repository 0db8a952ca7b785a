package database

import "testing"

func TestDriverFor(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
	}{
		{"postgres://u:p@localhost/db", DialectPostgres, "postgres://u:p@localhost/db"},
		{"postgresql://localhost/db", DialectPostgres, "postgresql://localhost/db"},
		{"file:data/app.db", DialectSQLite, "data/app.db"},
		{":memory:", DialectSQLite, ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn := DriverFor(tt.url)
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("DriverFor(%q) = %s, %s; want %s, %s", tt.url, driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT id FROM push_subscriptions WHERE user_id = ? AND endpoint = ?"

	pg := &DB{Dialect: DialectPostgres}
	if got := pg.Rebind(query); got != "SELECT id FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2" {
		t.Errorf("Unexpected postgres query: %s", got)
	}

	lite := &DB{Dialect: DialectSQLite}
	if got := lite.Rebind(query); got != query {
		t.Errorf("Expected sqlite query unchanged, got %s", got)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders(3); got != "?, ?, ?" {
		t.Errorf("Placeholders(3) = %q", got)
	}
	if got := Placeholders(0); got != "" {
		t.Errorf("Placeholders(0) = %q", got)
	}
}
