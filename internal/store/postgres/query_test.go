package postgres

import (
	"testing"
	"time"

	"github.com/alanyoungcy/cardanodash/internal/domain"
)

func TestWithListOpts(t *testing.T) {
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		args     []any
		opts     domain.ListOpts
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "no options",
			opts:     domain.ListOpts{},
			wantSQL:  "SELECT 1 WHERE 1=1 ORDER BY created_at DESC",
			wantArgs: 0,
		},
		{
			name:     "since and limit",
			opts:     domain.ListOpts{Since: &since, Limit: 10},
			wantSQL:  "SELECT 1 WHERE 1=1 AND created_at >= $1 ORDER BY created_at DESC LIMIT $2",
			wantArgs: 2,
		},
		{
			name:     "existing args shift placeholders",
			args:     []any{"addr1"},
			opts:     domain.ListOpts{Limit: 5, Offset: 10},
			wantSQL:  "SELECT 1 WHERE 1=1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			wantArgs: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := withListOpts("SELECT 1 WHERE 1=1", tt.args, "created_at", tt.opts)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestValidID(t *testing.T) {
	if !validID("6f1c2b8e-9d3a-4c1e-8f5a-2b7d9e0c1a34") {
		t.Error("uuid should be valid")
	}
	for _, id := range []string{"", "42", "not-a-uuid"} {
		if validID(id) {
			t.Errorf("validID(%q) = true", id)
		}
	}
}

func TestMarshalConfig(t *testing.T) {
	b, err := marshalConfig(nil)
	if err != nil || string(b) != "{}" {
		t.Fatalf("marshalConfig(nil) = (%s, %v)", b, err)
	}
	b, err = marshalConfig(map[string]any{"min_profit": 1.5})
	if err != nil || string(b) != `{"min_profit":1.5}` {
		t.Fatalf("marshalConfig = (%s, %v)", b, err)
	}
}

func TestMigrationNamesAndPending(t *testing.T) {
	names, err := migrationNames(migrationsFS)
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	if len(names) != 2 || names[0] != "001_init.sql" || names[1] != "002_strategy_procedures.sql" {
		t.Fatalf("names = %v", names)
	}

	pending := pendingMigrations(names, []string{"001_init.sql"})
	if len(pending) != 1 || pending[0] != "002_strategy_procedures.sql" {
		t.Errorf("pending = %v", pending)
	}
	if got := pendingMigrations(names, names); len(got) != 0 {
		t.Errorf("all applied, pending = %v", got)
	}
}
