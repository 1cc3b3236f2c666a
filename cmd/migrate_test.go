package cmd

import "testing"

func TestSplitStatements(t *testing.T) {
	script := `-- reporting store
CREATE DATABASE IF NOT EXISTS ordgw;

CREATE TABLE IF NOT EXISTS ordgw.order_events
(
    order_id String
)
ENGINE = MergeTree
ORDER BY (order_id);
`
	stmts := splitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("statements = %d, want 2: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE DATABASE IF NOT EXISTS ordgw" {
		t.Fatalf("first statement = %q", stmts[0])
	}
	for _, s := range stmts {
		if s == "" {
			t.Fatal("empty statement survived splitting")
		}
	}
}

func TestSplitStatementsEmptyAndCommentsOnly(t *testing.T) {
	for _, script := range []string{"", "  \n\n", "-- only a comment\n-- another\n", ";;\n;"} {
		if got := splitStatements(script); len(got) != 0 {
			t.Fatalf("splitStatements(%q) = %q, want none", script, got)
		}
	}
}
