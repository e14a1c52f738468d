package migration

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	content := `-- Description: sample
CREATE TABLE a (id TEXT);

CREATE INDEX a_id ON a(id);
CREATE TRIGGER a_guard BEFORE INSERT ON a
WHEN NEW.id = ''
BEGIN
    SELECT RAISE(ABORT, 'empty id');
END;
-- trailing comment
INSERT INTO a (id) VALUES ('x')`

	statements := SplitStatements(content)
	if len(statements) != 4 {
		t.Fatalf("expected 4 statements, got %d: %#v", len(statements), statements)
	}
	if statements[0] != "CREATE TABLE a (id TEXT)" {
		t.Fatalf("unexpected first statement: %q", statements[0])
	}
	trigger := statements[2]
	if !strings.HasPrefix(trigger, "CREATE TRIGGER a_guard") || !strings.HasSuffix(trigger, "END") {
		t.Fatalf("trigger body was split: %q", trigger)
	}
	if !strings.Contains(trigger, "SELECT RAISE(ABORT, 'empty id');") {
		t.Fatalf("trigger body lost its inner statement: %q", trigger)
	}
	if statements[3] != "INSERT INTO a (id) VALUES ('x')" {
		t.Fatalf("unterminated final statement not kept: %q", statements[3])
	}
}

func TestDialectPlaceholder(t *testing.T) {
	if got := DialectSQLite.placeholder(3); got != "?" {
		t.Fatalf("sqlite placeholder = %q", got)
	}
	if got := DialectPostgres.placeholder(3); got != "$3" {
		t.Fatalf("postgres placeholder = %q", got)
	}
}
