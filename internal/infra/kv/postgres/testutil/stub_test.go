package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubConnFiltersByPredicate(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"a", "3"}} {
		_, err := conn.ExecContext(ctx, "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload", []driver.NamedValue{
			{Value: kv[0]},
			{Value: kv[1]},
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if got := conn.Rows("state"); len(got) != 2 {
		t.Fatalf("expected upsert to keep two rows, got %v", got)
	}

	rows, err := conn.QueryContext(ctx, "SELECT payload FROM state WHERE bucket = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil || dest[0] != "3" {
		t.Fatalf("expected upserted payload, got %v err=%v", dest, err)
	}
	if err := rows.Next(dest); err == nil {
		t.Fatalf("expected a single filtered row")
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM state WHERE bucket = $1", []driver.NamedValue{{Value: "a"}}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := conn.Rows("state"); len(got) != 1 || got[0]["bucket"] != "b" {
		t.Fatalf("unexpected rows after delete: %v", got)
	}
}
