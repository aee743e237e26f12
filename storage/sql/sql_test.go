package sql_test

import (
	"fmt"
	"testing"

	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/storage/conformance"
	oasql "github.com/oauthcore-oss/oauthcore/storage/sql"
)

func TestSQLiteConformance(t *testing.T) {
	n := 0
	conformance.RunTests(t, func() storage.Storage {
		n++
		// A distinct in-memory database per call keeps newStorage's
		// "fresh, empty store" contract even though sqlite3's ":memory:"
		// DSN is otherwise process-wide shared when cached.
		dsn := fmt.Sprintf("file:conformance%d?mode=memory&cache=shared", n)
		db, err := oasql.Open(oasql.Config{Driver: "sqlite3", DSN: dsn}, nil)
		if err != nil {
			t.Fatalf("open sqlite3: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	})
}
