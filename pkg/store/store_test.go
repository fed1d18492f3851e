package store

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

// openBackends returns every backend under its name so each test runs
// the same suite against all of them.
func openBackends(t *testing.T) map[string]Store {
	t.Helper()

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func TestSheetRoundTrip(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			rec := &SheetRecord{
				Owner:      "alice",
				Name:       "budget",
				Body:       "Item\tCost\nRent\t1200\n",
				Formats:    "default,currency:$:2",
				HasHeaders: true,
			}
			if err := st.SaveSheet(rec); err != nil {
				t.Fatalf("SaveSheet failed: %v", err)
			}

			got, err := st.LoadSheet("alice", "budget")
			if err != nil {
				t.Fatalf("LoadSheet failed: %v", err)
			}
			if got.Body != rec.Body {
				t.Errorf("body = %q, want %q", got.Body, rec.Body)
			}
			if got.Formats != rec.Formats {
				t.Errorf("formats = %q, want %q", got.Formats, rec.Formats)
			}
			if !got.HasHeaders {
				t.Error("HasHeaders was not persisted")
			}
			if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
				t.Error("timestamps were not set")
			}
			if got.UpdatedAt.Before(got.CreatedAt) {
				t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
			}

			// Updating keeps the creation time.
			rec.Body = "Item\tCost\nRent\t1300\n"
			if err := st.SaveSheet(rec); err != nil {
				t.Fatalf("second SaveSheet failed: %v", err)
			}
			updated, err := st.LoadSheet("alice", "budget")
			if err != nil {
				t.Fatalf("LoadSheet after update failed: %v", err)
			}
			if updated.Body != rec.Body {
				t.Errorf("body after update = %q, want %q", updated.Body, rec.Body)
			}
			if !updated.CreatedAt.Equal(got.CreatedAt) {
				t.Errorf("CreatedAt changed on update: %v -> %v", got.CreatedAt, updated.CreatedAt)
			}
		})
	}
}

func TestLoadSheetMissing(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.LoadSheet("nobody", "nothing")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("LoadSheet error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListSheets(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			for _, sheet := range []string{"inventory", "budget", "zeta"} {
				if err := st.SaveSheet(&SheetRecord{Owner: "alice", Name: sheet, Body: "x"}); err != nil {
					t.Fatalf("SaveSheet %s failed: %v", sheet, err)
				}
			}
			if err := st.SaveSheet(&SheetRecord{Owner: "bob", Name: "other", Body: "y"}); err != nil {
				t.Fatalf("SaveSheet for bob failed: %v", err)
			}

			names, err := st.ListSheets("alice")
			if err != nil {
				t.Fatalf("ListSheets failed: %v", err)
			}
			want := []string{"budget", "inventory", "zeta"}
			if len(names) != len(want) {
				t.Fatalf("ListSheets returned %v, want %v", names, want)
			}
			for i := range want {
				if names[i] != want[i] {
					t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
				}
			}

			empty, err := st.ListSheets("nobody")
			if err != nil {
				t.Fatalf("ListSheets for unknown owner failed: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("ListSheets for unknown owner = %v, want empty", empty)
			}
		})
	}
}

func TestDeleteSheet(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.SaveSheet(&SheetRecord{Owner: "alice", Name: "gone", Body: "x"}); err != nil {
				t.Fatalf("SaveSheet failed: %v", err)
			}
			if err := st.DeleteSheet("alice", "gone"); err != nil {
				t.Fatalf("DeleteSheet failed: %v", err)
			}
			if _, err := st.LoadSheet("alice", "gone"); !errors.Is(err, ErrNotFound) {
				t.Errorf("LoadSheet after delete = %v, want ErrNotFound", err)
			}
			if err := st.DeleteSheet("alice", "gone"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second DeleteSheet = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestUsers(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.CreateUser("carol", "$2a$12$hash"); err != nil {
				t.Fatalf("CreateUser failed: %v", err)
			}

			rec, err := st.User("carol")
			if err != nil {
				t.Fatalf("User failed: %v", err)
			}
			if rec.Username != "carol" || rec.PasswordHash != "$2a$12$hash" {
				t.Errorf("got %+v, want carol with stored hash", rec)
			}
			if rec.CreatedAt.IsZero() {
				t.Error("CreatedAt was not set")
			}

			if err := st.CreateUser("carol", "other"); !errors.Is(err, ErrExists) {
				t.Errorf("duplicate CreateUser = %v, want ErrExists", err)
			}
			if _, err := st.User("nobody"); !errors.Is(err, ErrNotFound) {
				t.Errorf("unknown User = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPluginData(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			value := []byte("rate=0.05\x00binary")
			if err := st.SavePluginData("finance", "settings", value); err != nil {
				t.Fatalf("SavePluginData failed: %v", err)
			}

			got, err := st.LoadPluginData("finance", "settings")
			if err != nil {
				t.Fatalf("LoadPluginData failed: %v", err)
			}
			if !bytes.Equal(got, value) {
				t.Errorf("LoadPluginData = %q, want %q", got, value)
			}

			// Overwrite replaces.
			if err := st.SavePluginData("finance", "settings", []byte("rate=0.07")); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			got, err = st.LoadPluginData("finance", "settings")
			if err != nil {
				t.Fatalf("LoadPluginData after overwrite failed: %v", err)
			}
			if string(got) != "rate=0.07" {
				t.Errorf("LoadPluginData after overwrite = %q, want %q", got, "rate=0.07")
			}

			if _, err := st.LoadPluginData("finance", "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing key = %v, want ErrNotFound", err)
			}
			if _, err := st.LoadPluginData("textutils", "settings"); !errors.Is(err, ErrNotFound) {
				t.Errorf("other plugin sees the data: err = %v, want ErrNotFound", err)
			}

			if err := st.DeletePluginData("finance", "settings"); err != nil {
				t.Fatalf("DeletePluginData failed: %v", err)
			}
			if _, err := st.LoadPluginData("finance", "settings"); !errors.Is(err, ErrNotFound) {
				t.Errorf("key survived delete: err = %v, want ErrNotFound", err)
			}
			if err := st.DeletePluginData("finance", "settings"); err != nil {
				t.Errorf("deleting a missing key = %v, want nil", err)
			}
		})
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")

	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := first.SaveSheet(&SheetRecord{Owner: "alice", Name: "keep", Body: "x"}); err != nil {
		t.Fatalf("SaveSheet failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopening an existing database keeps its contents.
	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := second.LoadSheet("alice", "keep"); err != nil {
		t.Errorf("sheet lost across reopen: %v", err)
	}

	// A database written by a newer release is refused.
	if _, err := second.conn.Exec("UPDATE metadata SET value = '999' WHERE key = 'schema_version'"); err != nil {
		t.Fatalf("failed to bump schema version: %v", err)
	}
	second.Close()

	if _, err := OpenSQLite(path); err == nil {
		t.Error("OpenSQLite accepted a database with a future schema version")
	}
}

func TestPluginDataSize(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			size, err := st.PluginDataSize("finance")
			if err != nil {
				t.Fatalf("PluginDataSize on empty store failed: %v", err)
			}
			if size != 0 {
				t.Errorf("empty size = %d, want 0", size)
			}

			if err := st.SavePluginData("finance", "a", make([]byte, 100)); err != nil {
				t.Fatalf("SavePluginData failed: %v", err)
			}
			if err := st.SavePluginData("finance", "b", make([]byte, 50)); err != nil {
				t.Fatalf("SavePluginData failed: %v", err)
			}
			if err := st.SavePluginData("textutils", "a", make([]byte, 999)); err != nil {
				t.Fatalf("SavePluginData failed: %v", err)
			}

			size, err = st.PluginDataSize("finance")
			if err != nil {
				t.Fatalf("PluginDataSize failed: %v", err)
			}
			if size != 150 {
				t.Errorf("size = %d, want 150", size)
			}
		})
	}
}
