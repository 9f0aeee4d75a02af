package archive

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(WithTempDir(t.TempDir()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExistsDeleteSemantics(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Exists("notes/todo.txt")
	if err != nil || ok {
		t.Fatalf("Exists() = %v, %v, want false, nil", ok, err)
	}

	if err := s.WriteBytes("notes/todo.txt", []byte("milk")); err != nil {
		t.Fatalf("WriteBytes() error = %v", err)
	}
	if ok, err = s.Exists("notes/todo.txt"); err != nil || !ok {
		t.Fatalf("Exists() after write = %v, %v, want true, nil", ok, err)
	}

	t.Run("delete absent returns false", func(t *testing.T) {
		existed, err := s.Delete("notes/nothing.txt")
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if existed {
			t.Error("Delete() on absent locator = true, want false")
		}
	})

	t.Run("delete present returns true", func(t *testing.T) {
		existed, err := s.Delete("notes/todo.txt")
		if err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if !existed {
			t.Error("Delete() on present locator = false, want true")
		}
		if ok, _ := s.Exists("notes/todo.txt"); ok {
			t.Error("Exists() after delete = true, want false")
		}
	})
}

func TestReadBytesAbsent(t *testing.T) {
	s := newTestStore(t)
	data, err := s.ReadBytes("missing.bin")
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if data != nil {
		t.Errorf("ReadBytes() on absent locator = %v, want nil", data)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	for _, loc := range []string{"a/one.txt", "a/b/two.txt", "top.txt"} {
		if err := s.WriteBytes(loc, []byte("x")); err != nil {
			t.Fatalf("WriteBytes(%q) error = %v", loc, err)
		}
	}

	t.Run("recursive files only", func(t *testing.T) {
		got, err := s.List("", false, true)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		slices.Sort(got)
		want := []string{"a/b/two.txt", "a/one.txt", "top.txt"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("recursive with directories", func(t *testing.T) {
		got, err := s.List("", true, true)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		slices.Sort(got)
		want := []string{"a", "a/b", "a/b/two.txt", "a/one.txt", "top.txt"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("non-recursive under prefix", func(t *testing.T) {
		got, err := s.List("a", true, false)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		slices.Sort(got)
		want := []string{"a/b", "a/one.txt"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("List() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing prefix is empty", func(t *testing.T) {
		got, err := s.List("nowhere", false, true)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("List() = %v, want empty", got)
		}
	})
}

func TestLocatorEscapeRejected(t *testing.T) {
	s := newTestStore(t)
	for _, loc := range []string{"", "..", "../outside.txt", "a/../../outside.txt", "/etc/passwd"} {
		if err := s.WriteBytes(loc, []byte("x")); !errors.Is(err, ErrInvalidLocator) {
			t.Errorf("WriteBytes(%q) error = %v, want ErrInvalidLocator", loc, err)
		}
		if _, err := s.Exists(loc); !errors.Is(err, ErrInvalidLocator) {
			t.Errorf("Exists(%q) error = %v, want ErrInvalidLocator", loc, err)
		}
	}
	// Interior dot-dot segments that stay inside the root are fine.
	if err := s.WriteBytes("a/../b.txt", []byte("x")); err != nil {
		t.Errorf("WriteBytes(normalizable locator) error = %v", err)
	}
	if ok, err := s.Exists("b.txt"); err != nil || !ok {
		t.Errorf("Exists(normalized locator) = %v, %v, want true, nil", ok, err)
	}
}

func TestDataMapRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := map[string]any{
		"name":    "glossary",
		"count":   int64(3),
		"updated": time.Date(2015, 7, 23, 14, 34, 5, 980_000_000, time.UTC),
		"icon":    []byte{0x47, 0x49, 0x46},
		"entries": []any{map[string]any{"id": "SGML"}},
	}
	if err := s.WriteDataMap("meta/data.json", in); err != nil {
		t.Fatalf("WriteDataMap() error = %v", err)
	}
	got, err := s.ReadDataMap("meta/data.json")
	if err != nil {
		t.Fatalf("ReadDataMap() error = %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("data map mismatch (-want +got):\n%s", diff)
	}

	t.Run("missing data map is an error", func(t *testing.T) {
		if _, err := s.ReadDataMap("meta/absent.json"); err == nil {
			t.Error("ReadDataMap() on absent locator succeeded, want error")
		}
	})
}

func TestSaveAndReopen(t *testing.T) {
	s := newTestStore(t)
	in := map[string]any{"k": "v", "n": int64(7)}
	if err := s.WriteDataMap("data.json", in); err != nil {
		t.Fatalf("WriteDataMap() error = %v", err)
	}
	if err := s.WriteBytes("raw/blob.bin", []byte{0, 1, 2, 255}); err != nil {
		t.Fatalf("WriteBytes() error = %v", err)
	}

	archivePath := filepath.Join(t.TempDir(), "saved.zip")
	if err := s.Save(archivePath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Save is repeatable and does not close the store.
	if err := s.Save(archivePath); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if ok, err := s.Exists("data.json"); err != nil || !ok {
		t.Fatalf("Exists() after Save = %v, %v, want true, nil", ok, err)
	}

	reopened, err := Open(archivePath, WithTempDir(t.TempDir()))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.ReadDataMap("data.json")
	if err != nil {
		t.Fatalf("ReadDataMap() after reopen error = %v", err)
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("reopened data map mismatch (-want +got):\n%s", diff)
	}
	blob, err := reopened.ReadBytes("raw/blob.bin")
	if err != nil {
		t.Fatalf("ReadBytes() after reopen error = %v", err)
	}
	if diff := cmp.Diff([]byte{0, 1, 2, 255}, blob); diff != "" {
		t.Errorf("reopened blob mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseGuard(t *testing.T) {
	tmp := t.TempDir()
	s, err := New(WithTempDir(tmp))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	workDir := s.backend.Root()
	if err := s.WriteBytes("x.txt", []byte("x")); err != nil {
		t.Fatalf("WriteBytes() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Errorf("working directory still present after Close: %v", err)
	}
	// Closing twice is a no-op.
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	checks := map[string]func() error{
		"Exists":       func() error { _, err := s.Exists("x.txt"); return err },
		"Delete":       func() error { _, err := s.Delete("x.txt"); return err },
		"List":         func() error { _, err := s.List("", false, true); return err },
		"ReadBytes":    func() error { _, err := s.ReadBytes("x.txt"); return err },
		"WriteBytes":   func() error { return s.WriteBytes("x.txt", nil) },
		"ReadDataMap":  func() error { _, err := s.ReadDataMap("x.json"); return err },
		"WriteDataMap": func() error { return s.WriteDataMap("x.json", nil) },
		"Properties":   func() error { _, err := s.Properties("p.properties", nil); return err },
		"Property":     func() error { _, err := s.Property("p.properties", "k", "d"); return err },
		"HasProperty":  func() error { _, err := s.HasProperty("p.properties", "k"); return err },
		"Number":       func() error { _, err := s.Number("p.properties", "k", 0); return err },
		"Image":        func() error { _, err := s.Image("i.png", nil); return err },
		"XMLDocument":  func() error { _, err := s.XMLDocument("d.xml", nil); return err },
		"Save":         func() error { return s.Save(filepath.Join(tmp, "out.zip")) },
	}
	for name, fn := range checks {
		if err := fn(); !errors.Is(err, ErrClosed) {
			t.Errorf("%s after Close: error = %v, want ErrClosed", name, err)
		}
	}
}
