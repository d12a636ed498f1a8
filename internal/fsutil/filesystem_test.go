package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_ReadWrite(t *testing.T) {
	m := NewMemoryFileSystem()

	if err := m.WriteFile("data/qrs/match1.txt", []byte("+A12$B1"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := m.ReadFile("data/qrs/match1.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "+A12$B1" {
		t.Errorf("ReadFile = %q, want %q", got, "+A12$B1")
	}

	// Mutating the returned slice must not change the stored file.
	got[0] = '*'
	again, _ := m.ReadFile("data/qrs/match1.txt")
	if again[0] != '+' {
		t.Error("ReadFile returned a shared buffer")
	}

	if !m.Exists("data/qrs") {
		t.Error("parent directory should exist after WriteFile")
	}
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("nope.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile error = %v, want ErrNotExist", err)
	}
	_, err = m.Stat("nope.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat error = %v, want ErrNotExist", err)
	}
	if m.Exists("nope.txt") {
		t.Error("Exists reported a missing file")
	}
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	m := NewMemoryFileSystem()
	for _, name := range []string{"qrs/b.txt", "qrs/a.txt", "qrs/c.csv", "other/d.txt"} {
		if err := m.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.Glob(filepath.Join("qrs", "*.txt"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	want := []string{"qrs/a.txt", "qrs/b.txt"}
	if len(got) != len(want) {
		t.Fatalf("Glob = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Glob[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := m.Glob("["); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestMemoryFileSystem_StatDir(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("reports/2025", 0o755); err != nil {
		t.Fatal(err)
	}
	info, err := m.Stat("reports")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}
}

func TestOSFileSystem_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	var osfs OSFileSystem
	path := filepath.Join(dir, "batch.txt")

	if err := osfs.WriteFile(path, []byte("payload\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !osfs.Exists(path) {
		t.Fatal("file should exist")
	}
	matches, err := osfs.Glob(filepath.Join(dir, "*.txt"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("Glob = %v, %v", matches, err)
	}
	info, err := osfs.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len("payload\n")) {
		t.Errorf("Size = %d", info.Size())
	}
}
