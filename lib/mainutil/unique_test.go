package mainutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadOrCreateUnique(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "state", "unique.id")

	first, err := readOrCreateUnique(file)
	if err != nil {
		t.Fatalf("first call: unexpected error: %v", err)
	}
	if len(first) != 20 {
		t.Errorf("first call: expected a 20-character xid, got %q", first)
	}

	second, err := readOrCreateUnique(file)
	if err != nil {
		t.Fatalf("second call: unexpected error: %v", err)
	}
	if second != first {
		t.Errorf("second call: expected %q, got %q", first, second)
	}

	if err := os.WriteFile(file, []byte("  \n"), 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := readOrCreateUnique(file); err == nil {
		t.Error("blank file: expected error")
	}
}

func TestHostname(t *testing.T) {
	t.Setenv("HOSTNAME", "box.example.")
	if actual := Hostname(); actual != "box.example" {
		t.Errorf("expected %q, got %q", "box.example", actual)
	}
}
