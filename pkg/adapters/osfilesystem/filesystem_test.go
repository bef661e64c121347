package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteCreatesParentsAndReads(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "debug", "frames", "run.json")

	if err := fs.WriteFile(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFileSystem_AppendFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out", "observations.jsonl")

	for _, line := range []string{"a\n", "b\n"} {
		if err := fs.AppendFile(path, []byte(line)); err != nil {
			t.Fatalf("AppendFile failed: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\n" {
		t.Errorf("expected appended lines, got %q", data)
	}
}

func TestFileSystem_ExistsAndRemove(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out.mp4")

	if ok, err := fs.Exists(path); err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	if err := fs.WriteFile(path, []byte{0}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := fs.Exists(path); !ok {
		t.Error("expected file to exist")
	}
	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := fs.Exists(path); ok {
		t.Error("expected file to be removed")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory, got %v %v", info, err)
	}
}
