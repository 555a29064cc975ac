package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileImageStoreSave(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileImageStore(dir)
	if err != nil {
		t.Fatalf("NewFileImageStore: %v", err)
	}
	data := []byte("image-bytes")
	if err := fs.Save(context.Background(), "courses/course-7-1.png", data, "image/png"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "courses", "course-7-1.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("content = %q", got)
	}
}

func TestFileImageStoreConfinesKeys(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileImageStore(filepath.Join(dir, "images"))
	if err != nil {
		t.Fatalf("NewFileImageStore: %v", err)
	}
	if err := fs.Save(context.Background(), "../../escape.png", []byte("x"), "image/png"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.png")); err == nil {
		t.Fatal("key escaped the base directory")
	}
	if _, err := os.Stat(filepath.Join(dir, "images", "escape.png")); err != nil {
		t.Fatalf("sanitized file missing: %v", err)
	}
}

func TestFileImageStoreRequiresBasePath(t *testing.T) {
	if _, err := NewFileImageStore("  "); err == nil {
		t.Fatal("blank base path accepted")
	}
}

func TestSafeKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"courses/a.png", "courses/a.png"},
		{"../../etc/passwd", "etc/passwd"},
		{"a//b", "a/b"},
		{"..", "image"},
	}
	for _, c := range cases {
		if got := safeKey(c.in); got != c.want {
			t.Errorf("safeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
