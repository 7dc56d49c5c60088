package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempOutput(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempOutput(t)
	content := []byte("RIFF....WEBP")
	if err := s.Write("thumb/a.webp", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("thumb/a.webp")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestStatMissing(t *testing.T) {
	s := tempOutput(t)
	_, err := s.Stat("thumb/nope.webp")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestStatModTime(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("full/a.webp", []byte("x"))
	when := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(filepath.Join(s.Root(), "full", "a.webp"), when, when); err != nil {
		t.Fatal(err)
	}
	got, err := s.Stat("full/a.webp")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !got.Equal(when) {
		t.Errorf("mtime = %v, want %v", got, when)
	}
}

func TestListFiltersSuffixAndTemp(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("thumb/b.webp", []byte("b"))
	_ = s.Write("thumb/a.webp", []byte("a"))
	_ = s.Write("thumb/notes.txt", []byte("x"))
	_ = os.WriteFile(filepath.Join(s.Root(), "thumb", tmpPrefix+"123"), []byte("partial"), 0o644)
	_ = s.EnsureDir("thumb/nested.webp")

	ids, err := s.List("thumb", ".webp")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestListMissingDir(t *testing.T) {
	s := tempOutput(t)
	ids, err := s.List("medium", ".webp")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}

func TestDirsSkipsHidden(t *testing.T) {
	s := tempOutput(t)
	_ = s.EnsureDir("travel")
	_ = s.EnsureDir("bw")
	_ = s.EnsureDir(".cache")
	_ = s.Write("stray.json", []byte("{}"))

	dirs, err := s.Dirs("")
	if err != nil {
		t.Fatalf("Dirs: %v", err)
	}
	if len(dirs) != 2 || dirs[0] != "bw" || dirs[1] != "travel" {
		t.Errorf("dirs = %v, want [bw travel]", dirs)
	}
}

func TestSubScopesPaths(t *testing.T) {
	s := tempOutput(t)
	sub, err := s.Sub("travel")
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if err := sub.Write("thumb/x.webp", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Stat("travel/thumb/x.webp"); err != nil {
		t.Errorf("file not visible from parent: %v", err)
	}
	if _, err := sub.Read("../other/x.webp"); err == nil {
		t.Error("sub provider should reject escaping paths")
	}
}

func TestRemoveAll(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("old/thumb/a.webp", []byte("a"))
	if err := s.RemoveAll("old"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "old")); !os.IsNotExist(err) {
		t.Error("directory should be gone")
	}
	if err := s.RemoveAll(""); err == nil {
		t.Error("removing the root should fail")
	}
}

func TestSize(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("g/thumb/a.webp", []byte("1234"))
	_ = s.Write("g/full/a.webp", []byte("123456"))
	_ = s.Write("g/images.json", []byte("{}"))

	n, err := s.Size("g", ".webp")
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 10 {
		t.Errorf("size = %d, want 10", n)
	}
	n, err = s.Size("missing", ".webp")
	if err != nil || n != 0 {
		t.Errorf("missing dir: size = %d, err = %v", n, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempOutput(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.webp",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempOutput(t)
	_ = s.Write("images.json", []byte("original"))
	if err := s.Write("images.json", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("images.json")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "folio-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
