package gallery

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/folio/internal/testutil"
)

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	for _, d := range []string{"travel", "bw", ".git", "portraits"} {
		_ = os.Mkdir(filepath.Join(base, d), 0o755)
	}
	_ = os.WriteFile(filepath.Join(base, "readme.txt"), []byte("x"), 0o644)

	got, err := Discover(base)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"bw", "portraits", "travel"}) {
		t.Errorf("galleries = %v", got)
	}
}

func TestDiscover_Missing(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing base")
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteImage(t, dir, "b.JPG", 4, 4)
	testutil.WriteImage(t, dir, "a.png", 4, 4)
	testutil.WriteImage(t, dir, "draft-c.jpeg", 4, 4)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755)
	_ = os.Mkdir(filepath.Join(dir, "sub"), 0o755)
	testutil.WriteImage(t, filepath.Join(dir, "sub"), "deep.png", 4, 4)

	items, err := Scan(dir, DefaultExtensions, []string{"draft-*"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
		if !filepath.IsAbs(it.Path) {
			t.Errorf("path %q should be absolute", it.Path)
		}
		if it.ModTime.IsZero() {
			t.Errorf("%s has no mtime", it.ID)
		}
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("ids = %v, want [a b]", ids)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"bw":              "Bw",
		"black_and-white": "Black And White",
		"street-photos":   "Street Photos",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSourceSize(t *testing.T) {
	dir := t.TempDir()
	items := testutil.Items(t, testutil.WriteCorrupt(t, dir, "a.jpg"))
	if got := SourceSize(items); got != int64(len("this is not an image")) {
		t.Errorf("size = %d", got)
	}
}
