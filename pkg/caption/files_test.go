package caption

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListImagesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "c.jpeg", "d.txt", "E.JPG", "scratch.imgcap.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := ListImages(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"E.JPG", "a.png", "b.jpg", "c.jpeg"}
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i, w := range want {
		if got[i] != filepath.Join(dir, w) {
			t.Fatalf("index %d: expected %s got %s", i, w, got[i])
		}
	}
}

func TestIsSupportedImage(t *testing.T) {
	cases := map[string]bool{
		"a.png": true, "b.jpg": true, "c.jpeg": true, "d.txt": false,
		"photo.PNG": true, "anim.gif": false, "noext": false, "x.png.bak": false,
	}
	for name, want := range cases {
		if got := IsSupportedImage(name); got != want {
			t.Fatalf("%s: expected %v got %v", name, want, got)
		}
	}
}

func TestListImagesMissingDir(t *testing.T) {
	if _, err := ListImages(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
