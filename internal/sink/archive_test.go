package sink

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tanq16/roxdl/internal/utils"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()
	entries := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		if _, dup := entries[f.Name]; dup {
			t.Errorf("duplicate entry %s", f.Name)
		}
		entries[f.Name] = string(data)
	}
	return entries
}

func TestArchiveCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if err := a.AddBytes("one.txt", []byte("first")); err != nil {
		t.Fatalf("AddBytes: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries := readArchive(t, path)
	if len(entries) != 1 || entries["one.txt"] != "first" {
		t.Errorf("unexpected entries %v", entries)
	}
	// temporary file must be gone
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".out.zip.*.tmp"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestArchiveAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	a.AddBytes("keep.txt", []byte("old"))
	a.AddBytes("replace.txt", []byte("old"))
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err = OpenArchive(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	a.AddBytes("replace.txt", []byte("new"))
	a.AddBytes("added.txt", []byte("new"))
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readArchive(t, path)
	want := map[string]string{"keep.txt": "old", "replace.txt": "new", "added.txt": "new"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), entries)
	}
	for name, content := range want {
		if entries[name] != content {
			t.Errorf("entry %s = %q, want %q", name, entries[name], content)
		}
	}
}

func TestArchiveClosedAndDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.zip")
	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if err := a.AddBytes("x", []byte("1")); err != nil {
		t.Fatalf("AddBytes: %v", err)
	}
	if err := a.AddBytes("x", []byte("2")); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("expected ErrDuplicateEntry, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := a.AddBytes("y", nil); !errors.Is(err, ErrArchiveClosed) {
		t.Errorf("expected ErrArchiveClosed, got %v", err)
	}
}

func TestArchiveConcurrentAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.zip")
	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := filepath.Join(dir, fmt.Sprintf("page-%d.jpg", i))
			if err := os.WriteFile(src, []byte(fmt.Sprintf("content-%d", i)), 0644); err != nil {
				errs <- err
				return
			}
			errs <- a.AddFile(src, filepath.Base(src))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddFile: %v", err)
		}
	}
	if a.Added() != n {
		t.Errorf("expected %d added, got %d", n, a.Added())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries := readArchive(t, path)
	if len(entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(entries))
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("page-%d.jpg", i)
		if entries[name] != fmt.Sprintf("content-%d", i) {
			t.Errorf("entry %s has wrong content %q", name, entries[name])
		}
	}
}

func TestOpenArchiveCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenArchive(path); err == nil {
		t.Error("expected error opening corrupt archive")
	}
}

func TestInterruptedArchiveIsCleanable(t *testing.T) {
	dir := t.TempDir()
	a, err := OpenArchive(filepath.Join(dir, "pages.zip"))
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if err := a.AddBytes("1.jpg", []byte("one")); err != nil {
		t.Fatalf("AddBytes: %v", err)
	}
	// simulate a killed process: the temp file is never finished or renamed
	a.tmp.Close()

	removed, err := utils.CleanStagingTree(dir)
	if err != nil {
		t.Fatalf("CleanStagingTree: %v", err)
	}
	if len(removed) != 1 || !utils.IsArchiveTemp(filepath.Base(removed[0])) {
		t.Fatalf("expected the temp archive to be removed, got %v", removed)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected empty directory, got %d entries", len(entries))
	}
}
