package sink

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/roxdl/internal/utils"
)

var (
	ErrArchiveClosed  = errors.New("sink: archive already closed")
	ErrDuplicateEntry = errors.New("sink: duplicate archive entry")
)

// Archive is a zip container shared by all workers of one gallery download.
// Every mutation is serialized by a single mutex. Entries from a pre-existing
// archive are kept unless an entry of the same name is added during this run.
// The result is assembled in a temporary file and renamed into place on Close.
type Archive struct {
	mu     sync.Mutex
	path   string
	tmp    *os.File
	w      *zip.Writer
	prior  *zip.ReadCloser
	names  map[string]bool
	added  int
	closed bool
}

// OpenArchive opens path for appending, creating it if it does not exist.
func OpenArchive(path string) (*Archive, error) {
	a := &Archive{path: path, names: make(map[string]bool)}
	if _, err := os.Stat(path); err == nil {
		prior, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("error opening existing archive: %w", err)
		}
		a.prior = prior
		log.Debug().Str("op", "sink/archive").Str("path", path).Int("entries", len(prior.File)).Msg("appending to existing archive")
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), utils.ArchiveTempPattern(filepath.Base(path)))
	if err != nil {
		a.closePrior()
		return nil, fmt.Errorf("error creating archive: %w", err)
	}
	a.tmp = tmp
	a.w = zip.NewWriter(tmp)
	a.w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return a, nil
}

func (a *Archive) Path() string {
	return a.path
}

// Added returns how many entries were inserted since the archive was opened.
func (a *Archive) Added() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.added
}

// AddFile inserts the file at path as an entry called name.
func (a *Archive) AddFile(path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	return a.add(name, info.ModTime(), f)
}

// AddBytes inserts data as an entry called name.
func (a *Archive) AddBytes(name string, data []byte) error {
	return a.add(name, time.Now(), bytes.NewReader(data))
}

func (a *Archive) add(name string, modified time.Time, r io.Reader) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrArchiveClosed
	}
	if a.names[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}
	fw, err := a.w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("error creating archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("error writing archive entry %s: %w", name, err)
	}
	a.names[name] = true
	a.added++
	return nil
}

// Close carries over prior entries, finalizes the central directory and moves
// the result into place. It is safe to call more than once.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	err := a.finish()
	a.closePrior()
	if err != nil {
		a.tmp.Close()
		os.Remove(a.tmp.Name())
		return err
	}
	if err := os.Rename(a.tmp.Name(), a.path); err != nil {
		os.Remove(a.tmp.Name())
		return fmt.Errorf("error finalizing archive: %w", err)
	}
	log.Debug().Str("op", "sink/archive").Str("path", a.path).Int("added", a.added).Msg("archive closed")
	return nil
}

func (a *Archive) finish() error {
	if a.prior != nil {
		for _, f := range a.prior.File {
			if a.names[f.Name] {
				continue
			}
			if err := a.w.Copy(f); err != nil {
				return fmt.Errorf("error copying existing entry %s: %w", f.Name, err)
			}
		}
	}
	if err := a.w.Close(); err != nil {
		return fmt.Errorf("error writing archive directory: %w", err)
	}
	if err := a.tmp.Sync(); err != nil {
		return err
	}
	return a.tmp.Close()
}

func (a *Archive) closePrior() {
	if a.prior != nil {
		a.prior.Close()
		a.prior = nil
	}
}
