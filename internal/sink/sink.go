package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tanq16/roxdl/internal/utils"
)

// Sink persists page images as loose files or as archive entries.
type Sink struct {
	target  utils.DownloadTarget
	archive *Archive

	mu      sync.Mutex
	written []string
}

// New returns a Sink for target. archive must be non-nil when the target is archived.
func New(target utils.DownloadTarget, archive *Archive) *Sink {
	return &Sink{target: target, archive: archive}
}

// Write stores body under the rendered file name with ext appended and returns
// the final file name. Archived pages pass through a staging file of their own
// that is removed once the entry is inserted. Two archived pages rendering to
// the same name fail with ErrDuplicateEntry.
func (s *Sink) Write(v Values, ext string, body []byte) (string, error) {
	name := RenderFilename(s.target.FilenameTemplate, v) + "." + ext
	if s.archive == nil {
		path := filepath.Join(s.target.Directory, name)
		if err := os.WriteFile(path, body, 0644); err != nil {
			return "", fmt.Errorf("error writing %s: %w", path, err)
		}
		s.mu.Lock()
		s.written = append(s.written, path)
		s.mu.Unlock()
		return name, nil
	}

	stagingDir := utils.StagingPath(s.target.Directory)
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return "", fmt.Errorf("error creating staging directory: %w", err)
	}
	staged, err := os.CreateTemp(stagingDir, "page-*")
	if err != nil {
		return "", fmt.Errorf("error creating staging file: %w", err)
	}
	defer os.Remove(staged.Name())
	_, err = staged.Write(body)
	if cerr := staged.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("error writing %s: %w", staged.Name(), err)
	}
	if err := s.archive.AddFile(staged.Name(), name); err != nil {
		return "", err
	}
	return name, nil
}

// Written lists loose files produced so far.
func (s *Sink) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}
