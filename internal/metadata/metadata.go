// Package metadata writes the plain-text gallery summary saved next to the pages.
package metadata

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tanq16/roxdl/internal/gallery"
	"github.com/tanq16/roxdl/internal/utils"
)

// Write renders the summary of desc: name, URL, page count, then one line per
// non-empty tag category with its values comma-joined in discovery order.
func Write(w io.Writer, desc *gallery.Descriptor) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Gallery name: %s\n", desc.Name)
	fmt.Fprintf(bw, "URL: %s\n", desc.URL)
	fmt.Fprintf(bw, "Pages: %d\n\n", desc.PageCount)
	fmt.Fprintf(bw, "Metadata:\n")
	if desc.Tags != nil {
		for _, c := range desc.Tags.Categories() {
			if len(c.Values) == 0 {
				continue
			}
			fmt.Fprintf(bw, "* %s: %s\n", c.Name, strings.Join(c.Values, ", "))
		}
	}
	return bw.Flush()
}

// WriteFile writes the summary to dir and returns the file path.
func WriteFile(dir string, desc *gallery.Descriptor) (string, error) {
	path := filepath.Join(dir, utils.MetadataFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating metadata file: %w", err)
	}
	if err := Write(f, desc); err != nil {
		f.Close()
		return "", fmt.Errorf("error writing metadata file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
