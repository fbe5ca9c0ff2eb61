package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// EnsureDir creates dir (and parents) when missing.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("output path %s exists and is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// StagingPath returns the directory holding intermediate page files for dir.
func StagingPath(dir string) string {
	return filepath.Join(dir, StagingDir)
}

// ArchiveTempPattern is the os.CreateTemp pattern of the file an archive is
// assembled in before being renamed to name.
func ArchiveTempPattern(name string) string {
	return "." + name + ".*" + archiveTempSuffix
}

// IsArchiveTemp reports whether a file name was produced by ArchiveTempPattern.
func IsArchiveTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, archiveTempSuffix) &&
		strings.Contains(name, ArchiveExt+".")
}

// CleanStagingTree walks root and removes every staging directory and every
// half-written archive left behind by an interrupted run.
func CleanStagingTree(root string) ([]string, error) {
	var removed []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == StagingDir {
			if err := os.RemoveAll(path); err != nil {
				return err
			}
			removed = append(removed, path)
			return filepath.SkipDir
		}
		if !d.IsDir() && IsArchiveTemp(d.Name()) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed = append(removed, path)
		}
		return nil
	})
	return removed, err
}
