package utils

import "time"

// GalleryJob is one gallery download request as built by the CLI.
type GalleryJob struct {
	ID               string
	URL              string
	Target           DownloadTarget
	Pages            [2]int
	Threads          int
	Metadata         bool
	Upload           UploadTarget
	HTTPClientConfig HTTPClientConfig
}

// DownloadTarget is where and under which names pages are persisted.
type DownloadTarget struct {
	Directory        string
	FilenameTemplate string
	ArchiveName      string // empty means loose files
}

func (t DownloadTarget) Archived() bool {
	return t.ArchiveName != ""
}

type UploadTarget struct {
	URL     string // s3://bucket/prefix, empty disables upload
	Profile string
}

// JobResult summarises a finished gallery download.
type JobResult struct {
	JobID      string
	GalleryID  string
	Name       string
	Pages      int
	Written    int
	Skipped    []int
	Artifacts  []string
	Progress   []int64 // pages processed per worker
	StartTime  time.Time
	FinishTime time.Time
}
