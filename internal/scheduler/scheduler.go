package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/roxdl/internal/config"
	"github.com/tanq16/roxdl/internal/fetch"
	"github.com/tanq16/roxdl/internal/gallery"
	"github.com/tanq16/roxdl/internal/metadata"
	"github.com/tanq16/roxdl/internal/sink"
	"github.com/tanq16/roxdl/internal/utils"
)

// Reporter receives gallery status and per-worker progress.
type Reporter interface {
	RegisterFunction(label string) int
	SetMessage(id int, message string)
	SetWorkerProgress(id, worker int, done, total int64)
	Complete(id int, message string)
	ReportError(id int, err error)
}

// Uploader pushes finished artifacts somewhere remote.
type Uploader interface {
	Upload(ctx context.Context, paths []string) error
}

type Options struct {
	Reporter    Reporter
	GalleryBase string
	// HTTPClient overrides the client built from each job's HTTPClientConfig.
	HTTPClient  utils.HTTPDoer
	NewUploader func(ctx context.Context, target utils.UploadTarget) (Uploader, error)
}

// Run downloads the galleries one after another. A failing gallery is reported
// and the next one proceeds; the returned error joins every failure.
func Run(ctx context.Context, jobs []utils.GalleryJob, opts Options) ([]utils.JobResult, error) {
	if len(jobs) == 0 {
		return nil, utils.ErrNoGalleries
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	var results []utils.JobResult
	var errs []error
	for _, job := range jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		funcID := opts.Reporter.RegisterFunction(job.URL)
		opts.Reporter.SetMessage(funcID, fmt.Sprintf("Resolving %s", job.URL))
		result, err := downloadGallery(ctx, job, opts, funcID)
		if err != nil {
			log.Error().Str("op", "scheduler/run").Str("job", job.ID).Err(err).Msgf("gallery %s failed", job.URL)
			opts.Reporter.ReportError(funcID, err)
			errs = append(errs, fmt.Errorf("%s: %w", job.URL, err))
			continue
		}
		opts.Reporter.Complete(funcID, completionMessage(result))
		results = append(results, *result)
	}
	return results, errors.Join(errs...)
}

func completionMessage(r *utils.JobResult) string {
	msg := fmt.Sprintf("Completed %s (%d pages written", r.Name, r.Written)
	if len(r.Skipped) > 0 {
		msg += fmt.Sprintf(", %d absent", len(r.Skipped))
	}
	return msg + fmt.Sprintf(") in %s", r.FinishTime.Sub(r.StartTime).Round(time.Second))
}

// galleryDownload is the state shared by the workers of one gallery.
type galleryDownload struct {
	job      utils.GalleryJob
	desc     *gallery.Descriptor
	locator  *fetch.Locator
	sink     *sink.Sink
	reporter Reporter
	funcID   int

	progress []int64 // one slot per worker, written only by that worker

	mu      sync.Mutex
	skipped []int
	written int
}

func downloadGallery(ctx context.Context, job utils.GalleryJob, opts Options, funcID int) (*utils.JobResult, error) {
	logger := utils.GetLogger("scheduler").With().Str("job", job.ID).Logger()
	start := time.Now()
	base := opts.GalleryBase
	if base == "" {
		base = config.DefaultGalleryBase
	}
	if _, err := gallery.ValidateURL(base, job.URL); err != nil {
		return nil, err
	}

	var client utils.HTTPDoer = opts.HTTPClient
	if client == nil {
		client = utils.NewHTTPClient(job.HTTPClientConfig)
	}
	desc, err := gallery.NewResolver(client, base).Resolve(ctx, job.URL)
	if err != nil {
		return nil, err
	}
	pStart, pEnd, err := NormalizePages(job.Pages, desc.PageCount)
	if err != nil {
		return nil, err
	}
	threads := max(job.Threads, 1)
	ranges := Partition(PageRange{Start: pStart, End: pEnd + 1}, threads)
	logger.Debug().Str("gallery", desc.ID).Int("start", pStart).Int("end", pEnd).Int("threads", threads).Msg("partitioned pages")

	dir := job.Target.Directory
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	var archive *sink.Archive
	if job.Target.Archived() {
		archive, err = sink.OpenArchive(filepath.Join(dir, job.Target.ArchiveName+utils.ArchiveExt))
		if err != nil {
			return nil, err
		}
	}
	result, runErr := runDownload(ctx, job, opts, funcID, desc, client, archive, ranges)
	if archive != nil {
		if err := archive.Close(); err != nil {
			runErr = errors.Join(runErr, err)
		} else {
			logger.Debug().Str("archive", archive.Path()).Int("added", archive.Added()).Msg("archive closed")
			result.Artifacts = append(result.Artifacts, archive.Path())
		}
		os.Remove(utils.StagingPath(dir))
	}
	if runErr != nil {
		return nil, runErr
	}

	if job.Upload.URL != "" && opts.NewUploader != nil && len(result.Artifacts) > 0 {
		opts.Reporter.SetMessage(funcID, fmt.Sprintf("Uploading %d file(s) to %s", len(result.Artifacts), job.Upload.URL))
		uploader, err := opts.NewUploader(ctx, job.Upload)
		if err != nil {
			return nil, fmt.Errorf("error creating uploader: %w", err)
		}
		if err := uploader.Upload(ctx, result.Artifacts); err != nil {
			return nil, err
		}
	}
	result.StartTime = start
	result.FinishTime = time.Now()
	return result, nil
}

func runDownload(ctx context.Context, job utils.GalleryJob, opts Options, funcID int, desc *gallery.Descriptor,
	client utils.HTTPDoer, archive *sink.Archive, ranges []PageRange) (*utils.JobResult, error) {
	result := &utils.JobResult{JobID: job.ID, GalleryID: desc.ID, Name: desc.Name, Pages: desc.PageCount}

	if job.Metadata {
		path, err := metadata.WriteFile(job.Target.Directory, desc)
		if err != nil {
			return result, err
		}
		if archive != nil {
			if err := archive.AddFile(path, filepath.Base(path)); err != nil {
				return result, err
			}
			if err := os.Remove(path); err != nil {
				return result, err
			}
		} else {
			result.Artifacts = append(result.Artifacts, path)
		}
	}

	d := &galleryDownload{
		job:      job,
		desc:     desc,
		locator:  fetch.NewLocator(fetch.NewFetcher(client), desc.ImageURLPattern),
		sink:     sink.New(job.Target, archive),
		reporter: opts.Reporter,
		funcID:   funcID,
		progress: make([]int64, len(ranges)),
	}
	opts.Reporter.SetMessage(funcID, fmt.Sprintf("Downloading %s", desc.Name))
	err := d.run(ctx, ranges)

	result.Written = d.written
	result.Skipped = d.skipped
	result.Progress = d.progress
	result.Artifacts = append(result.Artifacts, d.sink.Written()...)
	return result, err
}
