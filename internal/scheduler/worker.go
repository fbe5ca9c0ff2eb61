package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/roxdl/internal/fetch"
	"github.com/tanq16/roxdl/internal/sink"
	"golang.org/x/sync/errgroup"
)

// run launches one worker per range and waits for all of them. The first
// fatal page error cancels the remaining workers at their next page; every
// worker error is returned joined.
func (d *galleryDownload) run(ctx context.Context, ranges []PageRange) error {
	g, gctx := errgroup.WithContext(ctx)
	var errMu sync.Mutex
	var errs []error
	for i, r := range ranges {
		d.reporter.SetWorkerProgress(d.funcID, i, 0, int64(r.Len()))
		g.Go(func() error {
			err := d.work(gctx, i, r)
			if err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
			return err
		})
	}
	g.Wait()
	sort.Ints(d.skipped)
	if len(errs) == 0 && ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Join(errs...)
}

// work processes the pages of r in increasing order.
func (d *galleryDownload) work(ctx context.Context, worker int, r PageRange) error {
	total := int64(r.Len())
	for i := r.Start; i < r.End; i++ {
		if ctx.Err() != nil {
			// cancelled by a failing sibling or by the caller
			return nil
		}
		if err := d.page(ctx, i); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: %w", worker+1, err)
		}
		d.progress[worker]++
		d.reporter.SetWorkerProgress(d.funcID, worker, d.progress[worker], total)
	}
	return nil
}

// page downloads and stores the page at zero-based index i.
func (d *galleryDownload) page(ctx context.Context, i int) error {
	pageNum := i + 1
	img, err := d.locator.Locate(ctx, pageNum)
	if fetch.IsAbsent(err) {
		log.Warn().Str("op", "scheduler/worker").Str("gallery", d.desc.ID).Int("page", pageNum).Err(err).Msg("no candidate extension matched, skipping page")
		d.mu.Lock()
		d.skipped = append(d.skipped, pageNum)
		d.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}
	name, err := d.sink.Write(sink.Values{
		GalleryName: d.desc.Name,
		GalleryID:   d.desc.ID,
		PageNum:     pageNum,
		PagesNum:    d.desc.PageCount,
	}, img.Ext, img.Body)
	if err != nil {
		return fmt.Errorf("page %d: %w", pageNum, err)
	}
	log.Debug().Str("op", "scheduler/worker").Str("gallery", d.desc.ID).Int("page", pageNum).Str("file", name).Msg("page stored")
	d.mu.Lock()
	d.written++
	d.mu.Unlock()
	return nil
}

type nopReporter struct{}

func (nopReporter) RegisterFunction(string) int              { return 0 }
func (nopReporter) SetMessage(int, string)                   {}
func (nopReporter) SetWorkerProgress(int, int, int64, int64) {}
func (nopReporter) Complete(int, string)                     {}
func (nopReporter) ReportError(int, error)                   {}
