// Package transfer drives file replication through a bounded,
// adaptively-sized worker pool. Files are processed in batches of
// currentWorkers*2 with a barrier between batches: bounded in-flight
// bytes, and a natural point to re-evaluate concurrency.
package transfer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ning0612/drivemirror/internal/config"
	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/remote"
	"github.com/Ning0612/drivemirror/internal/retry"
)

// Scheduler transfers the file subset of a scanned tree
type Scheduler struct {
	source  remote.Client
	dest    remote.Client
	cfg     config.TransferConfig
	policy  *retry.Policy
	tracker *progress.Tracker
	ctrl    *controller
	log     logger.Logger
}

// New creates a scheduler. The tracker must be sized for the file set
// this scheduler will be handed.
func New(source, dest remote.Client, cfg config.TransferConfig, policy *retry.Policy, tracker *progress.Tracker, log logger.Logger) *Scheduler {
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Scheduler{
		source:  source,
		dest:    dest,
		cfg:     cfg,
		policy:  policy,
		tracker: tracker,
		ctrl:    newController(cfg.MaxWorkers, cfg.AdaptiveConcurrency),
		log:     log,
	}
}

// TransferAll replicates every file in nodes. The folder mapping is
// read-only here; a file whose parent folder has no mapping is uploaded
// under the destination root instead of being dropped. Per-file failures
// land in the summary, they never abort the run. On cancellation,
// in-flight tasks resolve Cancelled and remaining files are not started.
func (s *Scheduler) TransferAll(ctx context.Context, nodes []domain.Node, mapping domain.FolderMapping) (*domain.Summary, error) {
	start := time.Now()

	var files []domain.Node
	folderIndex := make(map[string]string) // folder path -> source folder id
	for _, n := range nodes {
		if n.IsFolder() {
			folderIndex[n.Path] = n.ID
		} else {
			files = append(files, n)
		}
	}

	s.log.Info("starting transfer",
		"files", len(files),
		"workers", s.ctrl.Workers(),
		"adaptive", s.cfg.AdaptiveConcurrency,
	)

	var (
		resMu   sync.Mutex
		results = make([]domain.TaskResult, 0, len(files))
	)

	for head := 0; head < len(files); {
		if ctx.Err() != nil {
			// Unstarted files resolve Cancelled so the summary never
			// reports a silent partial success
			for _, n := range files[head:] {
				results = append(results, domain.TaskResult{
					Node:   n,
					Status: domain.StatusCancelled,
				})
			}
			break
		}

		workers := s.ctrl.Workers()
		end := head + workers*2
		if end > len(files) {
			end = len(files)
		}
		batch := files[head:end]

		g := new(errgroup.Group)
		g.SetLimit(workers)

		for _, node := range batch {
			node := node
			g.Go(func() error {
				res := s.transferOne(ctx, node, mapping, folderIndex)

				switch res.Status {
				case domain.StatusSuccess:
					s.ctrl.OnSuccess()
					s.tracker.Report(1, res.Bytes)
				case domain.StatusFailed:
					s.ctrl.OnFailure()
				}

				resMu.Lock()
				results = append(results, res)
				resMu.Unlock()
				return nil
			})
		}

		// Batch barrier: every task resolves before the next batch forms
		g.Wait()
		head = end
	}

	summary := buildSummary(files, results, time.Since(start))

	s.log.Info("transfer finished",
		"succeeded", summary.Succeeded,
		"failed", len(summary.Failed),
		"cancelled", summary.Cancelled,
		"bytes", progress.FormatBytes(summary.Bytes),
		"elapsed", summary.Elapsed.Round(time.Millisecond),
	)

	return summary, ctx.Err()
}

// buildSummary folds task results into the run summary
func buildSummary(files []domain.Node, results []domain.TaskResult, elapsed time.Duration) *domain.Summary {
	summary := &domain.Summary{
		TotalFiles: len(files),
		Elapsed:    elapsed,
	}

	for _, res := range results {
		switch res.Status {
		case domain.StatusSuccess:
			summary.Succeeded++
			summary.Bytes += res.Bytes
		case domain.StatusCancelled:
			summary.Cancelled++
		case domain.StatusFailed:
			summary.Failed = append(summary.Failed, res)
		}
	}

	return summary
}
