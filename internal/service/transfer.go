// Package service wires the replication pipeline together: lock, scan,
// mirror, transfer, record. Only a failed scan or an invalid root abort
// a run; folder and file failures degrade the summary instead.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Ning0612/drivemirror/internal/config"
	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/lock"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/mirror"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/remote"
	"github.com/Ning0612/drivemirror/internal/retry"
	"github.com/Ning0612/drivemirror/internal/scanner"
	"github.com/Ning0612/drivemirror/internal/state"
	"github.com/Ning0612/drivemirror/internal/transfer"
)

// TransferService orchestrates one replication run between two accounts
type TransferService struct {
	cfg    *config.Config
	source remote.Client
	dest   remote.Client
	lock   *lock.FileLock
	state  *state.Manager
	log    logger.Logger
}

// New creates a transfer service with run locking and history enabled
func New(cfg *config.Config, source, dest remote.Client) (*TransferService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	dataDir := cfg.GetDataDir()

	fileLock, err := lock.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create run lock: %w", err)
	}

	stateManager, err := state.NewManager(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	return &TransferService{
		cfg:    cfg,
		source: source,
		dest:   dest,
		lock:   fileLock,
		state:  stateManager,
		log:    logger.Get(),
	}, nil
}

// Run executes the whole pipeline and returns the run summary. The
// summary is non-nil whenever the transfer phase started, even on
// cancellation, so callers always see what happened.
func (s *TransferService) Run(ctx context.Context) (*domain.Summary, error) {
	tc := s.cfg.Transfer

	if tc.SourceRootID == "" {
		return nil, fmt.Errorf("%w: source root id not configured", domain.ErrInvalidRoot)
	}
	if tc.DestRootID == "" {
		return nil, fmt.Errorf("%w: destination root id not configured", domain.ErrInvalidRoot)
	}

	job := fmt.Sprintf("%s -> %s", tc.SourceRootID, tc.DestRootID)
	if err := s.lock.Acquire(job); err != nil {
		if lock.IsLockError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTransferInProgress, err)
		}
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			s.log.Error("failed to release run lock", "error", err)
		}
	}()

	start := time.Now()
	policy := retry.NewPolicy(tc.RetryBaseDelaySeconds)

	s.log.Info("scanning source tree", "root", tc.SourceRootID)
	nodes, err := scanner.New(s.source, policy, tc.MaxRetries, s.log).Scan(ctx, tc.SourceRootID)
	if err != nil {
		s.log.Error("scan failed, aborting run", "error", err)
		return nil, err
	}
	if len(nodes) == 0 {
		s.log.Warn("source tree is empty, nothing to do", "root", tc.SourceRootID)
		return &domain.Summary{}, nil
	}

	s.log.Info("mirroring folder structure", "dest_root", tc.DestRootID)
	mapping, err := mirror.New(s.dest, policy, tc.MaxRetries, s.log).Mirror(ctx, nodes, tc.DestRootID)
	if err != nil {
		return nil, err
	}

	totalFiles, totalBytes := countFiles(nodes)
	tracker := progress.NewTracker(totalFiles, totalBytes, tc.ProgressInterval, s.log)

	summary, runErr := transfer.New(s.source, s.dest, tc, policy, tracker, s.log).
		TransferAll(ctx, nodes, mapping)

	s.record(tc, start, summary, runErr)
	s.report(summary)

	return summary, runErr
}

// countFiles returns the file count and byte total of the node set
func countFiles(nodes []domain.Node) (int, int64) {
	var files int
	var bytes int64
	for _, n := range nodes {
		if n.IsFile() {
			files++
			bytes += n.Size
		}
	}
	return files, bytes
}

// record persists the run outcome; history failures are logged, never fatal
func (s *TransferService) record(tc config.TransferConfig, start time.Time, summary *domain.Summary, runErr error) {
	if s.state == nil || summary == nil {
		return
	}
	if _, err := s.state.RecordSummary(tc.SourceRootID, tc.DestRootID, start, time.Now(), summary, runErr); err != nil {
		s.log.Error("failed to record run history", "error", err)
	}
}

// report logs the final summary and every failed item with its reason
func (s *TransferService) report(summary *domain.Summary) {
	if summary == nil {
		return
	}

	s.log.Info("run summary",
		"succeeded", summary.Succeeded,
		"total", summary.TotalFiles,
		"success_rate", fmt.Sprintf("%.1f%%", summary.SuccessRate()*100),
		"bytes", progress.FormatBytes(summary.Bytes),
		"elapsed", summary.Elapsed.Round(time.Millisecond),
		"throughput", progress.FormatSpeed(summary.Throughput()),
	)

	for _, res := range summary.Failed {
		s.log.Warn("failed item",
			"path", res.Node.Path,
			"reason", res.Reason,
			"attempts", res.Attempts,
			"error", res.Err,
		)
	}
}

// Close releases clients and the history store
func (s *TransferService) Close() error {
	var errs []error
	if s.source != nil {
		errs = append(errs, s.source.Close())
	}
	if s.dest != nil {
		errs = append(errs, s.dest.Close())
	}
	if s.state != nil {
		errs = append(errs, s.state.Close())
	}
	return errors.Join(errs...)
}

var _ io.Closer = (*TransferService)(nil)
