// Package scanner discovers the complete source tree via breadth-first,
// paginated listing. Paths are assigned as folders are dequeued, so a
// node's path is always derived from an already-visited parent.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/remote"
	"github.com/Ning0612/drivemirror/internal/retry"
)

// Scanner walks a source tree through a remote client
type Scanner struct {
	client     remote.Client
	policy     *retry.Policy
	maxRetries int
	log        logger.Logger
}

// New creates a scanner. maxRetries bounds attempts per listing page.
func New(client remote.Client, policy *retry.Policy, maxRetries int, log logger.Logger) *Scanner {
	if log == nil {
		log = &logger.NullLogger{}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Scanner{
		client:     client,
		policy:     policy,
		maxRetries: maxRetries,
		log:        log,
	}
}

// queueEntry is one folder awaiting expansion
type queueEntry struct {
	id   string
	path string
}

// Scan returns every node under rootID with its path resolved.
// Returns domain.ErrInvalidRoot if rootID is empty or unknown, and
// domain.ErrScanFailed when a page cannot be listed within the retry
// budget. A partial tree is never returned: the mirror and scheduler
// need the whole node set to resolve parents.
func (s *Scanner) Scan(ctx context.Context, rootID string) ([]domain.Node, error) {
	if rootID == "" {
		return nil, fmt.Errorf("%w: empty root id", domain.ErrInvalidRoot)
	}

	var nodes []domain.Node

	// Explicit work queue instead of recursion: index-based traversal
	// keeps stack depth flat for very large trees and gives the
	// breadth-first ordering the path invariant depends on.
	queue := []queueEntry{{id: rootID, path: ""}}

	for head := 0; head < len(queue); head++ {
		entry := queue[head]

		pageToken := ""
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			page, err := s.listPage(ctx, entry.id, pageToken)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) && entry.id == rootID {
					return nil, fmt.Errorf("%w: folder %s unknown to provider", domain.ErrInvalidRoot, rootID)
				}
				return nil, fmt.Errorf("%w: listing folder %q: %v", domain.ErrScanFailed, entry.path, err)
			}

			for _, node := range page.Nodes {
				node.Path = domain.ChildPath(entry.path, node.Name)
				nodes = append(nodes, node)

				if node.IsFolder() {
					queue = append(queue, queueEntry{id: node.ID, path: node.Path})
				}
			}

			pageToken = page.NextToken
			if pageToken == "" {
				break
			}
		}
	}

	s.log.Info("scan complete", "folders", len(queue)-1, "nodes", len(nodes))
	return nodes, nil
}

// listPage fetches one page, retrying transient failures. Only the
// current page is retried; the scan never restarts from the root.
func (s *Scanner) listPage(ctx context.Context, folderID, pageToken string) (*remote.Page, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		page, err := s.client.List(ctx, folderID, pageToken)
		if err == nil {
			return page, nil
		}
		lastErr = err

		cat := retry.Classify(err)
		if !cat.Retryable() || attempt == s.maxRetries {
			return nil, err
		}

		s.log.Warn("listing page failed, backing off",
			"folder", folderID,
			"category", cat.String(),
			"attempt", attempt,
			"error", err,
		)
		if err := s.policy.Wait(ctx, cat, attempt); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}
