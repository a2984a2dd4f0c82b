// Package mirror replays the folder subset of a scanned tree onto the
// destination. Folders are processed in ascending path depth, so a
// parent's mapping decision is always finalized before any child is
// touched. That ordering is the correctness property everything else
// leans on, not an optimization.
package mirror

import (
	"context"
	"errors"
	"sort"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/remote"
	"github.com/Ning0612/drivemirror/internal/retry"
)

// Mirror creates the destination folder structure
type Mirror struct {
	dest       remote.Client
	policy     *retry.Policy
	maxRetries int
	log        logger.Logger
}

// New creates a mirror. maxRetries bounds attempts per folder operation.
func New(dest remote.Client, policy *retry.Policy, maxRetries int, log logger.Logger) *Mirror {
	if log == nil {
		log = &logger.NullLogger{}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Mirror{
		dest:       dest,
		policy:     policy,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Mirror builds the source-to-destination folder mapping under
// destRootID. Existing destination folders with a matching (name,
// parent) are reused, so re-running against a partially-populated
// destination never duplicates them.
//
// Individual folder failures are logged and leave the mapping absent for
// that folder; the run continues. Files whose parent chain descends
// through an unmapped folder are later uploaded under the destination
// root instead of being dropped. The returned mapping may therefore be
// incomplete; only cancellation returns an error.
func (m *Mirror) Mirror(ctx context.Context, nodes []domain.Node, destRootID string) (domain.FolderMapping, error) {
	var folders []domain.Node
	for _, n := range nodes {
		if n.IsFolder() {
			folders = append(folders, n)
		}
	}

	// Parents before children. Stable keeps sibling order deterministic.
	sort.SliceStable(folders, func(i, j int) bool {
		return folders[i].Depth() < folders[j].Depth()
	})

	byPath := make(map[string]string, len(folders)) // folder path -> source id
	for _, f := range folders {
		byPath[f.Path] = f.ID
	}

	mapping := make(domain.FolderMapping, len(folders))

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return mapping, err
		}

		// Idempotent short-circuit for reentrant runs
		if _, ok := mapping[folder.ID]; ok {
			continue
		}

		destParentID := m.resolveParent(folder, mapping, byPath, destRootID)

		destID, err := m.findOrCreate(ctx, destParentID, folder.Name)
		if err != nil {
			if ctx.Err() != nil {
				return mapping, ctx.Err()
			}
			m.log.Error("folder create failed, descendants fall back to destination root",
				"path", folder.Path,
				"error", errors.Join(domain.ErrFolderCreateFailed, err),
			)
			continue
		}

		mapping[folder.ID] = destID
		m.log.Debug("folder mapped", "path", folder.Path, "dest_id", destID)
	}

	m.log.Info("folder mirror complete", "folders", len(folders), "mapped", len(mapping))
	return mapping, nil
}

// resolveParent returns the destination parent for a folder: the mapped
// id of its parent-by-path, or the destination root for top-level
// folders and for children of folders that failed to map.
func (m *Mirror) resolveParent(folder domain.Node, mapping domain.FolderMapping, byPath map[string]string, destRootID string) string {
	parentPath := folder.ParentPath()
	if parentPath == "" {
		return destRootID
	}

	if parentID, ok := byPath[parentPath]; ok {
		if destID, ok := mapping[parentID]; ok {
			return destID
		}
	}

	m.log.Warn("parent folder unmapped, creating under destination root", "path", folder.Path)
	return destRootID
}

// findOrCreate reuses an existing destination folder with the same name
// under parentID, creating it only when absent. Transient failures are
// retried within the budget.
func (m *Mirror) findOrCreate(ctx context.Context, parentID, name string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		id, err := m.dest.FindFolder(ctx, parentID, name)
		if err == nil {
			return id, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			id, err = m.dest.CreateFolder(ctx, parentID, name)
			if err == nil {
				return id, nil
			}
		}
		lastErr = err

		cat := retry.Classify(err)
		if !cat.Retryable() || attempt == m.maxRetries {
			return "", err
		}

		m.log.Warn("folder operation failed, backing off",
			"folder", name,
			"category", cat.String(),
			"attempt", attempt,
			"error", err,
		)
		if err := m.policy.Wait(ctx, cat, attempt); err != nil {
			return "", err
		}
	}

	return "", lastErr
}
