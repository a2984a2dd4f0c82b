package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/remote"
	"github.com/Ning0612/drivemirror/internal/retry"
)

// editorMimePrefix marks Google editor documents, which have no raw
// content and must be exported
const editorMimePrefix = "application/vnd.google-apps"

// exportFormat describes how to materialize an editor document
type exportFormat struct {
	mimeType  string
	extension string
}

// exportFormats maps editor document types to their Office equivalents
var exportFormats = map[string]exportFormat{
	"application/vnd.google-apps.document": {
		mimeType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		extension: ".docx",
	},
	"application/vnd.google-apps.spreadsheet": {
		mimeType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		extension: ".xlsx",
	},
	"application/vnd.google-apps.presentation": {
		mimeType:  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		extension: ".pptx",
	},
}

// transferOne moves a single file, retrying the whole logical transfer
// (download plus upload as one unit) up to the configured budget. The
// task resolves exactly once.
func (s *Scheduler) transferOne(ctx context.Context, node domain.Node, mapping domain.FolderMapping, folderIndex map[string]string) domain.TaskResult {
	destParentID := s.resolveDestParent(node, mapping, folderIndex)

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return domain.TaskResult{Node: node, Status: domain.StatusCancelled, Attempts: attempt - 1}
		}

		n, err := s.attempt(ctx, node, destParentID)
		if err == nil {
			return domain.TaskResult{
				Node:     node,
				Status:   domain.StatusSuccess,
				Attempts: attempt,
				Bytes:    n,
			}
		}

		// I/O aborted by run cancellation must not be misreported as a
		// transfer failure
		if ctx.Err() != nil {
			return domain.TaskResult{Node: node, Status: domain.StatusCancelled, Attempts: attempt}
		}

		cat := retry.Classify(err)
		if !cat.Retryable() || attempt >= s.cfg.MaxRetries {
			s.log.Error("transfer failed",
				"path", node.Path,
				"category", cat.String(),
				"attempts", attempt,
				"error", err,
			)
			return domain.TaskResult{
				Node:     node,
				Status:   domain.StatusFailed,
				Attempts: attempt,
				Reason:   cat.String(),
				Err:      err,
			}
		}

		s.log.Warn("transfer attempt failed, backing off",
			"path", node.Path,
			"category", cat.String(),
			"attempt", attempt,
			"error", err,
		)
		if werr := s.policy.Wait(ctx, cat, attempt); werr != nil {
			return domain.TaskResult{Node: node, Status: domain.StatusCancelled, Attempts: attempt}
		}
	}
}

// resolveDestParent maps the file's parent folder to its destination id.
// A file whose parent chain includes a folder the mirror could not
// create falls back to the destination root rather than being silently
// dropped; the mapping gap was already logged by the mirror.
func (s *Scheduler) resolveDestParent(node domain.Node, mapping domain.FolderMapping, folderIndex map[string]string) string {
	parentPath := node.ParentPath()
	if parentPath == "" {
		return s.cfg.DestRootID
	}

	if srcID, ok := folderIndex[parentPath]; ok {
		if destID, ok := mapping[srcID]; ok {
			return destID
		}
	}

	s.log.Warn("parent folder unmapped, uploading under destination root", "path", node.Path)
	return s.cfg.DestRootID
}

// attempt performs one download+upload cycle. Each network leg is
// bounded by the configured timeout. Content is buffered between legs;
// live memory is capped by the batch size.
func (s *Scheduler) attempt(ctx context.Context, node domain.Node, destParentID string) (int64, error) {
	name := node.Name
	mimeType := node.MimeType
	var open func(context.Context) (io.ReadCloser, error)

	if strings.HasPrefix(node.MimeType, editorMimePrefix) {
		format, ok := exportFormats[node.MimeType]
		if !ok {
			return 0, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedDocType, node.Path, node.MimeType)
		}
		name += format.extension
		mimeType = format.mimeType
		open = func(ctx context.Context) (io.ReadCloser, error) {
			return s.source.Export(ctx, node.ID, format.mimeType)
		}
	} else {
		open = func(ctx context.Context) (io.ReadCloser, error) {
			return s.source.Download(ctx, node.ID)
		}
	}

	var buf bytes.Buffer
	if err := s.downloadLeg(ctx, open, &buf); err != nil {
		return 0, fmt.Errorf("download %s: %w", node.Path, err)
	}

	size := int64(buf.Len())
	if err := s.uploadLeg(ctx, remote.UploadMeta{
		Name:     name,
		ParentID: destParentID,
		MimeType: mimeType,
		Size:     size,
	}, &buf); err != nil {
		return 0, fmt.Errorf("upload %s: %w", node.Path, err)
	}

	return size, nil
}

// downloadLeg streams the source content into buf under its own timeout
func (s *Scheduler) downloadLeg(ctx context.Context, open func(context.Context) (io.ReadCloser, error), buf *bytes.Buffer) error {
	legCtx, cancel := context.WithTimeout(ctx, s.cfg.NetworkTimeout())
	defer cancel()

	rc, err := open(legCtx)
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(buf, rc)
	return err
}

// uploadLeg streams buf to the destination under its own timeout
func (s *Scheduler) uploadLeg(ctx context.Context, meta remote.UploadMeta, buf *bytes.Buffer) error {
	legCtx, cancel := context.WithTimeout(ctx, s.cfg.NetworkTimeout())
	defer cancel()

	_, err := s.dest.Upload(legCtx, meta, bytes.NewReader(buf.Bytes()))
	return err
}
