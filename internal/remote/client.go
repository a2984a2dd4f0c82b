package remote

import (
	"context"
	"io"

	"github.com/Ning0612/drivemirror/internal/domain"
)

// Page is one page of a folder listing
type Page struct {
	// Nodes are the entries in this page. Path is unset; the scanner
	// assigns paths once the parent chain is known.
	Nodes []domain.Node

	// NextToken continues the listing; empty when this is the last page
	NextToken string
}

// UploadMeta describes the file to create at the destination
type UploadMeta struct {
	Name     string
	ParentID string
	MimeType string
	Size     int64
}

// Client is an authenticated handle to one account's drive. Every call
// may fail with a structured provider error (*googleapi.Error) or a
// domain sentinel; the retry package classifies them at call sites.
type Client interface {
	// List returns one page of the direct children of parentID.
	// Returns domain.ErrNotFound if parentID is unknown.
	List(ctx context.Context, parentID, pageToken string) (*Page, error)

	// FindFolder looks up a folder named name directly under parentID.
	// Returns domain.ErrNotFound when no such folder exists.
	FindFolder(ctx context.Context, parentID, name string) (string, error)

	// CreateFolder creates a folder under parentID and returns its id
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// Download opens the raw content of a regular file.
	// Caller closes the reader.
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)

	// Export renders a Google editor document into the given MIME type.
	// Caller closes the reader.
	Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)

	// Upload streams content into a new file and returns its id
	Upload(ctx context.Context, meta UploadMeta, r io.Reader) (string, error)

	// Close releases any resources held by the client
	Close() error
}
