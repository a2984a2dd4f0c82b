package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/remote"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of entries to fetch per listing request
	PageSize = 1000

	listFields = "nextPageToken, files(id, name, mimeType, size, parents)"
)

// Client implements remote.Client on top of the Drive v3 API
type Client struct {
	service *drive.Service

	// chunkSize bounds the media uploader's per-request payload
	chunkSize int
}

// New creates a Drive client from a stored OAuth token. tokenPath is
// account-specific so source and destination use separate tokens.
func New(ctx context.Context, clientID, clientSecret, tokenPath string, chunkSize int) (*Client, error) {
	auth := NewAuthenticator(clientID, clientSecret, tokenPath)

	token, err := auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	return NewWithToken(ctx, token, auth.Config(), chunkSize)
}

// NewWithToken creates a Drive client with an existing token
func NewWithToken(ctx context.Context, token *oauth2.Token, oauthConfig *oauth2.Config, chunkSize int) (*Client, error) {
	httpClient := oauthConfig.Client(ctx, token)

	service, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{service: service, chunkSize: chunkSize}, nil
}

// List returns one page of the direct children of parentID
func (c *Client) List(ctx context.Context, parentID, pageToken string) (*remote.Page, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQueryString(parentID))
	call := c.service.Files.List().
		Q(query).
		PageSize(PageSize).
		Fields(listFields)

	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	fileList, err := call.Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	page := &remote.Page{NextToken: fileList.NextPageToken}
	for _, f := range fileList.Files {
		node, err := nodeFromDrive(f)
		if err != nil {
			return nil, err
		}
		page.Nodes = append(page.Nodes, node)
	}

	return page, nil
}

// FindFolder looks up a folder by name directly under parentID
func (c *Client) FindFolder(ctx context.Context, parentID, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQueryString(name), escapeQueryString(parentID), MimeTypeFolder)

	fileList, err := c.service.Files.List().
		Q(query).
		PageSize(1).
		Fields("files(id)").
		Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}

	if len(fileList.Files) == 0 {
		return "", domain.ErrNotFound
	}
	return fileList.Files[0].Id, nil
}

// CreateFolder creates a folder under parentID and returns its id
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	folder := &drive.File{
		Name:     name,
		MimeType: MimeTypeFolder,
		Parents:  []string{parentID},
	}

	created, err := c.service.Files.Create(folder).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	return created.Id, nil
}

// Download opens the raw content of a regular file
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Body, nil
}

// Export renders a Google editor document into the given MIME type
func (c *Client) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := c.service.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Body, nil
}

// Upload streams content into a new file and returns its id
func (c *Client) Upload(ctx context.Context, meta remote.UploadMeta, r io.Reader) (string, error) {
	file := &drive.File{
		Name:    meta.Name,
		Parents: []string{meta.ParentID},
	}

	opts := []googleapi.MediaOption{}
	if meta.MimeType != "" {
		opts = append(opts, googleapi.ContentType(meta.MimeType))
	}
	if c.chunkSize > 0 {
		opts = append(opts, googleapi.ChunkSize(c.chunkSize))
	}

	created, err := c.service.Files.Create(file).
		Media(r, opts...).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	return created.Id, nil
}

// Close releases any resources
func (c *Client) Close() error {
	return nil
}

// escapeQueryString escapes special characters in Drive query strings
func escapeQueryString(s string) string {
	// Escape backslash first, then single quote
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// nodeFromDrive converts a Drive file entry to a domain.Node, rejecting
// malformed entries at the boundary
func nodeFromDrive(f *drive.File) (domain.Node, error) {
	kind := domain.KindFile
	if f.MimeType == MimeTypeFolder {
		kind = domain.KindFolder
	}

	node := domain.Node{
		ID:       f.Id,
		Name:     f.Name,
		Kind:     kind,
		MimeType: f.MimeType,
		Size:     f.Size,
		Parents:  f.Parents,
	}
	if err := node.Validate(); err != nil {
		return domain.Node{}, err
	}
	return node, nil
}

// mapError converts lookup misses to domain errors. Throttling and
// server errors pass through unchanged so the retry classifier sees the
// original *googleapi.Error status.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, apiErr.Message)
	}

	// Fallback for non-googleapi errors
	if strings.Contains(err.Error(), "notFound") {
		return domain.ErrNotFound
	}

	return err
}

var _ remote.Client = (*Client)(nil)
