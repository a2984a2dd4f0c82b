// Package testutil provides an in-memory remote client with fault
// injection for scanner, mirror, transfer, and service tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/remote"
)

// UploadRecord captures one completed upload
type UploadRecord struct {
	ID       string
	ParentID string
	Name     string
	MimeType string
	Content  []byte
}

// FakeClient is an in-memory remote.Client. Errors queued per key are
// returned once each, in order, before the operation succeeds; that is
// enough to script "fail twice, then succeed" scenarios.
type FakeClient struct {
	mu sync.Mutex

	children map[string][]domain.Node // parent id -> direct children
	contents map[string][]byte        // file id -> content
	folders  map[string]bool          // known folder ids
	nextID   int

	// PageLimit caps entries per List page; 0 means everything in one page
	PageLimit int

	// Fault queues, keyed by parent id (List), folder name (CreateFolder),
	// file id (Download/Export), or upload name (Upload)
	ListErrs     map[string][]error
	FindErrs     map[string][]error
	CreateErrs   map[string][]error
	DownloadErrs map[string][]error
	UploadErrs   map[string][]error

	// Call records for assertions
	CreatedFolders []string // "parentID/name"
	Uploads        []UploadRecord
	ListCalls      int
}

// NewFakeClient creates a fake with rootID registered as a folder
func NewFakeClient(rootID string) *FakeClient {
	return &FakeClient{
		children:     make(map[string][]domain.Node),
		contents:     make(map[string][]byte),
		folders:      map[string]bool{rootID: true},
		ListErrs:     make(map[string][]error),
		FindErrs:     make(map[string][]error),
		CreateErrs:   make(map[string][]error),
		DownloadErrs: make(map[string][]error),
		UploadErrs:   make(map[string][]error),
	}
}

func (f *FakeClient) newID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

// AddFolder registers a folder under parentID and returns its id
func (f *FakeClient) AddFolder(parentID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.newID()
	f.folders[id] = true
	f.children[parentID] = append(f.children[parentID], domain.Node{
		ID:       id,
		Name:     name,
		Kind:     domain.KindFolder,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	})
	return id
}

// AddFile registers a regular file under parentID and returns its id
func (f *FakeClient) AddFile(parentID, name string, content []byte) string {
	return f.addFile(parentID, name, "text/plain", content)
}

// AddEditorFile registers a Google editor document under parentID
func (f *FakeClient) AddEditorFile(parentID, name, mimeType string, content []byte) string {
	return f.addFile(parentID, name, mimeType, content)
}

func (f *FakeClient) addFile(parentID, name, mimeType string, content []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.newID()
	f.contents[id] = content
	f.children[parentID] = append(f.children[parentID], domain.Node{
		ID:       id,
		Name:     name,
		Kind:     domain.KindFile,
		MimeType: mimeType,
		Size:     int64(len(content)),
		Parents:  []string{parentID},
	})
	return id
}

// popErr dequeues the next scripted error for key, if any
func popErr(queue map[string][]error, key string) error {
	errs := queue[key]
	if len(errs) == 0 {
		return nil
	}
	err := errs[0]
	queue[key] = errs[1:]
	return err
}

// List implements remote.Client
func (f *FakeClient) List(ctx context.Context, parentID, pageToken string) (*remote.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls++
	if err := popErr(f.ListErrs, parentID); err != nil {
		return nil, err
	}
	if !f.folders[parentID] {
		return nil, domain.ErrNotFound
	}

	all := f.children[parentID]
	start := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "%d", &start)
	}

	end := len(all)
	next := ""
	if f.PageLimit > 0 && start+f.PageLimit < len(all) {
		end = start + f.PageLimit
		next = fmt.Sprintf("%d", end)
	}

	page := &remote.Page{NextToken: next}
	page.Nodes = append(page.Nodes, all[start:end]...)
	return page, nil
}

// FindFolder implements remote.Client
func (f *FakeClient) FindFolder(ctx context.Context, parentID, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(f.FindErrs, name); err != nil {
		return "", err
	}
	for _, n := range f.children[parentID] {
		if n.IsFolder() && n.Name == name {
			return n.ID, nil
		}
	}
	return "", domain.ErrNotFound
}

// CreateFolder implements remote.Client
func (f *FakeClient) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(f.CreateErrs, name); err != nil {
		return "", err
	}

	id := f.newID()
	f.folders[id] = true
	f.children[parentID] = append(f.children[parentID], domain.Node{
		ID:       id,
		Name:     name,
		Kind:     domain.KindFolder,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	})
	f.CreatedFolders = append(f.CreatedFolders, parentID+"/"+name)
	return id, nil
}

// Download implements remote.Client
func (f *FakeClient) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(f.DownloadErrs, fileID); err != nil {
		return nil, err
	}
	content, ok := f.contents[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

// Export implements remote.Client; the fake just serves stored content
func (f *FakeClient) Export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	return f.Download(ctx, fileID)
}

// Upload implements remote.Client
func (f *FakeClient) Upload(ctx context.Context, meta remote.UploadMeta, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Read outside the lock; the reader may be slow
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(f.UploadErrs, meta.Name); err != nil {
		return "", err
	}

	id := f.newID()
	f.contents[id] = content
	f.children[meta.ParentID] = append(f.children[meta.ParentID], domain.Node{
		ID:       id,
		Name:     meta.Name,
		Kind:     domain.KindFile,
		MimeType: meta.MimeType,
		Size:     int64(len(content)),
		Parents:  []string{meta.ParentID},
	})
	f.Uploads = append(f.Uploads, UploadRecord{
		ID:       id,
		ParentID: meta.ParentID,
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Content:  content,
	})
	return id, nil
}

// Close implements remote.Client
func (f *FakeClient) Close() error {
	return nil
}

// UploadsUnder returns the uploads recorded with the given parent id
func (f *FakeClient) UploadsUnder(parentID string) []UploadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []UploadRecord
	for _, u := range f.Uploads {
		if u.ParentID == parentID {
			out = append(out, u)
		}
	}
	return out
}

var _ remote.Client = (*FakeClient)(nil)
