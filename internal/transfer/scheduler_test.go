package transfer

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"testing"

	"google.golang.org/api/googleapi"

	"github.com/Ning0612/drivemirror/internal/config"
	"github.com/Ning0612/drivemirror/internal/domain"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/retry"
	"github.com/Ning0612/drivemirror/internal/testutil"
)

func testConfig(destRootID string) config.TransferConfig {
	cfg := config.DefaultTransferConfig()
	cfg.SourceRootID = "src-root"
	cfg.DestRootID = destRootID
	// Millisecond-scale backoff keeps retry tests fast
	cfg.RetryBaseDelaySeconds = 0.001
	cfg.NetworkTimeoutSeconds = 5
	return cfg
}

func newTestScheduler(source, dest *testutil.FakeClient, cfg config.TransferConfig, fileCount int) *Scheduler {
	policy := retry.NewPolicy(cfg.RetryBaseDelaySeconds)
	tracker := progress.NewTracker(fileCount, 0, cfg.ProgressInterval, nil)
	return New(source, dest, cfg, policy, tracker, nil)
}

// TestTransferAllUploadsTree tests a clean run over a nested tree: every
// file lands under its mapped destination folder with intact content
func TestTransferAllUploadsTree(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	folderA := source.AddFolder("src-root", "A")
	folderB := source.AddFolder(folderA, "B")
	rootFile := source.AddFile("src-root", "root.txt", []byte("top"))
	fileOne := source.AddFile(folderA, "one.txt", []byte("alpha"))
	fileTwo := source.AddFile(folderB, "two.txt", []byte("beta-beta"))

	destA := dest.AddFolder("dst-root", "A")
	destB := dest.AddFolder(destA, "B")
	mapping := domain.FolderMapping{folderA: destA, folderB: destB}

	nodes := []domain.Node{
		{ID: folderA, Name: "A", Kind: domain.KindFolder, Path: "A"},
		{ID: folderB, Name: "B", Kind: domain.KindFolder, Path: "A/B"},
		{ID: rootFile, Name: "root.txt", Kind: domain.KindFile, Size: 3, Path: "root.txt"},
		{ID: fileOne, Name: "one.txt", Kind: domain.KindFile, Size: 5, Path: "A/one.txt"},
		{ID: fileTwo, Name: "two.txt", Kind: domain.KindFile, Size: 9, Path: "A/B/two.txt"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 3)

	summary, err := s.TransferAll(context.Background(), nodes, mapping)
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}

	if summary.TotalFiles != 3 || summary.Succeeded != 3 {
		t.Errorf("summary = %d/%d succeeded, want 3/3", summary.Succeeded, summary.TotalFiles)
	}
	if len(summary.Failed) != 0 {
		t.Errorf("summary.Failed = %v, want empty", summary.Failed)
	}
	if summary.Bytes != 17 {
		t.Errorf("summary.Bytes = %d, want 17", summary.Bytes)
	}

	checks := []struct {
		parent  string
		name    string
		content string
	}{
		{"dst-root", "root.txt", "top"},
		{destA, "one.txt", "alpha"},
		{destB, "two.txt", "beta-beta"},
	}
	for _, c := range checks {
		uploads := dest.UploadsUnder(c.parent)
		found := false
		for _, u := range uploads {
			if u.Name == c.name {
				found = true
				if string(u.Content) != c.content {
					t.Errorf("%s content = %q, want %q", c.name, u.Content, c.content)
				}
			}
		}
		if !found {
			t.Errorf("no upload named %s under %s", c.name, c.parent)
		}
	}
}

// TestTransferAllRetriesThrottle tests that throttled uploads are
// retried within the budget and end in success
func TestTransferAllRetriesThrottle(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	fileID := source.AddFile("src-root", "hot.txt", []byte("payload"))
	dest.UploadErrs["hot.txt"] = []error{
		&googleapi.Error{Code: 429, Message: "Rate Limit Exceeded"},
		&googleapi.Error{Code: 503, Message: "Backend Error"},
	}

	nodes := []domain.Node{
		{ID: fileID, Name: "hot.txt", Kind: domain.KindFile, Size: 7, Path: "hot.txt"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 1)

	summary, err := s.TransferAll(context.Background(), nodes, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}
	if summary.Succeeded != 1 || len(summary.Failed) != 0 {
		t.Fatalf("summary = %+v, want 1 success after retries", summary)
	}
	if len(dest.Uploads) != 1 {
		t.Errorf("uploads = %d, want 1", len(dest.Uploads))
	}
}

// TestTransferAllExhaustsRetries tests that a file failing past the
// budget is reported failed without aborting the rest of the run
func TestTransferAllExhaustsRetries(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	badID := source.AddFile("src-root", "bad.txt", []byte("unlucky"))
	goodID := source.AddFile("src-root", "good.txt", []byte("fine"))
	source.DownloadErrs[badID] = []error{
		syscall.ECONNRESET,
		syscall.ECONNRESET,
		syscall.ECONNRESET,
	}

	nodes := []domain.Node{
		{ID: badID, Name: "bad.txt", Kind: domain.KindFile, Size: 7, Path: "bad.txt"},
		{ID: goodID, Name: "good.txt", Kind: domain.KindFile, Size: 4, Path: "good.txt"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 2)

	summary, err := s.TransferAll(context.Background(), nodes, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}

	if summary.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", summary.Succeeded)
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("Failed = %d entries, want 1", len(summary.Failed))
	}
	failed := summary.Failed[0]
	if failed.Node.Path != "bad.txt" {
		t.Errorf("failed path = %q, want bad.txt", failed.Node.Path)
	}
	if failed.Reason != "connection_reset" {
		t.Errorf("failed reason = %q, want connection_reset", failed.Reason)
	}
	if failed.Attempts != cfg.MaxRetries {
		t.Errorf("failed attempts = %d, want %d", failed.Attempts, cfg.MaxRetries)
	}
}

// TestTransferAllPermanentFailureNoRetry tests that non-retryable
// failures resolve on the first attempt
func TestTransferAllPermanentFailureNoRetry(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	fileID := source.AddFile("src-root", "gone.txt", []byte("x"))
	source.DownloadErrs[fileID] = []error{&googleapi.Error{Code: 404, Message: "File not found"}}

	nodes := []domain.Node{
		{ID: fileID, Name: "gone.txt", Kind: domain.KindFile, Size: 1, Path: "gone.txt"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 1)

	summary, err := s.TransferAll(context.Background(), nodes, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("Failed = %d entries, want 1", len(summary.Failed))
	}
	if summary.Failed[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", summary.Failed[0].Attempts)
	}
	if summary.Failed[0].Reason != "permanent" {
		t.Errorf("reason = %q, want permanent", summary.Failed[0].Reason)
	}
}

// TestTransferAllFallbackToRoot tests that a file under an unmapped
// folder is uploaded under the destination root instead of being dropped
func TestTransferAllFallbackToRoot(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	folderID := source.AddFolder("src-root", "broken")
	fileID := source.AddFile(folderID, "stranded.txt", []byte("rescued"))

	nodes := []domain.Node{
		{ID: folderID, Name: "broken", Kind: domain.KindFolder, Path: "broken"},
		{ID: fileID, Name: "stranded.txt", Kind: domain.KindFile, Size: 7, Path: "broken/stranded.txt"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 1)

	// Empty mapping: the folder mirror failed for "broken"
	summary, err := s.TransferAll(context.Background(), nodes, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, want 1", summary.Succeeded)
	}

	uploads := dest.UploadsUnder("dst-root")
	if len(uploads) != 1 || uploads[0].Name != "stranded.txt" {
		t.Errorf("uploads under root = %v, want stranded.txt", uploads)
	}
}

// TestTransferAllExportsEditorDocs tests export of editor documents with
// converted names and content types
func TestTransferAllExportsEditorDocs(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	docID := source.AddEditorFile("src-root", "notes",
		"application/vnd.google-apps.document", []byte("exported-doc"))
	sheetID := source.AddEditorFile("src-root", "budget",
		"application/vnd.google-apps.spreadsheet", []byte("exported-sheet"))

	nodes := []domain.Node{
		{ID: docID, Name: "notes", Kind: domain.KindFile,
			MimeType: "application/vnd.google-apps.document", Path: "notes"},
		{ID: sheetID, Name: "budget", Kind: domain.KindFile,
			MimeType: "application/vnd.google-apps.spreadsheet", Path: "budget"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 2)

	summary, err := s.TransferAll(context.Background(), nodes, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}
	if summary.Succeeded != 2 {
		t.Fatalf("Succeeded = %d, want 2", summary.Succeeded)
	}

	byName := make(map[string]testutil.UploadRecord)
	for _, u := range dest.Uploads {
		byName[u.Name] = u
	}

	doc, ok := byName["notes.docx"]
	if !ok {
		t.Fatal("no upload named notes.docx")
	}
	if !strings.Contains(doc.MimeType, "wordprocessingml") {
		t.Errorf("doc mime = %q, want wordprocessingml type", doc.MimeType)
	}
	if _, ok := byName["budget.xlsx"]; !ok {
		t.Error("no upload named budget.xlsx")
	}
}

// TestTransferAllUnsupportedEditorType tests that editor documents with
// no export mapping fail permanently
func TestTransferAllUnsupportedEditorType(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	formID := source.AddEditorFile("src-root", "survey",
		"application/vnd.google-apps.form", []byte("n/a"))

	nodes := []domain.Node{
		{ID: formID, Name: "survey", Kind: domain.KindFile,
			MimeType: "application/vnd.google-apps.form", Path: "survey"},
	}

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 1)

	summary, err := s.TransferAll(context.Background(), nodes, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}
	if len(summary.Failed) != 1 {
		t.Fatalf("Failed = %d entries, want 1", len(summary.Failed))
	}
	if !errors.Is(summary.Failed[0].Err, domain.ErrUnsupportedDocType) {
		t.Errorf("err = %v, want ErrUnsupportedDocType", summary.Failed[0].Err)
	}
	if summary.Failed[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", summary.Failed[0].Attempts)
	}
}

// TestTransferAllCancelled tests that cancellation resolves every file
// as cancelled rather than failed
func TestTransferAllCancelled(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	var nodes []domain.Node
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		id := source.AddFile("src-root", name, []byte("data"))
		nodes = append(nodes, domain.Node{
			ID: id, Name: name, Kind: domain.KindFile, Size: 4, Path: name,
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 3)

	summary, err := s.TransferAll(ctx, nodes, domain.FolderMapping{})
	if err != context.Canceled {
		t.Errorf("TransferAll() error = %v, want context.Canceled", err)
	}
	if summary.Cancelled != 3 {
		t.Errorf("Cancelled = %d, want 3", summary.Cancelled)
	}
	if summary.Succeeded != 0 || len(summary.Failed) != 0 {
		t.Errorf("summary = %+v, want no successes or failures", summary)
	}
}

// TestTransferAllEmpty tests a run with no files
func TestTransferAllEmpty(t *testing.T) {
	source := testutil.NewFakeClient("src-root")
	dest := testutil.NewFakeClient("dst-root")

	cfg := testConfig("dst-root")
	s := newTestScheduler(source, dest, cfg, 0)

	summary, err := s.TransferAll(context.Background(), nil, domain.FolderMapping{})
	if err != nil {
		t.Fatalf("TransferAll() error = %v", err)
	}
	if summary.TotalFiles != 0 || summary.SuccessRate() != 1 {
		t.Errorf("summary = %+v, want empty success", summary)
	}
}
