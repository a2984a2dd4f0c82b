package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Ning0612/drivemirror/internal/logger"
)

// Tracker aggregates transfer progress across workers. All counter
// updates happen under one short-held lock; the lock never spans a
// network call. One Tracker is injected per run, there is no global
// instance.
type Tracker struct {
	mu         sync.Mutex
	totalFiles int
	totalBytes int64
	filesDone  int
	bytesDone  int64
	startTime  time.Time

	// logEvery emits a progress line every N completed files
	logEvery int
	log      logger.Logger
}

// Stats is a read-only snapshot of the counters
type Stats struct {
	TotalFiles int
	TotalBytes int64
	FilesDone  int
	BytesDone  int64
}

// Percent returns completed files as a percentage of the total
func (s Stats) Percent() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.FilesDone) / float64(s.TotalFiles) * 100
}

// NewTracker creates a tracker for a run of totalFiles/totalBytes
func NewTracker(totalFiles int, totalBytes int64, logEvery int, log logger.Logger) *Tracker {
	if logEvery < 1 {
		logEvery = 1
	}
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Tracker{
		totalFiles: totalFiles,
		totalBytes: totalBytes,
		startTime:  time.Now(),
		logEvery:   logEvery,
		log:        log,
	}
}

// Report records completed work. The percentage computation and log
// emission happen after the counters are updated, outside the lock.
func (t *Tracker) Report(filesDelta int, bytesDelta int64) {
	t.mu.Lock()
	t.filesDone += filesDelta
	t.bytesDone += bytesDelta
	snapshot := t.snapshotLocked()
	emit := filesDelta > 0 && snapshot.FilesDone%t.logEvery == 0
	t.mu.Unlock()

	if emit {
		t.log.Info("progress",
			"files", fmt.Sprintf("%d/%d", snapshot.FilesDone, snapshot.TotalFiles),
			"percent", fmt.Sprintf("%.1f", snapshot.Percent()),
			"bytes", FormatBytes(snapshot.BytesDone),
			"speed", FormatSpeed(t.throughput(snapshot.BytesDone)),
		)
	}
}

// Snapshot returns the current counters
func (t *Tracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Stats {
	return Stats{
		TotalFiles: t.totalFiles,
		TotalBytes: t.totalBytes,
		FilesDone:  t.filesDone,
		BytesDone:  t.bytesDone,
	}
}

// Elapsed returns the time since the tracker was created
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// throughput returns average bytes per second since start
func (t *Tracker) throughput(bytesDone int64) float64 {
	secs := time.Since(t.startTime).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(bytesDone) / secs
}

// CountingReader wraps an io.Reader and counts bytes read through it.
// Used to measure the actual payload moved on a transfer leg.
type CountingReader struct {
	reader io.Reader
	n      int64
}

// NewCountingReader wraps r
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader
func (cr *CountingReader) Read(p []byte) (n int, err error) {
	n, err = cr.reader.Read(p)
	cr.n += int64(n)
	return n, err
}

// Count returns the bytes read so far
func (cr *CountingReader) Count() int64 {
	return cr.n
}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSpeed formats bytes per second into human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}
