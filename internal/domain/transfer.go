package domain

import "time"

// FolderMapping associates source folder ids with destination folder ids.
// Built by the folder mirror, read-only afterwards. A folder whose
// creation failed has no entry; files beneath it fall back to the
// destination root.
type FolderMapping map[string]string

// TaskStatus is the terminal state of a transfer task
type TaskStatus int

const (
	StatusSuccess TaskStatus = iota
	StatusFailed
	StatusCancelled
)

// String returns the string representation of the status
func (s TaskStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TaskResult is the resolved outcome of a single file transfer. A task
// resolves exactly once; retries are attempts within processing, never a
// new task.
type TaskResult struct {
	// Node is the source file this task transferred
	Node Node

	// Status is the terminal state
	Status TaskStatus

	// Attempts is the number of attempts consumed (1 on first-try success)
	Attempts int

	// Bytes transferred on success
	Bytes int64

	// Reason carries the classified failure category for failed tasks
	Reason string

	// Err is the final error for failed tasks
	Err error
}

// Summary is the observable output of a transfer run
type Summary struct {
	TotalFiles int
	Succeeded  int
	Cancelled  int
	Bytes      int64
	Elapsed    time.Duration
	Failed     []TaskResult
}

// SuccessRate returns succeeded/total in [0, 1]
func (s Summary) SuccessRate() float64 {
	if s.TotalFiles == 0 {
		return 1
	}
	return float64(s.Succeeded) / float64(s.TotalFiles)
}

// Throughput returns average bytes per second over the whole run
func (s Summary) Throughput() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Bytes) / secs
}
