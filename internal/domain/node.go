package domain

import (
	"fmt"
	"strings"
)

// Kind represents the type of a tree entry
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Node represents a single file or folder entry in a drive tree
type Node struct {
	// ID is the provider-assigned stable identifier
	ID string

	// Name is the display name within its parent
	Name string

	// Kind indicates if this is a file or a folder
	Kind Kind

	// MimeType is the provider-reported content type.
	// Google editor documents carry application/vnd.google-apps.* types
	// and must be exported rather than downloaded.
	MimeType string

	// Size in bytes (0 for folders and editor documents)
	Size int64

	// Parents holds the provider parent ids (Drive allows several)
	Parents []string

	// Path is the slash-separated path from the scan root, assigned by
	// the scanner once the parent chain is resolved. Empty until then.
	Path string
}

// IsFolder returns true if this is a folder
func (n Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsFile returns true if this is a regular file or editor document
func (n Node) IsFile() bool {
	return n.Kind == KindFile
}

// Depth returns the number of path separators in the node's path.
// Top-level entries have depth 0; deeper entries sort after their parents.
func (n Node) Depth() int {
	return strings.Count(n.Path, "/")
}

// ParentPath returns the path of the node's parent folder, or "" for
// top-level entries.
func (n Node) ParentPath() string {
	idx := strings.LastIndex(n.Path, "/")
	if idx < 0 {
		return ""
	}
	return n.Path[:idx]
}

// Validate rejects entries missing required provider fields. Malformed
// entries are rejected at the client boundary rather than deep in
// transfer logic.
func (n Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty id", ErrMalformedNode)
	}
	if n.Name == "" {
		return fmt.Errorf("%w: empty name (id=%s)", ErrMalformedNode, n.ID)
	}
	return nil
}

// ChildPath joins a parent path with a child name
func ChildPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}
