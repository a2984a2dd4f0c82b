package domain

import "errors"

// Remote client errors - returned by the storage boundary
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrMalformedNode indicates the provider returned an entry missing
	// required fields (id or name)
	ErrMalformedNode = errors.New("malformed node entry")

	// ErrQuotaExceeded indicates storage quota has been exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// Transfer errors - returned by the replication engine
var (
	// ErrInvalidRoot indicates the configured root folder id is empty or
	// unknown to the provider
	ErrInvalidRoot = errors.New("invalid root folder")

	// ErrScanFailed indicates the source tree could not be fully scanned.
	// The job cannot proceed without a complete tree, so this is fatal.
	ErrScanFailed = errors.New("tree scan failed")

	// ErrFolderCreateFailed indicates a destination folder could not be
	// created; files under it fall back to the destination root
	ErrFolderCreateFailed = errors.New("folder create failed")

	// ErrUnsupportedDocType indicates a Google editor document with no
	// known export format
	ErrUnsupportedDocType = errors.New("unsupported document type")

	// ErrTransferInProgress indicates another transfer is already running
	ErrTransferInProgress = errors.New("transfer already in progress")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
