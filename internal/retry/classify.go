package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"google.golang.org/api/googleapi"
)

// Category classifies a remote-call failure for retry purposes
type Category int

const (
	// RateLimited covers provider throttling and transient server errors
	RateLimited Category = iota
	// TLSHandshake covers transport encryption failures, usually caused
	// by sustained network or VPN interference
	TLSHandshake
	// ConnectionReset covers reset and aborted connections
	ConnectionReset
	// Timeout covers deadline-exceeded failures
	Timeout
	// GenericNetwork covers any other network-transport failure
	GenericNetwork
	// Permanent covers everything else; never retried
	Permanent
)

// String returns the string representation of the category
func (c Category) String() string {
	switch c {
	case RateLimited:
		return "rate_limited"
	case TLSHandshake:
		return "tls_handshake"
	case ConnectionReset:
		return "connection_reset"
	case Timeout:
		return "timeout"
	case GenericNetwork:
		return "network"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Retryable returns true if failures in this category should be retried
func (c Category) Retryable() bool {
	return c != Permanent
}

// HTTP statuses the provider uses for throttling and transient server
// failures. 403 is included because Drive reports user-rate limits as 403.
var throttleStatuses = map[int]bool{
	403: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// tlsSignatures are transport-encryption failure strings seen from the
// TLS stack under interference (VPNs, middleboxes)
var tlsSignatures = []string{
	"tls:",
	"handshake failure",
	"bad record mac",
	"decryption failed",
	"ssl",
}

// resetSignatures are connection reset/abort strings
var resetSignatures = []string{
	"connection reset",
	"connection aborted",
	"broken pipe",
}

// networkSignatures are other transport-level failure strings worth a retry
var networkSignatures = []string{
	"connection refused",
	"no such host",
	"network is unreachable",
	"unexpected eof",
	"incompleteread",
	"transport connection broken",
}

// Classify maps an error from a remote call to its retry category.
// Structured provider errors are checked first; transport errors fall
// back to string signatures because the HTTP stack wraps them unevenly.
func Classify(err error) Category {
	if err == nil {
		return Permanent
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if throttleStatuses[apiErr.Code] {
			return RateLimited
		}
		// 400/401/404/409 and friends: malformed request or missing
		// resource, retrying cannot help
		return Permanent
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return ConnectionReset
	}

	msg := strings.ToLower(err.Error())

	for _, sig := range tlsSignatures {
		if strings.Contains(msg, sig) {
			return TLSHandshake
		}
	}

	for _, sig := range resetSignatures {
		if strings.Contains(msg, sig) {
			return ConnectionReset
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout
		}
		return GenericNetwork
	}

	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return Timeout
	}

	for _, sig := range networkSignatures {
		if strings.Contains(msg, sig) {
			return GenericNetwork
		}
	}

	return Permanent
}
