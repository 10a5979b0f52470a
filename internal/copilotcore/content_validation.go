package copilotcore

import (
	"strings"
	"sync/atomic"
)

const (
	// DefaultMaxLabelBytes bounds a node/edge label's raw byte size before
	// clamping/redaction is applied.
	DefaultMaxLabelBytes = 4 * 1024
)

var maxLabelBytes atomic.Int64

func init() {
	maxLabelBytes.Store(DefaultMaxLabelBytes)
}

// SetMaxLabelBytes overrides the runtime label size limit.
func SetMaxLabelBytes(limit int64) error {
	if limit <= 0 {
		return InvalidInput("max label bytes must be > 0")
	}
	maxLabelBytes.Store(limit)
	return nil
}

// GetMaxLabelBytes returns the active runtime label size limit.
func GetMaxLabelBytes() int64 {
	limit := maxLabelBytes.Load()
	if limit <= 0 {
		return DefaultMaxLabelBytes
	}
	return limit
}

// ValidateLabel ensures a node/edge label is non-empty and within bounds
// before redaction/clamping.
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return InvalidInput("label must not be empty")
	}
	size := len([]byte(label))
	if int64(size) > GetMaxLabelBytes() {
		return InvalidInput("label exceeds maximum size: %d bytes > %d", size, GetMaxLabelBytes())
	}
	return nil
}
