// File: cuculi/config/timing.go
package config

import "time"

// Core timing constants for production use.
// These define the fundamental timing behavior of the config package.
const (
	// Source watching intervals
	MinPollInterval     = 100 * time.Millisecond // Hard floor for source stat polling
	ShutdownTimeout     = 2 * time.Second        // Graceful watcher termination window
	DefaultDebounce     = 500 * time.Millisecond // Source change coalescence period
	DefaultPollInterval = time.Second            // Standard source monitoring frequency
)

// Resource limits.
const (
	DefaultMaxFileSize    int64 = 10 << 20 // 10 MiB per source
	DefaultMaxSubscribers       = 100      // Prevent resource exhaustion
	subscriberBuffer            = 16
)
