package constants

import (
	"time"
)

// Folder pipeline limits
const (
	// DefaultPageSize - page size requested when the server does not echo one back
	DefaultPageSize = 200

	// MaxCachedSnapshotItems - snapshots above this item count are not retained
	// in the session cache; only metadata and the top anchor are kept.
	MaxCachedSnapshotItems = 10000
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second
)

// Event bus configuration
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	// A fast-scrolling viewport can report many visible sets per second;
	// slow subscribers drop rather than stall the publisher.
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// Catalog API rate limiting
const (
	// DefaultRequestsPerSecond - sustained page requests per second
	DefaultRequestsPerSecond = 8.0

	// DefaultRequestBurst - bucket capacity; lets the first few pages go out at once
	DefaultRequestBurst = 16
)

// HTTP client timeouts
const (
	// HTTPRequestTimeout - total timeout for a single page request
	HTTPRequestTimeout = 60 * time.Second

	// HTTPDialTimeout - TCP connect timeout
	HTTPDialTimeout = 30 * time.Second

	// HTTPTLSHandshakeTimeout - TLS handshake timeout
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPIdleConnTimeout - idle keep-alive connections are closed after this
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPMaxIdleConnsPerHost - keep-alive pool size per host
	HTTPMaxIdleConnsPerHost = 16
)

// Thumbnail prefetch
const (
	// DefaultThumbnailConcurrency - parallel thumbnail probes
	DefaultThumbnailConcurrency = 4

	// ThumbnailQueueSize - pending probe requests before new ones are dropped
	ThumbnailQueueSize = 512
)

// Layout defaults
const (
	// DefaultTargetRowHeight - ideal justified row height in pixels
	DefaultTargetRowHeight = 220.0

	// DefaultMaxRowHeight - justified rows never stretch past this height
	DefaultMaxRowHeight = 360.0

	// DefaultGap - pixels between tiles
	DefaultGap = 4.0
)
