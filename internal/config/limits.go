package config

import "time"

const (
	// DefaultCacheTTL bounds how long a cached read result is trusted
	DefaultCacheTTL = 2 * time.Minute

	// SearchDebounce delays re-querying while the user is still typing
	SearchDebounce = 200 * time.Millisecond

	// MaxFolderNameLength is the maximum folder name length accepted client-side
	MaxFolderNameLength = 255

	// RequestTimeout is the transport-level timeout for a single API call
	RequestTimeout = 30 * time.Second
)
