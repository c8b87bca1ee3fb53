// FILE: lixenwraith/treeconf/timing.go
package treeconf

import "time"

// Core timing constants for production use.
// These define the timing behavior of file watching and reload.
const (
	SpinWaitInterval     = 5 * time.Millisecond   // CPU-friendly busy-wait quantum
	ShutdownTimeout      = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for reload operations
)
