// Package connid allocates the process-wide, strictly increasing
// connection-id counter handed to Handler.Password/HandleCommand for log
// correlation and per-session state keyed in the user's own map.
package connid

import "sync/atomic"

var counter uint64

// Next returns the next connection id, starting at 1. Safe for concurrent
// use by multiple acceptor goroutines.
func Next() uint64 {
	return atomic.AddUint64(&counter, 1)
}
