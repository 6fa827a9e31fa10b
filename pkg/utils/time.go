package utils

import "time"

// NowMillis returns the current wall clock in unix milliseconds, the
// timestamp unit carried on snapshots and presence frames
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
