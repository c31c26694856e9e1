//go:build !linux

package storage

import (
	"errors"
	"time"
)

// Birth time is only read through statx; elsewhere it is reported missing.
func birthTime(string) (time.Time, bool) {
	return time.Time{}, false
}

func diskUsage(string) (Usage, error) {
	return Usage{}, errors.New("disk usage not supported on this platform")
}
