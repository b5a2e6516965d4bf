//go:build !windows && !linux && !darwin

package debug

import "errors"

func processRSS() (uint64, error) {
	return 0, errors.New("not supported on this platform")
}
