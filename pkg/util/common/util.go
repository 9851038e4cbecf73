// Useful routines used in several other packages.
package common

import (
	"github.com/pkg/errors"
)

// AddInt64 is a safe sum for int64.
func AddInt64(a, b int64) (int64, error) {
	c := a + b
	if (c > a) == (b > 0) {
		return c, nil
	}
	return 0, errors.New("64-bit signed integer overflow")
}

// AddUint64 is a safe sum for uint64.
func AddUint64(a, b uint64) (uint64, error) {
	c := a + b
	if c >= a {
		return c, nil
	}
	return 0, errors.New("64-bit unsigned integer overflow")
}
