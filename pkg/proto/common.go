package proto

import (
	"fmt"

	"github.com/pkg/errors"
)

// PutBool writes a single byte encoding of b to the beginning of buf.
func PutBool(buf []byte, b bool) {
	if b {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
}

// Bool reads a strictly encoded boolean value from the beginning of buf.
func Bool(buf []byte) (bool, error) {
	if l := len(buf); l < 1 {
		return false, errors.New("failed to unmarshal Bool, empty buffer received")
	}
	switch buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value %d", buf[0])
	}
}
