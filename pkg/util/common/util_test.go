package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddInt64(t *testing.T) {
	tests := []struct {
		a, b, r int64
		err     bool
	}{
		{0, 0, 0, false},
		{1, 2, 3, false},
		{-1, -2, -3, false},
		{math.MaxInt64, 0, math.MaxInt64, false},
		{math.MaxInt64, 1, 0, true},
		{math.MinInt64, -1, 0, true},
		{math.MaxInt64, math.MinInt64, -1, false},
	}
	for _, tc := range tests {
		r, err := AddInt64(tc.a, tc.b)
		if tc.err {
			assert.Error(t, err)
		} else {
			require.NoError(t, err)
			assert.Equal(t, tc.r, r)
		}
	}
}

func TestAddUint64(t *testing.T) {
	tests := []struct {
		a, b, r uint64
		err     bool
	}{
		{0, 0, 0, false},
		{1, 2, 3, false},
		{math.MaxUint64, 0, math.MaxUint64, false},
		{math.MaxUint64, 1, 0, true},
	}
	for _, tc := range tests {
		r, err := AddUint64(tc.a, tc.b)
		if tc.err {
			assert.Error(t, err)
		} else {
			require.NoError(t, err)
			assert.Equal(t, tc.r, r)
		}
	}
}
