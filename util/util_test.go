package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundUp(t *testing.T) {
	assert.Equal(t, uint64(0), RoundUp(0, 8))
	assert.Equal(t, uint64(1), RoundUp(1, 8))
	assert.Equal(t, uint64(1), RoundUp(8, 8))
	assert.Equal(t, uint64(2), RoundUp(9, 8))
	assert.Equal(t, uint64(1), RoundUp(4096, 4096))
	assert.Equal(t, uint64(2), RoundUp(4097, 4096))
}

func TestMin(t *testing.T) {
	assert.Equal(t, uint64(3), Min(3, 5))
	assert.Equal(t, uint64(3), Min(5, 3))
	assert.Equal(t, uint64(7), Min(7, 7))
}
