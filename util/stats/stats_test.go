package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	var op Op
	assert.Equal(t, uint64(0), op.Count())
	assert.Equal(t, 0.0, op.MicrosPerOp())

	op.Record(time.Now().Add(-time.Millisecond))
	op.Record(time.Now().Add(-time.Millisecond))
	assert.Equal(t, uint64(2), op.Count())
	assert.Greater(t, op.MicrosPerOp(), 0.0)
}

func TestFormatTable(t *testing.T) {
	names := []string{"Read", "Write"}
	ops := make([]Op, 2)
	ops[0].Record(time.Now())

	out := FormatTable(names, ops)
	assert.Contains(t, out, "Read")
	assert.Contains(t, out, "Write")
	assert.Contains(t, out, "total")
}

func TestMismatchedListsPanic(t *testing.T) {
	assert.Panics(t, func() {
		FormatTable([]string{"Read"}, make([]Op, 2))
	})
}
