package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWord(t *testing.T) {
	assert.Equal(t, Word(0x12, 0x34), uint16(0x1234))
	hi, lo := SplitWord(0x1234)
	assert.Equal(t, hi, byte(0x12))
	assert.Equal(t, lo, byte(0x34))
}

func TestParity(t *testing.T) {
	assert.True(t, Parity(0x00))
	assert.True(t, Parity(0xFF))
	assert.False(t, Parity(0x01))
	assert.False(t, Parity(0xFE))
	assert.True(t, Parity(0x03))
}
