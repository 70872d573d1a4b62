package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	p, err := NewEvictionPolicy(LRU)
	require.NoError(t, err)

	p.OnPut("a")
	p.OnPut("b")
	p.OnPut("c")
	p.OnGet("a")

	assert.Equal(t, "b", p.Evict())
	assert.Equal(t, "c", p.Evict())
	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "", p.Evict())
}

func TestFIFO_IgnoresReads(t *testing.T) {
	p, err := NewEvictionPolicy(FIFO)
	require.NoError(t, err)

	p.OnPut("a")
	p.OnPut("b")
	p.OnGet("a")
	p.OnPut("a")

	assert.Equal(t, "a", p.Evict())
	assert.Equal(t, "b", p.Evict())
}

func TestRemoveAndReset(t *testing.T) {
	for _, kind := range []PolicyType{LRU, FIFO} {
		t.Run(string(kind), func(t *testing.T) {
			p, err := NewEvictionPolicy(kind)
			require.NoError(t, err)

			p.OnPut("a")
			p.OnPut("b")
			p.Remove("a")
			assert.Equal(t, "b", p.Evict())

			p.OnPut("c")
			p.Reset()
			assert.Equal(t, "", p.Evict())
		})
	}
}

func TestUnknownPolicy(t *testing.T) {
	_, err := NewEvictionPolicy("LFU")
	assert.Error(t, err)
}
