package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/previewlab/restyle/internal/preview/scrollsync"
)

func TestSplitClamped(t *testing.T) {
	c := New()
	assert.Equal(t, 50.0, c.SplitRatio())

	assert.Equal(t, 0.0, c.SetSplit(-12))
	assert.Equal(t, 0.0, c.SplitRatio())

	assert.Equal(t, 100.0, c.SetSplit(180))
	assert.Equal(t, 100.0, c.SplitRatio())

	assert.Equal(t, 37.5, c.SetSplit(37.5))
}

func TestDisableClearsPairs(t *testing.T) {
	c := New()
	c.SetEnabled(true)
	c.SetPairs([]PairRef{{ID: "p1", ModifiedID: "m", OriginalID: "o", Status: scrollsync.StatusAttached}})

	assert.Len(t, c.Snapshot().Pairs, 1)
	c.SetEnabled(false)
	assert.Empty(t, c.Snapshot().Pairs)
	assert.False(t, c.Enabled())
}

func TestUpdatePairStatus(t *testing.T) {
	c := New()
	c.SetPairs([]PairRef{
		{ID: "p1", Status: scrollsync.StatusAttachPending},
		{ID: "p2", Status: scrollsync.StatusAttachPending},
	})

	c.UpdatePairStatus("p2", scrollsync.StatusError)
	snap := c.Snapshot()
	assert.Equal(t, scrollsync.StatusAttachPending, snap.Pairs[0].Status)
	assert.Equal(t, scrollsync.StatusError, snap.Pairs[1].Status)
}

func TestSnapshotIsolated(t *testing.T) {
	c := New()
	c.SetPairs([]PairRef{{ID: "p1"}})

	snap := c.Snapshot()
	snap.Pairs[0].ID = "mutated"
	assert.Equal(t, "p1", c.Snapshot().Pairs[0].ID)
}
