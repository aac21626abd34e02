// Package session tracks the before/after comparison state: the split
// slider position, the sync toggle, and the surface pairs under
// comparison.
package session

import (
	"sync"

	"github.com/previewlab/restyle/internal/preview/scrollsync"
)

// PairRef names one modified/original surface pair and its sync status.
type PairRef struct {
	ID         string            `json:"id"`
	ModifiedID string            `json:"modifiedId"`
	OriginalID string            `json:"originalId"`
	Status     scrollsync.Status `json:"status"`
}

// State is a snapshot of the comparison session.
type State struct {
	Enabled     bool      `json:"enabled"`
	SplitRatio  float64   `json:"splitRatio"`
	SyncEnabled bool      `json:"syncEnabled"`
	Pairs       []PairRef `json:"pairs"`
}

// Comparison is the mutable session. The zero value is disabled with the
// slider centered and sync on.
type Comparison struct {
	mu    sync.RWMutex
	state State
}

// New creates a disabled session with defaults.
func New() *Comparison {
	return &Comparison{state: State{SplitRatio: 50, SyncEnabled: true}}
}

// Snapshot copies the current state.
func (c *Comparison) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := c.state
	out.Pairs = append([]PairRef(nil), c.state.Pairs...)
	return out
}

// Enabled reports whether comparison mode is on.
func (c *Comparison) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Enabled
}

// SetEnabled toggles comparison mode. Disabling clears the pairs.
func (c *Comparison) SetEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Enabled = on
	if !on {
		c.state.Pairs = nil
	}
}

// SyncEnabled reports whether scroll sync is requested.
func (c *Comparison) SyncEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.SyncEnabled
}

// SetSyncEnabled toggles scroll synchronization.
func (c *Comparison) SetSyncEnabled(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SyncEnabled = on
}

// SplitRatio returns the slider position in percent.
func (c *Comparison) SplitRatio() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.SplitRatio
}

// SetSplit moves the slider, saturating at the container bounds.
func (c *Comparison) SetSplit(ratio float64) float64 {
	if ratio < 0 {
		ratio = 0
	} else if ratio > 100 {
		ratio = 100
	}
	c.mu.Lock()
	c.state.SplitRatio = ratio
	c.mu.Unlock()
	return ratio
}

// SetPairs replaces the tracked pair set.
func (c *Comparison) SetPairs(pairs []PairRef) {
	c.mu.Lock()
	c.state.Pairs = append([]PairRef(nil), pairs...)
	c.mu.Unlock()
}

// UpdatePairStatus records one pair's sync status.
func (c *Comparison) UpdatePairStatus(id string, status scrollsync.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Pairs {
		if c.state.Pairs[i].ID == id {
			c.state.Pairs[i].Status = status
			return
		}
	}
}
