// Package remap computes and applies source-to-target color assignments:
// a deterministic greedy plan by brightness order and nearest RGB
// distance, merged into a persistent mapping and applied live with
// !important priority.
package remap

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/previewlab/restyle/internal/shared/color"
)

// Mapping is the persistent source-hex to target-hex assignment. It
// accumulates across extraction re-runs; only Reset clears it.
type Mapping struct {
	mu    sync.RWMutex
	pairs map[string]string
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{pairs: make(map[string]string)}
}

// Merge writes pairs key-wise: each new assignment overwrites only its own
// key, prior assignments for other keys survive. Entries that do not
// normalize are dropped.
func (m *Mapping) Merge(pairs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for src, tgt := range pairs {
		srcHex, ok := color.Normalize(src)
		if !ok {
			continue
		}
		tgtHex, ok := color.Normalize(tgt)
		if !ok {
			continue
		}
		m.pairs[srcHex] = tgtHex
	}
}

// Get looks up the target for a normalized source hex.
func (m *Mapping) Get(hex string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tgt, ok := m.pairs[hex]
	return tgt, ok
}

// Len returns the number of assignments.
func (m *Mapping) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pairs)
}

// Snapshot copies the current assignments, for persistence.
func (m *Mapping) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.pairs))
	for k, v := range m.pairs {
		out[k] = v
	}
	return out
}

// Replace swaps in a full assignment set, for restoring persisted state.
func (m *Mapping) Replace(pairs map[string]string) {
	m.mu.Lock()
	m.pairs = make(map[string]string, len(pairs))
	m.mu.Unlock()
	m.Merge(pairs)
}

// Reset clears every assignment.
func (m *Mapping) Reset() {
	m.mu.Lock()
	m.pairs = make(map[string]string)
	m.mu.Unlock()
}

// Plan assigns each source color a target color:
//
//  1. sources sorted ascending by perceptual brightness,
//  2. targets sorted the same way,
//  3. each source takes the unused target at minimum RGB distance,
//  4. once targets are exhausted, remaining sources draw a uniformly
//     random target from the full palette (intentional fallback).
//
// Entries that do not normalize are skipped; duplicates collapse. rng may
// be nil, in which case the fallback draw is time-seeded.
func Plan(sources, targets []string, rng *rand.Rand) map[string]string {
	src := normalizeSet(sources)
	tgt := normalizeSet(targets)
	if len(tgt) == 0 {
		tgt = normalizeSet(Fallback)
	}

	sortByBrightness(src)
	sortByBrightness(tgt)

	assigned := make(map[string]string, len(src))
	used := make([]bool, len(tgt))
	remaining := len(tgt)

	for _, s := range src {
		if remaining == 0 {
			if rng == nil {
				assigned[s.hex] = tgt[rand.Intn(len(tgt))].hex
			} else {
				assigned[s.hex] = tgt[rng.Intn(len(tgt))].hex
			}
			continue
		}

		best := -1
		bestDist := 0.0
		for i, t := range tgt {
			if used[i] {
				continue
			}
			d := color.Distance(s.rgb, t.rgb)
			if best < 0 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		used[best] = true
		remaining--
		assigned[s.hex] = tgt[best].hex
	}
	return assigned
}

type sample struct {
	hex string
	rgb color.RGB
}

func normalizeSet(values []string) []sample {
	seen := make(map[string]bool, len(values))
	out := make([]sample, 0, len(values))
	for _, v := range values {
		hex, ok := color.Normalize(v)
		if !ok || seen[hex] {
			continue
		}
		seen[hex] = true
		rgb, _ := color.Parse(hex)
		out = append(out, sample{hex: hex, rgb: rgb})
	}
	return out
}

func sortByBrightness(s []sample) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].rgb.Brightness() < s[j].rgb.Brightness()
	})
}
