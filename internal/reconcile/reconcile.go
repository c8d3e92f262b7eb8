// Package reconcile turns a raw page of hits into the ordered list shown to
// the user.
package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/kk-code-lab/seekr/internal/search"
)

// Default confidence thresholds. Image-only results carry no text signal and
// need a high bar; hybrid results are already narrowed by text.
const (
	DefaultImageThreshold  = 0.9
	DefaultHybridThreshold = 0.1
)

// Thresholds holds the minimum score per query mode. Text mode never filters.
type Thresholds struct {
	Image  float64
	Hybrid float64
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Image: DefaultImageThreshold, Hybrid: DefaultHybridThreshold}
}

// For returns the threshold applied to mode.
func (t Thresholds) For(mode search.Mode) float64 {
	switch mode {
	case search.ModeImage:
		return t.Image
	case search.ModeHybrid:
		return t.Hybrid
	default:
		return 0
	}
}

// Validate reports thresholds outside [0, 1].
func (t Thresholds) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{{"image", t.Image}, {"hybrid", t.Hybrid}} {
		if math.IsNaN(v.value) || v.value < 0 || v.value > 1 {
			return fmt.Errorf("reconcile: %s threshold %v outside [0,1]", v.name, v.value)
		}
	}
	return nil
}

// Reconcile deduplicates hits by ID, drops hits scoring below threshold in
// image and hybrid modes, and orders the rest by descending score. For a
// repeated ID the last record wins but keeps the position where the ID first
// appeared; hits without an ID are never merged. Ties keep arrival order.
// The input slice is not modified.
func Reconcile(hits []search.RawHit, mode search.Mode, threshold float64) []search.RawHit {
	if len(hits) == 0 {
		return []search.RawHit{}
	}

	out := make([]search.RawHit, 0, len(hits))
	seen := make(map[string]int, len(hits))
	for _, h := range hits {
		if h.ID != "" {
			if i, ok := seen[h.ID]; ok {
				out[i] = h
				continue
			}
			seen[h.ID] = len(out)
		}
		out = append(out, h)
	}

	if mode != search.ModeText {
		kept := out[:0]
		for _, h := range out {
			if passes(h.RelevanceScore, threshold) {
				kept = append(kept, h)
			}
		}
		out = kept
	}

	sort.SliceStable(out, func(i, j int) bool {
		return scoreKey(out[i].RelevanceScore) > scoreKey(out[j].RelevanceScore)
	})
	return out
}

func passes(score, threshold float64) bool {
	if math.IsNaN(score) {
		return false
	}
	return score >= threshold
}

// NaN scores sort last in text mode, which keeps them.
func scoreKey(score float64) float64 {
	if math.IsNaN(score) {
		return math.Inf(-1)
	}
	return score
}
