package reconcile

import (
	"math"
	"reflect"
	"testing"

	"github.com/kk-code-lab/seekr/internal/search"
)

func scored(scores ...float64) []search.RawHit {
	hits := make([]search.RawHit, len(scores))
	for i, s := range scores {
		hits[i] = search.RawHit{ID: string(rune('a' + i)), RelevanceScore: s}
	}
	return hits
}

func scoresOf(hits []search.RawHit) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.RelevanceScore
	}
	return out
}

func idsOf(hits []search.RawHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestReconcileImageThreshold(t *testing.T) {
	got := Reconcile(scored(0.95, 0.80, 0.50, 0.20, 0.05), search.ModeImage, 0.9)
	if !reflect.DeepEqual(scoresOf(got), []float64{0.95}) {
		t.Fatalf("expected only 0.95, got %v", scoresOf(got))
	}

	got = Reconcile(scored(0.85, 0.95), search.ModeImage, 0.9)
	if !reflect.DeepEqual(scoresOf(got), []float64{0.95}) {
		t.Fatalf("expected 0.85 dropped, got %v", scoresOf(got))
	}
}

func TestReconcileHybridThreshold(t *testing.T) {
	got := Reconcile(scored(0.20, 0.05, 0.95, 0.50, 0.80), search.ModeHybrid, 0.1)
	want := []float64{0.95, 0.80, 0.50, 0.20}
	if !reflect.DeepEqual(scoresOf(got), want) {
		t.Fatalf("expected %v, got %v", want, scoresOf(got))
	}

	got = Reconcile(scored(0.15, 0.05), search.ModeHybrid, 0.1)
	if !reflect.DeepEqual(scoresOf(got), []float64{0.15}) {
		t.Fatalf("expected 0.15 kept and 0.05 dropped, got %v", scoresOf(got))
	}
}

func TestReconcileTextKeepsEverything(t *testing.T) {
	got := Reconcile(scored(0.05, 0.95, 0.50), search.ModeText, 0.99)
	if !reflect.DeepEqual(scoresOf(got), []float64{0.95, 0.50, 0.05}) {
		t.Fatalf("expected all hits reordered, got %v", scoresOf(got))
	}
}

func TestReconcileStableTies(t *testing.T) {
	hits := []search.RawHit{
		{ID: "z", RelevanceScore: 0.5},
		{ID: "a", RelevanceScore: 0.5},
		{ID: "m", RelevanceScore: 0.9},
		{ID: "b", RelevanceScore: 0.5},
	}
	got := Reconcile(hits, search.ModeText, 0)
	if !reflect.DeepEqual(idsOf(got), []string{"m", "z", "a", "b"}) {
		t.Fatalf("expected arrival order on ties, got %v", idsOf(got))
	}
}

func TestReconcileDeduplicates(t *testing.T) {
	hits := []search.RawHit{
		{ID: "x", RelevanceScore: 0.3, Snippet: "old"},
		{ID: "y", RelevanceScore: 0.3},
		{ID: "x", RelevanceScore: 0.3, Snippet: "new"},
		{ID: "", RelevanceScore: 0.1},
		{ID: "", RelevanceScore: 0.1},
	}
	got := Reconcile(hits, search.ModeText, 0)
	if len(got) != 4 {
		t.Fatalf("expected 4 hits after dedup, got %d", len(got))
	}
	if got[0].ID != "x" || got[0].Snippet != "new" {
		t.Fatalf("expected last x record at first position, got %+v", got[0])
	}
	if got[1].ID != "y" {
		t.Fatalf("expected y second, got %q", got[1].ID)
	}
}

func TestReconcileNaNScores(t *testing.T) {
	hits := scored(math.NaN(), 0.95)
	if got := Reconcile(hits, search.ModeImage, 0.9); len(got) != 1 || got[0].RelevanceScore != 0.95 {
		t.Fatalf("expected NaN dropped in image mode, got %v", scoresOf(got))
	}
	got := Reconcile(hits, search.ModeText, 0.9)
	if len(got) != 2 || got[0].RelevanceScore != 0.95 {
		t.Fatalf("expected NaN kept last in text mode, got %v", scoresOf(got))
	}
}

func TestReconcileEmptyAndInputUntouched(t *testing.T) {
	if got := Reconcile(nil, search.ModeImage, 0.9); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", got)
	}
	hits := scored(0.1, 0.9)
	Reconcile(hits, search.ModeText, 0)
	if hits[0].RelevanceScore != 0.1 {
		t.Fatal("Reconcile modified its input")
	}
}

func TestThresholds(t *testing.T) {
	th := DefaultThresholds()
	if th.For(search.ModeImage) != 0.9 || th.For(search.ModeHybrid) != 0.1 || th.For(search.ModeText) != 0 {
		t.Fatalf("unexpected default thresholds %+v", th)
	}
	if err := (Thresholds{Image: 1.2, Hybrid: 0.1}).Validate(); err == nil {
		t.Fatal("expected error for image threshold above 1")
	}
	if err := th.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
