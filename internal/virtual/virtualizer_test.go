package virtual

import "testing"

func TestWindowEmpty(t *testing.T) {
	v := New(1, 3)
	w := v.Window(10, 20)
	if w.Len() != 0 || w.End != -1 {
		t.Fatalf("expected empty window, got %+v", w)
	}
}

func TestWindowBoundsFixedHeight(t *testing.T) {
	v := New(1, 2)
	v.SetCount(100)

	w := v.Window(10, 5)
	if w.Start != 8 || w.End != 16 {
		t.Fatalf("expected [8,16], got [%d,%d]", w.Start, w.End)
	}

	w = v.Window(0, 5)
	if w.Start != 0 || w.End != 6 {
		t.Fatalf("expected [0,6] at top, got [%d,%d]", w.Start, w.End)
	}

	w = v.Window(1000, 5)
	if w.Scroll != 95 || w.End != 99 || w.Start != 93 {
		t.Fatalf("expected clamped window ending at 99, got %+v", w)
	}
}

func TestWindowInvariantAcrossInputs(t *testing.T) {
	for _, count := range []int{1, 2, 7, 64, 1000} {
		v := New(2, 3)
		v.SetCount(count)
		for i := 0; i < count; i += 3 {
			v.Measure(i, 1+i%4)
		}
		for _, scroll := range []int{-50, 0, 1, 13, 999, 1 << 20} {
			for _, viewport := range []int{-1, 0, 1, 10, 5000} {
				w := v.Window(scroll, viewport)
				if w.Start < 0 || w.Start > w.End || w.End >= count {
					t.Fatalf("count=%d scroll=%d viewport=%d: bad window %+v", count, scroll, viewport, w)
				}
			}
		}
	}
}

func TestMeasureAdjustsOnlyLaterOffsets(t *testing.T) {
	v := New(1, 0)
	v.SetCount(10)
	before := v.Offset(4)

	if delta := v.Measure(5, 3); delta != 2 {
		t.Fatalf("expected delta 2, got %d", delta)
	}
	if v.Offset(4) != before {
		t.Fatalf("offset above measured row changed: %d -> %d", before, v.Offset(4))
	}
	if v.Offset(6) != 8 {
		t.Fatalf("expected row 6 at 8, got %d", v.Offset(6))
	}
	if v.TotalHeight() != 12 {
		t.Fatalf("expected total 12, got %d", v.TotalHeight())
	}
	if v.Measure(5, 3) != 0 {
		t.Fatal("re-measuring with the same height should report no change")
	}
	if v.Measure(42, 3) != 0 {
		t.Fatal("measuring out of range should be a no-op")
	}
}

func TestIndexAt(t *testing.T) {
	v := New(1, 0)
	v.SetCount(5)
	v.Measure(1, 3) // rows occupy [0,1) [1,4) [4,5) [5,6) [6,7)

	tests := map[int]int{-3: 0, 0: 0, 1: 1, 3: 1, 4: 2, 6: 4, 99: 4}
	for y, want := range tests {
		if got := v.IndexAt(y); got != want {
			t.Errorf("IndexAt(%d) = %d, want %d", y, got, want)
		}
	}
}

func TestEnsureVisible(t *testing.T) {
	v := New(1, 0)
	v.SetCount(50)

	if got := v.EnsureVisible(30, 0, 10); got != 21 {
		t.Fatalf("expected scroll 21 to reveal row 30, got %d", got)
	}
	if got := v.EnsureVisible(2, 21, 10); got != 2 {
		t.Fatalf("expected scroll 2 to reveal row 2, got %d", got)
	}
	if got := v.EnsureVisible(25, 21, 10); got != 21 {
		t.Fatalf("visible row should not move scroll, got %d", got)
	}
}

func TestSetCountResetsMeasurements(t *testing.T) {
	v := New(2, 1)
	v.SetCount(3)
	v.Measure(0, 9)
	v.SetCount(3)
	if v.TotalHeight() != 6 {
		t.Fatalf("expected heights reset to estimate, total %d", v.TotalHeight())
	}
}
