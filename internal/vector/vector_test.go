package vector

import (
	"math"
	"reflect"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7, float32(math.Inf(1))}
	if got := Decode(Encode(v)); !reflect.DeepEqual(got, v) {
		t.Fatalf("round trip mismatch: %v", got)
	}
	if Decode([]byte{1, 2, 3}) != nil {
		t.Fatal("expected nil for truncated blob")
	}
	if Decode(nil) != nil {
		t.Fatal("expected nil for empty blob")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{0, 0}, []float32{1, 0}, 0},
		{[]float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
