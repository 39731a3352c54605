package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
}

func TestNormalizeL2_Zero(t *testing.T) {
	v := []float32{0, 0, 0}
	NormalizeL2(v)
	for _, x := range v {
		if x != 0 {
			t.Error("zero vector should be unchanged")
		}
	}
}
