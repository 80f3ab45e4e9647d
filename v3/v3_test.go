package v3

import (
	"math"
	"testing"
)

func TestNewMatrix(Te *testing.T) {
	a := []float64{1.0, 2.0, 3, 4, 5, 6, 7, 8, 9}
	A, err := NewMatrix(a)
	if err != nil {
		Te.Fatal(err)
	}
	if A.NVecs() != 3 {
		Te.Errorf("Expected 3 vectors, got %d", A.NVecs())
	}
	View := A.VecView(1)
	View.Set(0, 0, 100)
	if A.At(1, 0) != 100 {
		Te.Error("Changes in a view should be reflected in the parent matrix")
	}
	if _, err = NewMatrix([]float64{1, 2}); err == nil {
		Te.Error("A slice not divisible by 3 should give an error")
	}
}

func TestCloneAndStack(Te *testing.T) {
	A, _ := NewMatrix([]float64{1, 2, 3, 4, 5, 6})
	B := A.Clone()
	B.Set(0, 0, -1)
	if A.At(0, 0) != 1 {
		Te.Error("Clone shares memory with the original")
	}
	C := Zeros(4)
	C.Stack(A, B)
	if C.At(2, 0) != -1 || C.At(1, 2) != 6 {
		Te.Errorf("Wrong stacked matrix:\n%s", C)
	}
	C.SwapVecs(0, 3)
	if C.At(0, 2) != 6 || C.At(3, 0) != 1 {
		Te.Errorf("Wrong swapped matrix:\n%s", C)
	}
}

func TestNorms(Te *testing.T) {
	A, _ := FromRows([][]float64{{3, 4, 0}, {0, 0, 2}})
	n := A.Norms()
	if math.Abs(n[0]-5) > 1e-12 || math.Abs(n[1]-2) > 1e-12 {
		Te.Errorf("Wrong norms %v", n)
	}
	if A.MaxNorm() != 5 {
		Te.Errorf("Wrong max norm %f", A.MaxNorm())
	}
	S := Zeros(2)
	S.ScaleBy(-2, A)
	want, _ := FromRows([][]float64{{-6, -8, 0}, {0, 0, -4}})
	if !EqualApprox(S, want, 1e-12) {
		Te.Errorf("Wrong scaling:\n%s", S)
	}
	if _, err := FromRows([][]float64{{1, 2}}); err == nil {
		Te.Error("Rows with 2 elements should give an error")
	}
	if !A.IsFinite() {
		Te.Error("A should be finite")
	}
	A.Set(1, 2, math.NaN())
	if A.IsFinite() {
		Te.Error("A NaN element was not detected")
	}
}
