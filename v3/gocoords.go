/*
 * gocoords.go, part of mlprep.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package v3

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//Zeros returns a zero-filled Matrix with vecs vectors and 3 in the other dimension.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

//FromRows builds a Matrix copying the given rows, each of which must have 3 elements.
func FromRows(rows [][]float64) (*Matrix, error) {
	data := make([]float64, 0, 3*len(rows))
	for i, v := range rows {
		if len(v) != 3 {
			return nil, Error{fmt.Sprintf("Row %d has %d elements, 3 expected", i, len(v)), []string{"FromRows"}, true}
		}
		data = append(data, v...)
	}
	M, err := NewMatrix(data)
	if err != nil {
		return nil, errDecorate(err, "FromRows")
	}
	return M, nil
}

//METHODS

//NVecs returns the number of vectors in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

//Clone returns a deep copy of F. It returns nil for a nil receiver.
func (F *Matrix) Clone() *Matrix {
	if F == nil || F.Dense == nil {
		return nil
	}
	r := Zeros(F.NVecs())
	r.Copy(F.Dense)
	return r
}

//SwapVecs swaps the ith and jth vectors of F.
func (F *Matrix) SwapVecs(i, j int) {
	if i >= F.NVecs() || j >= F.NVecs() {
		panic(ErrIndexOutOfRange)
	}
	rowi := F.RawRowView(i)
	rowj := F.RawRowView(j)
	for k := 0; k < 3; k++ {
		rowi[k], rowj[k] = rowj[k], rowi[k]
	}
}

//Norms returns the euclidean norm of each vector of F.
func (F *Matrix) Norms() []float64 {
	n := F.NVecs()
	ret := make([]float64, n)
	for i := 0; i < n; i++ {
		ret[i] = floats.Norm(F.RawRowView(i), 2)
	}
	return ret
}

//MaxNorm returns the largest euclidean norm among the vectors of F.
func (F *Matrix) MaxNorm() float64 {
	return floats.Max(F.Norms())
}

//ScaleBy multiplies every element of A by f and puts the result in F.
func (F *Matrix) ScaleBy(f float64, A *Matrix) {
	F.Scale(f, A.Dense)
}

//EqualApprox returns true if A and B have the same shape and every pair of
//elements differs by less than tol.
func EqualApprox(A, B *Matrix, tol float64) bool {
	if A == nil || B == nil {
		return A == B
	}
	return mat.EqualApprox(A.Dense, B.Dense, tol)
}

//String returns the matrix as one line per vector.
func (F *Matrix) String() string {
	if F == nil || F.Dense == nil {
		return "<nil>"
	}
	n := F.NVecs()
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		r := F.RawRowView(i)
		lines[i] = fmt.Sprintf("%12.6f %12.6f %12.6f", r[0], r[1], r[2])
	}
	return strings.Join(lines, "\n")
}

//IsFinite returns false if any element of F is NaN or infinite.
func (F *Matrix) IsFinite() bool {
	for i := 0; i < F.NVecs(); i++ {
		for _, v := range F.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
