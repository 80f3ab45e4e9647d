/*
 * geometry.go, part of mlprep.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package prep

import (
	"fmt"
	"math"

	chem "github.com/rmera/mlprep"
	v3 "github.com/rmera/mlprep/v3"
	"gonum.org/v1/gonum/floats"
)

const appzero float64 = 1e-12

//Grid is a set of N equally spaced values from From to To, both included.
type Grid struct {
	From float64 `yaml:"from"`
	To   float64 `yaml:"to"`
	N    int     `yaml:"n"`
}

//Values returns the values of the grid. A grid with N=1 has only the From value.
func (G Grid) Values() []float64 {
	if G.N <= 0 {
		return nil
	}
	if G.N == 1 {
		return []float64{G.From}
	}
	return floats.Span(make([]float64, G.N), G.From, G.To)
}

func vec(coords *v3.Matrix, i int) []float64 {
	return append([]float64(nil), coords.RawRowView(i)...)
}

func cross(a, b []float64) []float64 {
	return []float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

//vecAngle returns the angle between two vectors, in radians.
func vecAngle(v1, v2 []float64) float64 {
	normproduct := floats.Norm(v1, 2) * floats.Norm(v2, 2)
	argument := floats.Dot(v1, v2) / normproduct
	//Take care of floating point math errors
	if math.Abs(argument-1) <= appzero {
		argument = 1
	} else if math.Abs(argument+1) <= appzero {
		argument = -1
	}
	return math.Acos(argument)
}

//Angle returns the a-b-c angle, in degrees.
func Angle(coords *v3.Matrix, a, b, c int) float64 {
	vb := vec(coords, b)
	u := floats.SubTo(make([]float64, 3), vec(coords, a), vb)
	w := floats.SubTo(make([]float64, 3), vec(coords, c), vb)
	return vecAngle(u, w) * chem.Rad2Deg
}

//SetAngle moves the atom c so the a-b-c angle becomes deg degrees, keeping
//the b-c distance and, unless the atoms are collinear, the a-b-c plane.
func SetAngle(coords *v3.Matrix, a, b, c int, deg float64) error {
	n := coords.NVecs()
	if a >= n || b >= n || c >= n || a == b || b == c || a == c {
		return fmt.Errorf("SetAngle: bad atom indexes %d %d %d for %d atoms", a, b, c, n)
	}
	vb := vec(coords, b)
	u := floats.SubTo(make([]float64, 3), vec(coords, a), vb)
	w := floats.SubTo(make([]float64, 3), vec(coords, c), vb)
	if floats.Norm(u, 2) <= appzero || floats.Norm(w, 2) <= appzero {
		return fmt.Errorf("SetAngle: overlapping atoms")
	}
	axis := cross(u, w)
	if floats.Norm(axis, 2) <= appzero {
		//collinear, any perpendicular axis will do.
		axis = cross(u, []float64{1, 0, 0})
		if floats.Norm(axis, 2) <= appzero {
			axis = cross(u, []float64{0, 1, 0})
		}
	}
	floats.Scale(1/floats.Norm(axis, 2), axis)
	theta := deg*chem.Deg2Rad - vecAngle(u, w)
	//Rodrigues' rotation of w around axis.
	cos, sin := math.Cos(theta), math.Sin(theta)
	kxw := cross(axis, w)
	kdw := floats.Dot(axis, w)
	row := coords.RawRowView(c)
	for i := range row {
		row[i] = vb[i] + w[i]*cos + kxw[i]*sin + axis[i]*kdw*(1-cos)
	}
	return nil
}
