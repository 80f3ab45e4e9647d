/*
 * atomicdata.go, part of mlprep.
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

package chem

import "fmt"

//A map for assigning mass to elements.
//Note that just the elements found in common organic molecules are present
var symbolMass = map[string]float64{
	"H":  1.008,
	"He": 4.0026,
	"Li": 6.94,
	"B":  10.81,
	"C":  12.01,
	"N":  14.01,
	"O":  16.00,
	"F":  18.998,
	"Ne": 20.180,
	"Na": 22.99,
	"Mg": 24.30,
	"Si": 28.08,
	"P":  30.97,
	"S":  32.06,
	"Cl": 35.45,
	"K":  39.1,
	"Ca": 40.08,
	"Se": 78.96,
	"Br": 79.904,
	"I":  126.90,
}

//A map for assigning atomic numbers to elements.
var symbolZ = map[string]int{
	"H":  1,
	"He": 2,
	"Li": 3,
	"B":  5,
	"C":  6,
	"N":  7,
	"O":  8,
	"F":  9,
	"Ne": 10,
	"Na": 11,
	"Mg": 12,
	"Si": 14,
	"P":  15,
	"S":  16,
	"Cl": 17,
	"K":  19,
	"Ca": 20,
	"Se": 34,
	"Br": 35,
	"I":  53,
}

//zSymbol is the inverse of symbolZ, built at init.
var zSymbol = make(map[int]string, len(symbolZ))

func init() {
	for k, v := range symbolZ {
		zSymbol[v] = k
	}
}

//AtomicNumber returns the atomic number for the given element symbol.
func AtomicNumber(symbol string) (int, error) {
	z, ok := symbolZ[symbol]
	if !ok {
		return 0, CError{msg: fmt.Sprintf("Unknown element %s", symbol), deco: []string{"AtomicNumber"}}
	}
	return z, nil
}

//SymbolFromZ returns the element symbol for the atomic number z.
func SymbolFromZ(z int) (string, error) {
	s, ok := zSymbol[z]
	if !ok {
		return "", CError{msg: fmt.Sprintf("Unknown atomic number %d", z), deco: []string{"SymbolFromZ"}}
	}
	return s, nil
}
