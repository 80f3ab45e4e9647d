/*
 * chem.go, part of mlprep.
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

package chem

import (
	"fmt"
	"sort"
	"strconv"

	v3 "github.com/rmera/mlprep/v3"
	"gonum.org/v1/gonum/mat"
)

/**Note: As in goChem, a few functions here panic instead of returning errors. These are
 * "fundamental" functions, and if something goes wrong there the program is most likely
 * wrong and should crash. Most panics are related to using the function on a nil object
 * or trying to access out-of bounds fields**/

//Atom contains the information of an atom except for the coordinates, which
//are kept in a v3.Matrix.
type Atom struct {
	Symbol string
	Z      int
	Mass   float64
}

//NewAtom returns an atom with the given symbol, filling the atomic number
//and mass when the element is known.
func NewAtom(symbol string) *Atom {
	at := new(Atom)
	at.Symbol = symbol
	at.Z = symbolZ[symbol]
	at.Mass = symbolMass[symbol]
	return at
}

//Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic("Attempted to copy a nil atom")
	}
	r := *A
	return &r
}

/*****Topology type***/

//Topology contains information about a molecule which is not expected to change
//between configurations (i.e. everything except for coordinates, energies and forces)
type Topology struct {
	Atoms  []*Atom
	charge int
	multi  int
}

//NewTopology returns a topology with the given charge, multiplicity and atoms.
//a multiplicity smaller than 1 is replaced by 1.
func NewTopology(charge, multi int, ats ...*Atom) *Topology {
	if multi < 1 {
		multi = 1
	}
	top := new(Topology)
	top.Atoms = ats
	top.charge = charge
	top.multi = multi
	return top
}

//Charge gets the total charge of the topology
func (T *Topology) Charge() int {
	return T.charge
}

//Multi returns the multiplicity of the topology
func (T *Topology) Multi() int {
	return T.multi
}

//SetCharge sets the total charge of the topology to i
func (T *Topology) SetCharge(i int) {
	T.charge = i
}

//SetMulti sets the multiplicity of the topology to i
func (T *Topology) SetMulti(i int) {
	T.multi = i
}

//Atom returns the Atom corresponding to the index i
//of the Atom slice in the Topology. Panics if
//out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

//AppendAtom appends an atom at the end of the topology.
func (T *Topology) AppendAtom(at *Atom) {
	T.Atoms = append(T.Atoms, at)
}

//Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

//Copy returns a deep copy of the topology.
func (T *Topology) Copy() *Topology {
	top := new(Topology)
	top.Atoms = make([]*Atom, T.Len())
	for key, val := range T.Atoms {
		top.Atoms[key] = val.Copy()
	}
	top.charge = T.charge
	top.multi = T.multi
	return top
}

//Symbols returns the element symbols of all atoms, in order.
func (T *Topology) Symbols() []string {
	ret := make([]string, T.Len())
	for i, v := range T.Atoms {
		ret[i] = v.Symbol
	}
	return ret
}

//Species returns the distinct element symbols in the topology, sorted.
func (T *Topology) Species() []string {
	seen := make(map[string]bool)
	ret := make([]string, 0, 4)
	for _, v := range T.Atoms {
		if !seen[v.Symbol] {
			seen[v.Symbol] = true
			ret = append(ret, v.Symbol)
		}
	}
	sort.Strings(ret)
	return ret
}

//Electrons returns the number of electrons in the topology, considering its charge.
//It returns an error if an element with unknown atomic number is present.
func (T *Topology) Electrons() (int, error) {
	e := 0
	for i, v := range T.Atoms {
		if v.Z == 0 {
			return 0, CError{msg: fmt.Sprintf("Unknown atomic number for atom %d (%s)", i, v.Symbol), deco: []string{"Electrons"}}
		}
		e += v.Z
	}
	return e - T.charge, nil
}

/**Type Results**/

//Results holds the energy (in eV) and, optionally, the forces (in eV/A) obtained for
//a configuration from a QM calculation.
type Results struct {
	Energy float64
	Forces *v3.Matrix //nil if forces were not computed
}

//Copy returns a deep copy of the results.
func (R *Results) Copy() *Results {
	if R == nil {
		return nil
	}
	return &Results{Energy: R.Energy, Forces: R.Forces.Clone()}
}

/**Type Config**/

//Config is one configuration record: an atomic structure plus the scalar (Info)
//and per-atom (Arrays) properties attached to it, and optionally the results of the
//calculation that produced it.
type Config struct {
	*Topology
	Coords *v3.Matrix
	Info   map[string]string
	Arrays map[string]*mat.Dense
	Calc   *Results
}

//NewConfig returns a configuration with the given topology and coordinates.
//It returns error if either is nil or if they don't match.
func NewConfig(top *Topology, coords *v3.Matrix) (*Config, error) {
	if top == nil {
		return nil, CError{msg: "Supplied a nil Topology", deco: []string{"NewConfig"}}
	}
	if coords == nil {
		return nil, CError{msg: "Supplied nil coordinates", deco: []string{"NewConfig"}}
	}
	C := &Config{Topology: top, Coords: coords, Info: make(map[string]string), Arrays: make(map[string]*mat.Dense)}
	if err := C.Corrupted(); err != nil {
		return nil, errDecorate(err, "NewConfig")
	}
	return C, nil
}

//Copy returns a deep copy of the configuration, including results.
func (C *Config) Copy() *Config {
	if err := C.Corrupted(); err != nil {
		panic(err.Error()) //copying a corrupted configuration means that the program is wrong.
	}
	N := new(Config)
	N.Topology = C.Topology.Copy()
	N.Coords = C.Coords.Clone()
	N.Info = make(map[string]string, len(C.Info))
	for k, v := range C.Info {
		N.Info[k] = v
	}
	N.Arrays = make(map[string]*mat.Dense, len(C.Arrays))
	for k, v := range C.Arrays {
		N.Arrays[k] = mat.DenseCopyOf(v)
	}
	N.Calc = C.Calc.Copy()
	return N
}

//Corrupted checks whether the configuration is corrupted, i.e. the
//coordinates, forces or per-atom arrays don't match the number of atoms.
func (C *Config) Corrupted() error {
	if C.Topology == nil || C.Coords == nil {
		return CError{msg: "Configuration without atoms or coordinates", deco: []string{"Corrupted"}}
	}
	if C.Len() != C.Coords.NVecs() {
		return CError{msg: fmt.Sprintf("Inconsistent coordinates/atoms: Atoms %d, coords: %d", C.Len(), C.Coords.NVecs()), deco: []string{"Corrupted"}}
	}
	if C.Calc != nil && C.Calc.Forces != nil && C.Calc.Forces.NVecs() != C.Len() {
		return CError{msg: fmt.Sprintf("Inconsistent forces/atoms: Atoms %d, forces: %d", C.Len(), C.Calc.Forces.NVecs()), deco: []string{"Corrupted"}}
	}
	for k, v := range C.Arrays {
		if r, _ := v.Dims(); r != C.Len() {
			return CError{msg: fmt.Sprintf("Inconsistent array %s: Atoms %d, rows: %d", k, C.Len(), r), deco: []string{"Corrupted"}}
		}
	}
	return nil
}

//SetFloatInfo stores a floating-point scalar property.
func (C *Config) SetFloatInfo(key string, v float64) {
	if C.Info == nil {
		C.Info = make(map[string]string)
	}
	C.Info[key] = strconv.FormatFloat(v, 'f', -1, 64)
}

//FloatInfo retrieves a floating-point scalar property.
func (C *Config) FloatInfo(key string) (float64, error) {
	s, ok := C.Info[key]
	if !ok {
		return 0, CError{msg: fmt.Sprintf("Property %s not present", key), deco: []string{"FloatInfo"}}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, CError{msg: fmt.Sprintf("Property %s is not a number", key), deco: []string{"FloatInfo"}, err: err}
	}
	return f, nil
}

//SetArray attaches a per-atom property. The array must have one row per atom.
func (C *Config) SetArray(key string, A *mat.Dense) error {
	if r, _ := A.Dims(); r != C.Len() {
		return CError{msg: fmt.Sprintf("Array %s has %d rows for %d atoms", key, r, C.Len()), deco: []string{"SetArray"}}
	}
	if C.Arrays == nil {
		C.Arrays = make(map[string]*mat.Dense)
	}
	C.Arrays[key] = A
	return nil
}
