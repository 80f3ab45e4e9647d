/*
 * qm.go, part of mlprep.
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

package qm

import (
	"errors"
	"fmt"
	"strings"

	chem "github.com/rmera/mlprep"
	v3 "github.com/rmera/mlprep/v3"
)

//Handle allows to set QM calculations using different programs.
type Handle interface {

	//Sets the name for the job, used for input
	//and output files. The extentions will depend on the program.
	SetName(name string)

	//BuildInput builds an input for the QM program based int the data in
	//atoms, coords and C. returns only error.
	BuildInput(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) error

	//Run runs the QM program for a calculation previously set.
	//it waits or not for the result depending of the value of
	//wait.
	Run(wait bool) (err error)

	//Energy gets the last energy for a calculation by parsing the
	//QM program's output file. Return error if fail. Also returns
	//Error ("Probable problem in calculation")
	//if there is a energy but the calculation didnt end properly.
	Energy() (float64, error)

	//OptimizedGeometry reads the optimized geometry from a calculation
	//output. Returns error if fail. Returns Error ("Probable problem
	//in calculation") if there is a geometry but the calculation didnt
	//end properly*
	OptimizedGeometry(atoms chem.Atomer) (*v3.Matrix, error)
}

//IConstraint is an internal-coordinate constraint. The atom indexes start from 0.
type IConstraint struct {
	CAtoms []int
	Val    float64
	Class  byte // B: distance, A: angle, D: Dihedral
}

//TDDFT contains the settings for an excited-state calculation.
type TDDFT struct {
	NRoots   int  //number of excited states to compute
	IRoot    int  //the state whose energy and gradient are reported
	SpinFlip bool //spin-flip TDDFT from a triplet reference
}

//Calc contains the settings for a QM calculation, independent of the program used.
type Calc struct {
	Task         string //SP, EnGrad or Opt
	Method       string //the functional
	Basis        string
	Others       string //other keywords for the main input line
	IConstraints []*IConstraint
	MaxIter      int //max geometry optimization cycles, 0 for the program default
	TDDFT        *TDDFT
	Blocks       string //additional input blocks, copied verbatim
	Memory       int    //Max memory to be used in MB per core (the effect depends on the QM program)
}

//SetDefaults sets an energy and gradient calculation at the wB97M-D3BJ/def2-TZVPPD level.
//It doesn't change the fields that are already set.
func (Q *Calc) SetDefaults() {
	if Q.Task == "" {
		Q.Task = "EnGrad"
	}
	if Q.Method == "" {
		Q.Method = "wB97M-D3BJ"
	}
	if Q.Basis == "" {
		Q.Basis = "def2-TZVPPD"
	}
}

//Copy returns a copy of the calculation settings, so a template can be reused.
func (Q *Calc) Copy() *Calc {
	r := *Q
	if Q.TDDFT != nil {
		t := *Q.TDDFT
		r.TDDFT = &t
	}
	r.IConstraints = make([]*IConstraint, len(Q.IConstraints))
	for i, v := range Q.IConstraints {
		c := *v
		c.CAtoms = append([]int(nil), v.CAtoms...)
		r.IConstraints[i] = &c
	}
	return &r
}

//Errors

//ErrProbableProblem is returned, wrapped, when a program produced results but didn't
//end normally. The results returned with it might not be trustworthy.
var ErrProbableProblem = errors.New("Probable problem in calculation")

//Error is the error type of the qm package. It implements chem.Error.
type Error struct {
	message    string
	code       string //the name of the QM program
	inputname  string //the input file that has problems, or empty string if none.
	additional string
	deco       []string
	critical   bool
	err        error
}

func (err Error) Error() string {
	ret := fmt.Sprintf("%s (file %s) error: %s", err.code, err.inputname, err.message)
	if err.additional != "" {
		ret += ". " + err.additional
	}
	return ret
}

//Decorate Adds new information to the error
func (err Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//Unwrap returns the wrapped error, if any.
func (err Error) Unwrap() error { return err.err }

//Critical returns false if the error is just a warning about the
//results, true otherwise.
func (err Error) Critical() bool { return err.critical }

//Trace returns the functions the error went through, innermost first.
func (err Error) Trace() string { return strings.Join(err.deco, " <- ") }

//IsCritical returns true if err is not nil and it is not a non-critical qm.Error.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	var e Error
	if errors.As(err, &e) {
		return e.critical
	}
	return true
}

const (
	ErrMissingCharges = "Missing charges or coordinates"
	ErrNoEnergy       = "Couldn't read energy from the output"
	ErrNoForces       = "Couldn't read the gradient"
	ErrNoGeometry     = "Couldn't read the geometry"
	ErrCantInput      = "Can't write input file"
	ErrNotRunning     = "Couldn't run the calculation"
	ErrBadConstraint  = "Internal constraint ill-formatted"
)
