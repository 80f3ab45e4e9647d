/*
 * qm_test.go, part of mlprep.
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

package qm

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chem "github.com/rmera/mlprep"
	v3 "github.com/rmera/mlprep/v3"
)

const fakeOut = `
                                 *****************
                                 * O   R   C   A *
                                 *****************
-------------------------   --------------------
FINAL SINGLE POINT ENERGY       -76.300000000000
-------------------------   --------------------
-------------------------   --------------------
FINAL SINGLE POINT ENERGY       -76.400000000000
-------------------------   --------------------
                             ****ORCA TERMINATED NORMALLY****
TOTAL RUN TIME: 0 days 0 hours 0 minutes 10 seconds 0 msec
`

const fakeEngrad = `#
# Number of atoms
#
 3
#
# The current total energy in Eh
#
    -76.400000000000
#
# The current gradient in Eh/bohr
#
       0.010000000000
       0.000000000000
      -0.020000000000
       0.000000000000
       0.005000000000
       0.010000000000
       0.000000000000
      -0.005000000000
       0.010000000000
#
# The atomic numbers and current coordinates in Bohr
#
   8     0.0000000    0.0000000    0.2211000
   1     0.0000000    1.4305000   -0.8862000
   1     0.0000000   -1.4305000   -0.8862000
`

const fakeInp = `! EnGrad def2-TZVPPD wB97M-D3BJ
%pal nprocs 4 end
* xyz 0 1
O        0.00000000     0.00000000     0.11700000
H        0.00000000     0.75700000    -0.46900000
H        0.00000000    -0.75700000    -0.46900000
*
`

func water(Te *testing.T) *chem.Config {
	top := chem.NewTopology(0, 1, chem.NewAtom("O"), chem.NewAtom("H"), chem.NewAtom("H"))
	coords, err := v3.FromRows([][]float64{{0, 0, 0.117}, {0, 0.757, -0.469}, {0, -0.757, -0.469}})
	if err != nil {
		Te.Fatal(err)
	}
	C, err := chem.NewConfig(top, coords)
	if err != nil {
		Te.Fatal(err)
	}
	return C
}

func fakeCalc(Te *testing.T, files map[string]string) string {
	dir := Te.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			Te.Fatal(err)
		}
	}
	return dir
}

func TestOrcaInput(Te *testing.T) {
	C := water(Te)
	dir := Te.TempDir()
	orca := NewOrcaHandle()
	orca.SetWorkDir(dir)
	orca.SetName("angle")
	orca.SetnCPU(4)
	calc := &Calc{Memory: 2000, MaxIter: 200}
	calc.SetDefaults()
	calc.IConstraints = []*IConstraint{{CAtoms: []int{1, 0, 2}, Val: 104.5, Class: 'A'}}
	calc.TDDFT = &TDDFT{NRoots: 2, IRoot: 1, SpinFlip: true}
	if err := orca.BuildInput(C.Coords, C, calc); err != nil {
		Te.Fatal(err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "angle.inp"))
	if err != nil {
		Te.Fatal(err)
	}
	inp := string(raw)
	for _, want := range []string{
		"! EnGrad def2-TZVPPD wB97M-D3BJ\n",
		"%pal nprocs 4 end\n",
		"%MaxCore 2000\n",
		"   MaxIter 200\n",
		"{A 1 0 2 104.500 C}",
		"nroots 2\n",
		"iroot 1\n",
		"sf true\n",
		"* xyz 0 1\n",
	} {
		if !strings.Contains(inp, want) {
			Te.Errorf("Input lacks %q:\n%s", want, inp)
		}
	}
	if strings.Count(inp, "%geom") != 1 {
		Te.Errorf("There should be a single geom block:\n%s", inp)
	}
	calc.IConstraints = []*IConstraint{{CAtoms: []int{1, 0}, Val: 104.5, Class: 'A'}}
	if err := orca.BuildInput(C.Coords, C, calc); err == nil {
		Te.Error("An angle constraint with 2 atoms should give an error")
	}
	orca.SetnCPU(1)
	if err := orca.BuildInput(C.Coords, C, &Calc{Task: "SP", Method: "PBE", Basis: "def2-SVP"}); err != nil {
		Te.Fatal(err)
	}
	raw, _ = os.ReadFile(filepath.Join(dir, "angle.inp"))
	if strings.Contains(string(raw), "%pal") || strings.Contains(string(raw), "%geom") {
		Te.Errorf("Unrequested blocks in input:\n%s", raw)
	}
}

func TestOrcaOutputs(Te *testing.T) {
	dir := fakeCalc(Te, map[string]string{"orca.out": fakeOut, "orca.engrad": fakeEngrad, "orca.inp": fakeInp})
	orca := NewOrcaHandle()
	orca.SetWorkDir(dir)
	e, err := orca.Energy()
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(e-(-76.4*chem.H2eV)) > 1e-8 {
		Te.Errorf("Wrong energy %f, the last one should be taken", e)
	}
	F, err := orca.Forces()
	if err != nil {
		Te.Fatal(err)
	}
	if F.NVecs() != 3 {
		Te.Fatalf("Wrong number of forces %d", F.NVecs())
	}
	if math.Abs(F.At(0, 2)-0.02*chem.HBohr2eVA) > 1e-8 || math.Abs(F.At(2, 1)-0.005*chem.HBohr2eVA) > 1e-8 {
		Te.Errorf("Forces should be minus the gradient, in eV/A: %v", F)
	}
}

func TestLoad(Te *testing.T) {
	dir := fakeCalc(Te, map[string]string{"orca.out": fakeOut, "orca.engrad": fakeEngrad, "orca.inp": fakeInp})
	C, err := Load(dir)
	if err != nil {
		Te.Fatal(err)
	}
	if C.Len() != 3 || C.Atom(0).Symbol != "O" || C.Multi() != 1 {
		Te.Errorf("Wrong topology %v", C.Symbols())
	}
	if C.Calc == nil || C.Calc.Forces == nil {
		Te.Fatal("Results not loaded")
	}
	if C.Coords.At(1, 1) != 0.757 {
		Te.Errorf("Wrong geometry from the input %v", C.Coords)
	}
	//an optimization leaves the final geometry in orca.xyz
	xyz := "3\nCoordinates from ORCA-job orca\nO 0.0 0.0 0.1\nH 0.0 0.8 -0.5\nH 0.0 -0.8 -0.5\n"
	dir = fakeCalc(Te, map[string]string{"orca.out": fakeOut, "orca.inp": fakeInp, "orca.xyz": xyz})
	C, err = Load(dir)
	if err != nil {
		Te.Fatal(err)
	}
	if C.Coords.At(1, 1) != 0.8 {
		Te.Errorf("The geometry should come from orca.xyz %v", C.Coords)
	}
	if C.Calc.Forces != nil {
		Te.Error("No engrad file, there should be no forces")
	}
}

func TestLoadProblems(Te *testing.T) {
	broken := strings.Replace(fakeOut, "****ORCA TERMINATED NORMALLY****", "", 1)
	dir := fakeCalc(Te, map[string]string{"orca.out": broken, "orca.inp": fakeInp})
	C, err := Load(dir)
	if !errors.Is(err, ErrProbableProblem) {
		Te.Fatalf("Expected a probable problem, got %v", err)
	}
	if IsCritical(err) {
		Te.Error("A probable problem should not be critical")
	}
	if C == nil || C.Calc == nil {
		Te.Error("The configuration should be returned with the warning")
	}
	dir = fakeCalc(Te, map[string]string{"orca.out": "nothing here\n", "orca.inp": fakeInp})
	if _, err = Load(dir); err == nil || !IsCritical(err) {
		Te.Errorf("An output with no energy should give a critical error, got %v", err)
	}
	dir = fakeCalc(Te, map[string]string{"orca.out": fakeOut})
	if _, err = Load(dir); err == nil {
		Te.Error("A calculation with no input should give an error")
	}
}

func TestCalcCopy(Te *testing.T) {
	Q := &Calc{IConstraints: []*IConstraint{{CAtoms: []int{0, 1}, Val: 1.0, Class: 'B'}}, TDDFT: &TDDFT{NRoots: 2}}
	R := Q.Copy()
	R.IConstraints[0].CAtoms[0] = 5
	R.TDDFT.SpinFlip = true
	R.SetDefaults()
	if Q.IConstraints[0].CAtoms[0] != 0 || Q.TDDFT.SpinFlip || Q.Task != "" {
		Te.Error("Copy shares data with the original")
	}
	if R.Task != "EnGrad" || R.Basis != "def2-TZVPPD" {
		Te.Errorf("Wrong defaults %+v", R)
	}
}
