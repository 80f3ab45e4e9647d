/*
 * driver.go, part of mlprep.
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
	"log"
	"os"
	"path/filepath"
	"strings"

	chem "github.com/rmera/mlprep"
	"github.com/rmera/mlprep/qm"
	v3 "github.com/rmera/mlprep/v3"
)

//Driver runs the batches of ORCA calculations needed to build a dataset.
//Every batch skips the calculations that were already done, i.e. whose directory
//contains an ORCA output, so an interrupted batch can simply be run again.
type Driver struct {
	Orca   *qm.OrcaHandle
	Calc   *qm.Calc //template for all calculations. It is never modified.
	Logger *log.Logger
}

//NewDriver returns a driver with the default ORCA handle and calculation settings.
func NewDriver() *Driver {
	D := new(Driver)
	D.Orca = qm.NewOrcaHandle()
	D.Calc = new(qm.Calc)
	D.Calc.SetDefaults()
	return D
}

func (D *Driver) logger() *log.Logger {
	if D.Logger == nil {
		return log.Default()
	}
	return D.Logger
}

//calc returns a copy of the template, with the given task if not empty.
func (D *Driver) calc(task string) *qm.Calc {
	var Q *qm.Calc
	if D.Calc == nil {
		Q = new(qm.Calc)
	} else {
		Q = D.Calc.Copy()
	}
	if task != "" {
		Q.Task = task
	}
	Q.SetDefaults()
	return Q
}

//Done returns true if dir contains the output of an ORCA calculation.
func Done(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "orca.out"))
	return err == nil
}

//Multiplicity returns 2 for an odd number of electrons, 1 otherwise, as used
//for the isolated atoms.
func Multiplicity(top *chem.Topology) (int, error) {
	e, err := top.Electrons()
	if err != nil {
		return 0, err
	}
	if e%2 != 0 {
		return 2, nil
	}
	return 1, nil
}

//ReferenceEnergies computes or loads a single point for an isolated atom of each
//of the species, in dir/<symbol>. The returned configurations are labeled as
//isolated atoms and carry their energy as REF_energy.
func (D *Driver) ReferenceEnergies(species []string, dir string) ([]*chem.Config, error) {
	lg := D.logger()
	ret := make([]*chem.Config, 0, len(species))
	for _, s := range species {
		cdir := filepath.Join(dir, s)
		if _, err := os.Stat(cdir); err == nil {
			lg.Printf("Single point already performed for atom: %s", s)
		} else {
			top := chem.NewTopology(0, 1, chem.NewAtom(s))
			multi, err := Multiplicity(top)
			if err != nil {
				return nil, err
			}
			top.SetMulti(multi)
			C, err := chem.NewConfig(top, v3.Zeros(1))
			if err != nil {
				return nil, err
			}
			lg.Printf("Performing single point for atom: %s", s)
			if err = D.Orca.RunIn(cdir, C, D.calc("SP")); err != nil {
				return nil, fmt.Errorf("atom %s: %w", s, err)
			}
		}
		C, err := load(cdir, lg)
		if err != nil {
			return nil, err
		}
		C.Calc.Forces = nil
		C.Info["config_type"] = "IsolatedAtom"
		C.SetFloatInfo(chem.RefEnergyKey, C.Calc.Energy)
		ret = append(ret, C)
	}
	return ret, nil
}

//AngleScan runs constrained optimizations of C with the a-b-c angle set at each
//value of the grid, in degrees. The starting geometry for each value is C with the
//atom c moved to give the right angle. C is not modified.
func (D *Driver) AngleScan(C *chem.Config, a, b, c int, angles Grid, dir string) error {
	lg := D.logger()
	for _, angle := range angles.Values() {
		cdir := filepath.Join(dir, fmt.Sprintf("angle_%.2f", angle))
		if Done(cdir) {
			lg.Printf("ORCA geometry optimization found for angle %.2f", angle)
			continue
		}
		start := C.Copy()
		start.Calc = nil
		if err := SetAngle(start.Coords, a, b, c, angle); err != nil {
			return err
		}
		Q := D.calc("Opt")
		Q.MaxIter = 200
		Q.IConstraints = append(Q.IConstraints, &qm.IConstraint{CAtoms: []int{a, b, c}, Val: angle, Class: 'A'})
		if err := D.Orca.RunIn(cdir, start, Q); err != nil {
			return fmt.Errorf("angle %.2f: %w", angle, err)
		}
		lg.Printf("ORCA geometry optimization finished for angle %.2f", angle)
	}
	return nil
}

//BondAngleScan runs constrained optimizations over a two-dimensional grid of
//the distance between the atoms in bond, in A, and the angle between the atoms in angle,
//in degrees. The constraints are left to ORCA, C is used as starting geometry for all points.
func (D *Driver) BondAngleScan(C *chem.Config, bond [2]int, lengths Grid, angle [3]int, angles Grid, dir string) error {
	lg := D.logger()
	for _, l := range lengths.Values() {
		for _, an := range angles.Values() {
			cdir := filepath.Join(dir, fmt.Sprintf("length_%.2f_angle_%.2f", l, an))
			if Done(cdir) {
				lg.Printf("ORCA geometry optimization found for length %.2f, angle %.2f", l, an)
				continue
			}
			Q := D.calc("Opt")
			Q.IConstraints = append(Q.IConstraints,
				&qm.IConstraint{CAtoms: bond[:], Val: l, Class: 'B'},
				&qm.IConstraint{CAtoms: angle[:], Val: an, Class: 'A'})
			if err := D.Orca.RunIn(cdir, C, Q); err != nil {
				return fmt.Errorf("length %.2f, angle %.2f: %w", l, an, err)
			}
			lg.Printf("ORCA geometry optimization finished for length %.2f, angle %.2f", l, an)
		}
	}
	return nil
}

//ExcitedStates runs spin-flip TDDFT energy and gradient calculations, for each of the
//nstates lowest excited states, on the optimized geometries in the subdirectories of geomDir.
//The calculation for the state i on the geometry in geomDir/x_<tag> goes to outDir/state_<i>_angle_<tag>.
func (D *Driver) ExcitedStates(geomDir, outDir string, nstates int) error {
	lg := D.logger()
	geoms, err := subdirs(geomDir)
	if err != nil {
		return err
	}
	for i := 1; i <= nstates; i++ {
		for _, g := range geoms {
			tag := g[strings.LastIndex(g, "_")+1:]
			cdir := filepath.Join(outDir, fmt.Sprintf("state_%d_angle_%s", i, tag))
			if Done(cdir) {
				lg.Printf("ORCA SF-TDDFT calculation found for state %d, angle %s", i, tag)
				continue
			}
			confs, err := chem.XYZFileRead(filepath.Join(geomDir, g, "orca.xyz"))
			if err != nil {
				return fmt.Errorf("geometry %s: %w", g, err)
			}
			if len(confs) == 0 {
				return fmt.Errorf("geometry %s: %w", g, ErrNoData)
			}
			if err = D.Orca.RunSpinFlipIn(cdir, confs[0], D.tddft(nstates, i)); err != nil {
				return fmt.Errorf("state %d, angle %s: %w", i, tag, err)
			}
			lg.Printf("ORCA SF-TDDFT calculation finished for state %d, angle %s", i, tag)
		}
	}
	return nil
}

func (D *Driver) tddft(nstates, i int) *qm.Calc {
	Q := D.calc("EnGrad")
	Q.TDDFT = &qm.TDDFT{NRoots: nstates, IRoot: i, SpinFlip: true}
	return Q
}

//Snapshots runs spin-flip TDDFT energy and gradient calculations, for each of the nstates
//lowest excited states, on the MD snapshots in snapDir/<name>/snapshot.xyz. The calculation
//goes to outDir/sf-es_<state>/<name>. Failed calculations are logged and skipped.
//It returns the number of failures.
func (D *Driver) Snapshots(snapDir, outDir string, nstates int) (int, error) {
	lg := D.logger()
	snaps, err := subdirs(snapDir)
	if err != nil {
		return 0, err
	}
	var failed int
	for i := 1; i <= nstates; i++ {
		for _, s := range snaps {
			cdir := filepath.Join(outDir, fmt.Sprintf("sf-es_%d", i), s)
			if Done(cdir) {
				lg.Printf("Calculation found: %s", cdir)
				continue
			}
			confs, err := chem.XYZFileRead(filepath.Join(snapDir, s, "snapshot.xyz"))
			if err == nil && len(confs) == 0 {
				err = ErrNoData
			}
			if err == nil {
				err = D.Orca.RunSpinFlipIn(cdir, confs[0], D.tddft(nstates, i))
			}
			if err != nil {
				lg.Printf("Snapshot %s, state %d failed: %v", s, i, err)
				failed++
			}
		}
	}
	return failed, nil
}
