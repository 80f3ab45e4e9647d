/*
 * split.go, part of mlprep.
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

package split

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chem "github.com/rmera/mlprep"
	"github.com/rmera/mlprep/chemplot"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//ErrNoResults is returned, wrapped, when a record to be split doesn't carry an energy and forces.
var ErrNoResults = errors.New("record has no energy and forces attached")

//Keys of the stamped targets.
const (
	RefEnergyKey = chem.RefEnergyKey
	RefForcesKey = chem.RefForcesKey
)

//ReferenceLabel is the label of the reference set in the summary table.
const ReferenceLabel = "E0s"

//Count is one row of the summary table.
type Count struct {
	Label string
	N     int
}

//Skipped is a file that was not included in any output.
type Skipped struct {
	File string
	Err  error
}

//GroupStats summarizes a group of records. Duplicated records are not
//counted twice in the energy statistics.
type GroupStats struct {
	Key   Key
	N     int     //records in the group, after duplication
	Train int     //records of the group in the training set
	Mean  float64 //of the reference energies, in eV. NaN if not defined.
	Std   float64
}

//Report tells what a Run did.
type Report struct {
	Reference int //records in the reference set
	Counts    []Count
	Groups    []GroupStats
	Skipped   []Skipped
	Written   []string //the output files, in the order they were written
}

func (R *Report) count(label string, n int) {
	for i, v := range R.Counts {
		if v.Label == label {
			R.Counts[i].N += n
			return
		}
	}
	R.Counts = append(R.Counts, Count{label, n})
}

//Stamp returns a copy of C with the energy and forces of its attached results stored as the
//REF_energy property and the REF_forces per-atom array. The copy carries no results.
//It returns an error wrapping ErrNoResults if C has no energy and forces attached.
func Stamp(C *chem.Config) (*chem.Config, error) {
	if C.Calc == nil || C.Calc.Forces == nil {
		return nil, ErrNoResults
	}
	S := C.Copy()
	S.Calc = nil
	S.SetFloatInfo(RefEnergyKey, C.Calc.Energy)
	if err := S.SetArray(RefForcesKey, mat.DenseCopyOf(C.Calc.Forces.Dense)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
	}
	return S, nil
}

type groupKey struct {
	sample, head string
}

//state holds the groups of one state, in the order they were found.
type state struct {
	name   string
	order  []groupKey
	groups map[groupKey][]*chem.Config
}

type states struct {
	order []string
	m     map[string]*state
}

func (S *states) add(K Key, confs []*chem.Config) {
	if S.m == nil {
		S.m = make(map[string]*state)
	}
	st, ok := S.m[K.State]
	if !ok {
		st = &state{name: K.State, groups: make(map[groupKey][]*chem.Config)}
		S.m[K.State] = st
		S.order = append(S.order, K.State)
	}
	g := groupKey{K.SampleType, K.Head}
	if _, ok := st.groups[g]; !ok {
		st.order = append(st.order, g)
	}
	st.groups[g] = append(st.groups[g], confs...)
}

func (S *states) each(f func(st *state, g groupKey)) {
	for _, name := range S.order {
		st := S.m[name]
		for _, g := range st.order {
			f(st, g)
		}
	}
}

func isReference(name string) bool {
	return name == ReferenceFile || name == ReferenceFile+chem.ZstdExt
}

//readReference reads the reference set from dir. It returns false if there is none.
func readReference(dir string) ([]*chem.Config, bool, error) {
	for _, name := range []string{ReferenceFile, ReferenceFile + chem.ZstdExt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		ref, err := chem.XYZFileRead(path)
		return ref, true, err
	}
	return nil, false, nil
}

//cutoff returns the number of the n records that go to the training set.
func cutoff(ratio float64, n int) int {
	return int(math.Floor(ratio * float64(n)))
}

//withRef returns a new slice with the records of part followed by those of ref.
func withRef(part, ref []*chem.Config) []*chem.Config {
	ret := make([]*chem.Config, 0, len(part)+len(ref))
	ret = append(ret, part...)
	return append(ret, ref...)
}

func energyStats(confs []*chem.Config) (float64, float64) {
	if len(confs) == 0 {
		return math.NaN(), math.NaN()
	}
	e := make([]float64, 0, len(confs))
	for _, C := range confs {
		v, err := C.FloatInfo(RefEnergyKey)
		if err == nil {
			e = append(e, v)
		}
	}
	if len(e) < 2 {
		if len(e) == 1 {
			return e[0], math.NaN()
		}
		return math.NaN(), math.NaN()
	}
	return stat.MeanStdDev(e, nil)
}

//Run groups the structure files in O.Src by state, sample type and head, shuffles every group and
//splits it into training and validation sets, which are written to O.Dst together with the
//reference set and a summary table. Files not matching the naming scheme are skipped and
//listed in the report. The first error aborts the run, leaving the files already
//written in place. The report is returned also when there is an error.
func Run(O *Options) (*Report, error) {
	if err := O.Check(); err != nil {
		return nil, err
	}
	lg := O.logger()
	rng := O.rand()
	R := new(Report)
	entries, err := os.ReadDir(O.Src)
	if err != nil {
		return R, err
	}
	if err = os.MkdirAll(O.Dst, 0755); err != nil {
		return R, err
	}
	ref, found, err := readReference(O.Src)
	if err != nil {
		return R, fmt.Errorf("reading reference set: %w", err)
	}
	if found {
		R.Reference = len(ref)
		R.count(ReferenceLabel, len(ref))
	}
	var groups states
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !IsStructureFile(name) || isReference(name) {
			continue
		}
		if O.Filter && !strings.Contains(name, O.Marker) {
			continue
		}
		K, err := ParseKey(name)
		if err != nil {
			lg.Printf("Skipping %s: %v", name, err)
			R.Skipped = append(R.Skipped, Skipped{name, err})
			continue
		}
		confs, err := chem.XYZFileRead(filepath.Join(O.Src, name))
		if err != nil {
			return R, err
		}
		stamped := make([]*chem.Config, len(confs))
		for i, C := range confs {
			stamped[i], err = Stamp(C)
			if err != nil {
				return R, fmt.Errorf("%s, record %d: %w", name, i, err)
			}
		}
		groups.add(K, stamped)
		R.count(K.SampleType, len(stamped))
	}
	var all []*chem.Config
	groups.each(func(st *state, g groupKey) {
		confs := st.groups[g]
		all = append(all, confs...)
		rng.Shuffle(len(confs), func(i, j int) { confs[i], confs[j] = confs[j], confs[i] })
		mean, std := energyStats(confs)
		if O.Duplicate {
			confs = append(confs[:len(confs):len(confs)], confs...)
			st.groups[g] = confs
		}
		K := Key{SampleType: g.sample, Head: g.head, State: st.name}
		R.Groups = append(R.Groups, GroupStats{Key: K, N: len(confs), Train: cutoff(O.Ratio, len(confs)), Mean: mean, Std: std})
	})
	if O.Duplicate {
		for i, v := range R.Counts {
			if v.Label != ReferenceLabel {
				R.Counts[i].N *= 2
			}
		}
	}
	if O.Mode == PerGroup || O.Mode == Both {
		var err error
		groups.each(func(st *state, g groupKey) {
			if err != nil {
				return
			}
			err = O.writeSplit(R, fmt.Sprintf("%s_%s", g.sample, g.head), st.groups[g], ref)
		})
		if err != nil {
			return R, err
		}
	}
	if O.Mode == Combined || O.Mode == Both {
		for _, name := range groups.order {
			st := groups.m[name]
			var confs []*chem.Config
			for _, g := range st.order {
				confs = append(confs, st.groups[g]...)
			}
			if err := O.writeSplit(R, name, confs, ref); err != nil {
				return R, err
			}
		}
	}
	if err = writeSummary(filepath.Join(O.Dst, SummaryFile), R.Counts); err != nil {
		return R, err
	}
	R.Written = append(R.Written, filepath.Join(O.Dst, SummaryFile))
	if O.Plot {
		if err = O.plot(R, all); err != nil {
			return R, err
		}
	}
	return R, nil
}

//writeSplit cuts confs and writes the train_<name> and validation_<name> files.
func (O *Options) writeSplit(R *Report, name string, confs, ref []*chem.Config) error {
	cut := cutoff(O.Ratio, len(confs))
	outs := []struct {
		prefix string
		confs  []*chem.Config
	}{
		{"train_", confs[:cut]},
		{"validation_", confs[cut:]},
	}
	for _, v := range outs {
		path := filepath.Join(O.Dst, v.prefix+name+O.ext())
		if err := chem.XYZFileWrite(path, withRef(v.confs, ref)); err != nil {
			return err
		}
		R.Written = append(R.Written, path)
	}
	O.logger().Printf("%s: %d training and %d validation records, plus %d references", name, cut, len(confs)-cut, len(ref))
	return nil
}

//writeSummary writes the table of records per sample type as CSV.
func writeSummary(path string, counts []Count) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"Sample", "Number of molecules"})
	for _, v := range counts {
		w.Write([]string{v.Label, strconv.Itoa(v.N)})
	}
	w.Flush()
	if err = w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (O *Options) plot(R *Report, all []*chem.Config) error {
	bars := make([]chemplot.Bar, len(R.Counts))
	for i, v := range R.Counts {
		bars[i] = chemplot.Bar{Label: v.Label, Value: float64(v.N)}
	}
	name := filepath.Join(O.Dst, "samples_info.png")
	if err := chemplot.SampleBars(bars, "Records per sample", name); err != nil {
		return err
	}
	R.Written = append(R.Written, name)
	if len(all) == 0 {
		return nil
	}
	name = filepath.Join(O.Dst, "energies.png")
	if err := chemplot.EnergyHistogram(all, 20, "Reference energies", name); err != nil {
		return err
	}
	R.Written = append(R.Written, name)
	return nil
}
