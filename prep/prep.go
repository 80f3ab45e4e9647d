/*
 * prep.go, part of mlprep.
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
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	chem "github.com/rmera/mlprep"
	"github.com/rmera/mlprep/qm"
)

//ErrNoData is returned when a collection produced no configurations at all.
var ErrNoData = errors.New("no data found")

//Kinds of dataset, used in the names of the files written.
const (
	SpinFlip = "sf" //isolated-system spin-flip TDDFT calculations
	MD       = "md" //spin-flip calculations on MD snapshots
)

//States maps an excited state index to the configurations computed for it.
type States map[int][]*chem.Config

//Indexes returns the states present, sorted.
func (S States) Indexes() []int {
	ret := make([]int, 0, len(S))
	for k := range S {
		ret = append(ret, k)
	}
	sort.Ints(ret)
	return ret
}

//All returns the configurations of every state, in state order.
func (S States) All() []*chem.Config {
	var ret []*chem.Config
	for _, i := range S.Indexes() {
		ret = append(ret, S[i]...)
	}
	return ret
}

//StateIndex obtains the state from a directory name like state_2_angle_60.00 or
//sf-es_2, i.e. the second "_"-separated field.
func StateIndex(name string) (int, error) {
	fields := strings.Split(name, "_")
	if len(fields) < 2 {
		return 0, fmt.Errorf("no state index in %s", name)
	}
	return strconv.Atoi(fields[1])
}

func wanted(states []int, i int) bool {
	for _, v := range states {
		if v == i {
			return true
		}
	}
	return false
}

//subdirs returns the names of the directories in dir, sorted.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ret = append(ret, e.Name())
		}
	}
	return ret, nil
}

//load reads a finished calculation. Results of calculations that didn't end normally
//are kept, with a warning sent to lg.
func load(dir string, lg *log.Logger) (*chem.Config, error) {
	C, err := qm.Load(dir)
	if qm.IsCritical(err) {
		return nil, fmt.Errorf("loading %s: %w", dir, err)
	}
	if err != nil {
		lg.Printf("Warning: %s: %v", dir, err)
	}
	return C, nil
}

//CollectIsolated loads the calculations in the subdirectories of dir, which are named
//like state_<N>_..., into the given states. Directories for other states, or whose
//names don't contain a state index, are ignored. Warnings go to lg, or to the
//standard logger if lg is nil.
func CollectIsolated(dir string, states []int, lg *log.Logger) (States, error) {
	if lg == nil {
		lg = log.Default()
	}
	runs, err := subdirs(dir)
	if err != nil {
		return nil, err
	}
	ret := make(States)
	for _, run := range runs {
		i, err := StateIndex(run)
		if err != nil || !wanted(states, i) {
			continue
		}
		C, err := load(filepath.Join(dir, run), lg)
		if err != nil {
			return nil, err
		}
		ret[i] = append(ret[i], C)
	}
	return ret, nil
}

//CollectMD loads the calculations on MD snapshots. Each subdirectory of dir is named
//like sf-es_<N> and holds one directory per calculation for the state N. Warnings
//are handled as in CollectIsolated.
func CollectMD(dir string, states []int, lg *log.Logger) (States, error) {
	if lg == nil {
		lg = log.Default()
	}
	sdirs, err := subdirs(dir)
	if err != nil {
		return nil, err
	}
	ret := make(States)
	for _, sdir := range sdirs {
		i, err := StateIndex(sdir)
		if err != nil || !wanted(states, i) {
			continue
		}
		runs, err := subdirs(filepath.Join(dir, sdir))
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			C, err := load(filepath.Join(dir, sdir, run), lg)
			if err != nil {
				return nil, err
			}
			ret[i] = append(ret[i], C)
		}
	}
	return ret, nil
}

//StateFile returns the name of the file for the given molecule, kind and state, i.e.
//oxirane_sf-es1.xyz.
func StateFile(molecule, kind string, state int) string {
	return fmt.Sprintf("%s_%s-es%d.xyz", molecule, kind, state)
}

//WriteStates writes one file per requested state to outDir, which is created if needed.
//States with no configurations give empty files. It returns an error wrapping ErrNoData if
//none of the states has configurations.
func WriteStates(outDir, molecule, kind string, data States, states []int) error {
	var total int
	for _, i := range states {
		total += len(data[i])
	}
	if total == 0 {
		return fmt.Errorf("%w for %s (%s)", ErrNoData, molecule, kind)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	for _, i := range states {
		if err := chem.XYZFileWrite(filepath.Join(outDir, StateFile(molecule, kind, i)), data[i]); err != nil {
			return err
		}
	}
	return nil
}
