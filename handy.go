/*
 * handy.go, part of mlprep.
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

import "sort"

//Species returns the distinct element symbols present in any of the configurations, sorted.
func Species(confs []*Config) []string {
	seen := make(map[string]bool)
	ret := make([]string, 0, 4)
	for _, C := range confs {
		for _, s := range C.Species() {
			if !seen[s] {
				seen[s] = true
				ret = append(ret, s)
			}
		}
	}
	sort.Strings(ret)
	return ret
}

//OnlyElements returns true if every atom in C is of one of the given elements.
func OnlyElements(C *Config, elements []string) bool {
	for _, s := range C.Species() {
		if !isInString(elements, s) {
			return false
		}
	}
	return true
}

//isInString returns true if test is in container, false otherwise.
func isInString(container []string, test string) bool {
	if container == nil {
		return false
	}
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}

//Names of the properties holding the target energy and forces in a training set.
const (
	RefEnergyKey = "REF_energy"
	RefForcesKey = "REF_forces"
)

//TargetEnergy returns the energy of the attached results or, if there are none, the
//REF_energy property. The bool is false if C has neither.
func TargetEnergy(C *Config) (float64, bool) {
	if C.Calc != nil {
		return C.Calc.Energy, true
	}
	e, err := C.FloatInfo(RefEnergyKey)
	return e, err == nil
}
