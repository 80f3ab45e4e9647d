/*
 * key.go, part of mlprep.
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

package split

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	chem "github.com/rmera/mlprep"
)

//ErrNoStateKey is returned, wrapped, by ParseKey for names that don't end in a -es<N> state identifier.
var ErrNoStateKey = errors.New("no es<N> state key in file name")

//Extensions of the structure files considered. The longest ones go first.
var structureExts = []string{".xyz" + chem.ZstdExt, ".xyz"}

var stateRe = regexp.MustCompile(`-es(\d+)$`)

//Key identifies the group a structure file belongs to.
type Key struct {
	SampleType string //the part of the name before the first "_"
	Head       string //the part of the name after the last "_", without extension
	State      string //normalized state, i.e. es1 for both es1 and es01
}

func (K Key) String() string {
	return fmt.Sprintf("%s/%s_%s", K.State, K.SampleType, K.Head)
}

//trimExt returns name without its structure-file extension, and
//whether it had one.
func trimExt(name string) (string, bool) {
	for _, ext := range structureExts {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return name, false
}

//IsStructureFile returns true if name has one of the extensions of the structure files.
func IsStructureFile(name string) bool {
	_, ok := trimExt(name)
	return ok
}

//ParseKey obtains the group key from a file name like water_a_foo-es1.xyz. It returns
//an error wrapping ErrNoStateKey if the name, without extension, doesn't end in -es<N>.
func ParseKey(filename string) (Key, error) {
	trimmed, _ := trimExt(filename)
	m := stateRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Key{}, fmt.Errorf("%w: %s", ErrNoStateKey, filename)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %s: %v", ErrNoStateKey, filename, err)
	}
	K := Key{State: "es" + strconv.Itoa(n)}
	K.SampleType, _, _ = strings.Cut(trimmed, "_")
	K.Head = trimmed[strings.LastIndex(trimmed, "_")+1:]
	return K, nil
}
