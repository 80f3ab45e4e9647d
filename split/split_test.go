/*
 * split_test.go, part of mlprep.
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
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	chem "github.com/rmera/mlprep"
	v3 "github.com/rmera/mlprep/v3"
)

const nref = 2

//writeFrames writes n hydrogen molecules, each with an "id" property, to dir/name.
func writeFrames(Te *testing.T, dir, name string, n int, withResults bool) {
	confs := make([]*chem.Config, n)
	for i := range confs {
		coords, err := v3.FromRows([][]float64{{0, 0, 0}, {0, 0, 0.74 + 0.01*float64(i)}})
		if err != nil {
			Te.Fatal(err)
		}
		C, err := chem.NewConfig(chem.NewTopology(0, 1, chem.NewAtom("H"), chem.NewAtom("H")), coords)
		if err != nil {
			Te.Fatal(err)
		}
		C.Info["id"] = fmt.Sprintf("%s#%d", name, i)
		if withResults {
			forces, _ := v3.FromRows([][]float64{{0, 0, 0.1 * float64(i)}, {0, 0, -0.1 * float64(i)}})
			C.Calc = &chem.Results{Energy: -31.7 + 0.01*float64(i), Forces: forces}
		}
		confs[i] = C
	}
	if err := chem.XYZFileWrite(filepath.Join(dir, name), confs); err != nil {
		Te.Fatal(err)
	}
}

func writeReference(Te *testing.T, dir string) {
	ref := make([]*chem.Config, 0, nref)
	for i, s := range []string{"H", "O"} {
		C, err := chem.NewConfig(chem.NewTopology(0, 1, chem.NewAtom(s)), v3.Zeros(1))
		if err != nil {
			Te.Fatal(err)
		}
		C.Info["id"] = fmt.Sprintf("E0s#%d", i)
		C.Info["config_type"] = "IsolatedAtom"
		C.SetFloatInfo(RefEnergyKey, -13.6*float64(i+1))
		ref = append(ref, C)
	}
	if err := chem.XYZFileWrite(filepath.Join(dir, ReferenceFile), ref); err != nil {
		Te.Fatal(err)
	}
}

//exampleDir prepares the water_a_foo-es1 (10 records) water_b_bar-es1 (5 records) dataset.
func exampleDir(Te *testing.T) string {
	dir := Te.TempDir()
	writeReference(Te, dir)
	writeFrames(Te, dir, "water_a_foo-es1.xyz", 10, true)
	writeFrames(Te, dir, "water_b_bar-es1.xyz", 5, true)
	return dir
}

func testOptions(Te *testing.T, src string, mode Mode) *Options {
	O := NewOptions(src, filepath.Join(Te.TempDir(), "out"))
	O.Filter = false
	O.Mode = mode
	O.Rand = rand.New(rand.NewSource(42))
	O.Logger = log.New(io.Discard, "", 0)
	return O
}

//readIDs returns the ids of the records in the file, and how many of them are references.
func readIDs(Te *testing.T, path string) ([]string, int) {
	confs, err := chem.XYZFileRead(path)
	if err != nil {
		Te.Fatal(err)
	}
	ids := make([]string, 0, len(confs))
	var refs int
	for _, C := range confs {
		id := C.Info["id"]
		if strings.HasPrefix(id, "E0s#") {
			refs++
			continue
		}
		if _, err := C.FloatInfo(RefEnergyKey); err != nil {
			Te.Errorf("Record %s in %s has no %s", id, path, RefEnergyKey)
		}
		if f := C.Arrays[RefForcesKey]; f == nil {
			Te.Errorf("Record %s in %s has no %s", id, path, RefForcesKey)
		}
		ids = append(ids, id)
	}
	return ids, refs
}

func checkSplit(Te *testing.T, dir, name string, train, validation int) []string {
	tr, trefs := readIDs(Te, filepath.Join(dir, "train_"+name+".xyz"))
	va, vrefs := readIDs(Te, filepath.Join(dir, "validation_"+name+".xyz"))
	if len(tr) != train || len(va) != validation {
		Te.Errorf("%s: expected %d+%d records, got %d+%d", name, train, validation, len(tr), len(va))
	}
	if trefs != nref || vrefs != nref {
		Te.Errorf("%s: the reference set should be in both files, got %d and %d", name, trefs, vrefs)
	}
	ret := append(tr, va...)
	sort.Strings(ret)
	return ret
}

func expectedIDs(names map[string]int) []string {
	ret := make([]string, 0, 10)
	for name, n := range names {
		for i := 0; i < n; i++ {
			ret = append(ret, fmt.Sprintf("%s#%d", name, i))
		}
	}
	sort.Strings(ret)
	return ret
}

func TestParseKey(Te *testing.T) {
	cases := []struct {
		name string
		key  Key
	}{
		{"water_a_foo-es1.xyz", Key{"water", "foo-es1", "es1"}},
		{"thymine_sf_run-es02.xyz.zst", Key{"thymine", "run-es02", "es2"}},
		{"oxirane-es3.xyz", Key{"oxirane-es3", "oxirane-es3", "es3"}},
		{"oxirane_md_sf-es10", Key{"oxirane", "sf-es10", "es10"}},
	}
	for _, c := range cases {
		K, err := ParseKey(c.name)
		if err != nil {
			Te.Errorf("%s: %v", c.name, err)
			continue
		}
		if K != c.key {
			Te.Errorf("%s: expected %v, got %v", c.name, c.key, K)
		}
	}
	for _, name := range []string{"water_a_foo.xyz", "water_es1_foo.xyz", "E0s.xyz", "water_a_foo-es.xyz", "water_a_bones1.xyz", "water_a_fooes1.xyz.zst"} {
		if _, err := ParseKey(name); !errors.Is(err, ErrNoStateKey) {
			Te.Errorf("%s: expected ErrNoStateKey, got %v", name, err)
		}
	}
}

//TestCombined checks the 10+5 records example, with ratio 0.8.
func TestCombined(Te *testing.T) {
	src := exampleDir(Te)
	O := testOptions(Te, src, Combined)
	R, err := Run(O)
	if err != nil {
		Te.Fatal(err)
	}
	got := checkSplit(Te, O.Dst, "es1", 12, 3)
	want := expectedIDs(map[string]int{"water_a_foo-es1.xyz": 10, "water_b_bar-es1.xyz": 5})
	if strings.Join(got, " ") != strings.Join(want, " ") {
		Te.Errorf("Records lost or repeated:\n%v\n%v", got, want)
	}
	if _, err := os.Stat(filepath.Join(O.Dst, "train_water_foo-es1.xyz")); err == nil {
		Te.Error("Per-group files should not be written in combined mode")
	}
	raw, err := os.ReadFile(filepath.Join(O.Dst, SummaryFile))
	if err != nil {
		Te.Fatal(err)
	}
	if string(raw) != "Sample,Number of molecules\nE0s,2\nwater,15\n" {
		Te.Errorf("Wrong summary:\n%s", raw)
	}
	if R.Reference != nref || len(R.Groups) != 2 || len(R.Skipped) != 0 {
		Te.Errorf("Wrong report %+v", R)
	}
	if R.Groups[0].Key.Head != "foo-es1" || R.Groups[0].N != 10 || R.Groups[0].Train != 8 {
		Te.Errorf("Wrong group report %+v", R.Groups[0])
	}
	if R.Groups[1].Mean > -31.6 || R.Groups[1].Mean < -31.7 || R.Groups[1].Std <= 0 {
		Te.Errorf("Wrong energy statistics %+v", R.Groups[1])
	}
}

func TestPerGroup(Te *testing.T) {
	src := exampleDir(Te)
	O := testOptions(Te, src, PerGroup)
	if _, err := Run(O); err != nil {
		Te.Fatal(err)
	}
	foo := checkSplit(Te, O.Dst, "water_foo-es1", 8, 2)
	bar := checkSplit(Te, O.Dst, "water_bar-es1", 4, 1)
	if strings.Join(foo, " ") != strings.Join(expectedIDs(map[string]int{"water_a_foo-es1.xyz": 10}), " ") {
		Te.Errorf("The foo group was not reconstructed: %v", foo)
	}
	if strings.Join(bar, " ") != strings.Join(expectedIDs(map[string]int{"water_b_bar-es1.xyz": 5}), " ") {
		Te.Errorf("The bar group was not reconstructed: %v", bar)
	}
	if _, err := os.Stat(filepath.Join(O.Dst, "train_es1.xyz")); err == nil {
		Te.Error("Combined files should not be written in per-group mode")
	}
}

//TestBoth checks that the combined outputs contain the same records as the per-group ones.
func TestBoth(Te *testing.T) {
	src := exampleDir(Te)
	writeFrames(Te, src, "water_a_foo-es2.xyz", 3, true)
	O := testOptions(Te, src, Both)
	if _, err := Run(O); err != nil {
		Te.Fatal(err)
	}
	combined := checkSplit(Te, O.Dst, "es1", 12, 3)
	groups := append(checkSplit(Te, O.Dst, "water_foo-es1", 8, 2), checkSplit(Te, O.Dst, "water_bar-es1", 4, 1)...)
	sort.Strings(groups)
	if strings.Join(combined, " ") != strings.Join(groups, " ") {
		Te.Errorf("Combined and per-group outputs differ:\n%v\n%v", combined, groups)
	}
	es2 := checkSplit(Te, O.Dst, "es2", 2, 1)
	if len(es2) != 3 || !strings.HasPrefix(es2[0], "water_a_foo-es2.xyz#") {
		Te.Errorf("States should not be mixed: %v", es2)
	}
	checkSplit(Te, O.Dst, "water_foo-es2", 2, 1)
}

func TestDuplicate(Te *testing.T) {
	src := exampleDir(Te)
	O := testOptions(Te, src, PerGroup)
	O.Duplicate = true
	R, err := Run(O)
	if err != nil {
		Te.Fatal(err)
	}
	foo := checkSplit(Te, O.Dst, "water_foo-es1", 16, 4)
	checkSplit(Te, O.Dst, "water_bar-es1", 8, 2)
	seen := make(map[string]int)
	for _, id := range foo {
		seen[id]++
	}
	for id, n := range seen {
		if n != 2 {
			Te.Errorf("%s appears %d times", id, n)
		}
	}
	if len(R.Counts) != 2 || R.Counts[0] != (Count{ReferenceLabel, nref}) || R.Counts[1] != (Count{"water", 30}) {
		Te.Errorf("Wrong counts %v", R.Counts)
	}
}

func TestSkipAndFilter(Te *testing.T) {
	src := exampleDir(Te)
	writeFrames(Te, src, "oxirane_sf_run-es2.xyz", 5, true)
	writeFrames(Te, src, "oxirane_sf_nostate.xyz", 5, true)
	writeFrames(Te, src, "notes.txt", 1, true)
	O := testOptions(Te, src, PerGroup)
	O.Filter = true
	R, err := Run(O)
	if err != nil {
		Te.Fatal(err)
	}
	if len(R.Skipped) != 1 || R.Skipped[0].File != "oxirane_sf_nostate.xyz" || !errors.Is(R.Skipped[0].Err, ErrNoStateKey) {
		Te.Errorf("Wrong skipped files %+v", R.Skipped)
	}
	checkSplit(Te, O.Dst, "oxirane_run-es2", 4, 1)
	files, _ := filepath.Glob(filepath.Join(O.Dst, "*water*"))
	if len(files) != 0 {
		Te.Errorf("Files without the marker should be filtered out: %v", files)
	}
	for _, v := range R.Counts {
		if v.Label == "water" {
			Te.Error("Filtered files should not be counted")
		}
	}
}

func TestNoResults(Te *testing.T) {
	src := exampleDir(Te)
	writeFrames(Te, src, "water_c_plain-es1.xyz", 3, false)
	_, err := Run(testOptions(Te, src, PerGroup))
	if !errors.Is(err, ErrNoResults) {
		Te.Errorf("Expected ErrNoResults, got %v", err)
	}
}

//TestEmptyGroup checks that an empty file gives outputs with only the references.
func TestEmptyGroup(Te *testing.T) {
	src := Te.TempDir()
	writeReference(Te, src)
	if err := os.WriteFile(filepath.Join(src, "water_a_empty-es3.xyz"), nil, 0644); err != nil {
		Te.Fatal(err)
	}
	O := testOptions(Te, src, PerGroup)
	if _, err := Run(O); err != nil {
		Te.Fatal(err)
	}
	checkSplit(Te, O.Dst, "water_empty-es3", 0, 0)
}

func TestNoReference(Te *testing.T) {
	src := Te.TempDir()
	writeFrames(Te, src, "water_a_foo-es1.xyz", 10, true)
	O := testOptions(Te, src, Combined)
	O.Compress = true
	R, err := Run(O)
	if err != nil {
		Te.Fatal(err)
	}
	if R.Reference != 0 || len(R.Counts) != 1 || R.Counts[0].Label != "water" {
		Te.Errorf("There should be no reference row: %v", R.Counts)
	}
	tr, refs := readIDs(Te, filepath.Join(O.Dst, "train_es1.xyz.zst"))
	if len(tr) != 8 || refs != 0 {
		Te.Errorf("Wrong compressed training set: %d records, %d references", len(tr), refs)
	}
}

func TestSeed(Te *testing.T) {
	src := exampleDir(Te)
	var orders [2]string
	for i := range orders {
		O := testOptions(Te, src, Combined)
		O.Rand = nil
		O.Seed = 7
		if _, err := Run(O); err != nil {
			Te.Fatal(err)
		}
		confs, err := chem.XYZFileRead(filepath.Join(O.Dst, "train_es1.xyz"))
		if err != nil {
			Te.Fatal(err)
		}
		for _, C := range confs {
			orders[i] += C.Info["id"] + " "
		}
	}
	if orders[0] != orders[1] {
		Te.Errorf("The same seed should give the same split:\n%s\n%s", orders[0], orders[1])
	}
}

func TestOptions(Te *testing.T) {
	path := filepath.Join(Te.TempDir(), "split.yaml")
	conf := "src: data/thymine/isolated\ndst: processed/thymine/isolated\nduplicate: true\nmode: combined\nseed: 3\n"
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		Te.Fatal(err)
	}
	O, err := LoadOptions(path)
	if err != nil {
		Te.Fatal(err)
	}
	if O.Ratio != 0.8 || !O.Filter || O.Marker != "sf" || !O.Duplicate || O.Mode != Combined || O.Seed != 3 {
		Te.Errorf("Wrong options %+v", O)
	}
	O.Ratio = 1.5
	if O.Check() == nil {
		Te.Error("A ratio larger than 1 should not pass the check")
	}
	O.Ratio = 0.5
	O.Mode = "sideways"
	if O.Check() == nil {
		Te.Error("An unknown mode should not pass the check")
	}
	if err := os.WriteFile(path, []byte("ratio: 2\n"), 0644); err != nil {
		Te.Fatal(err)
	}
	if _, err = LoadOptions(path); err == nil {
		Te.Error("LoadOptions should check the options")
	}
}
