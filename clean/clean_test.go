package clean

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	chem "github.com/rmera/mlprep"
)

const pretrained = `3
Properties=species:S:1:pos:R:3:forces:R:3 energy=-2080.5 free_energy=-2080.5 pbc="F F F"
O   0.000  0.000  0.117  0.10 -0.20 0.30
H   0.000  0.757 -0.469  0.01  0.02 0.03
H   0.000 -0.757 -0.469 -0.11  0.18 -0.33
2
Properties=species:S:1:pos:R:3:forces:R:3 energy=-12000.1 pbc="F F F"
Cl  0.000  0.000  0.000  0.00  0.00 0.10
H   0.000  0.000  1.270  0.00  0.00 -0.10
4
Properties=species:S:1:pos:R:3:forces:R:3 energy=-1530.2 pbc="F F F"
N   0.000  0.000  0.000  0.00  0.00 0.00
H   0.000  0.940  0.380  0.00  0.00 0.00
H   0.810 -0.470  0.380  0.00  0.00 0.00
H  -0.810 -0.470  0.380  0.00  0.00 0.00
`

func TestRelabel(Te *testing.T) {
	dir := Te.TempDir()
	in := filepath.Join(dir, "pretrained.xyz")
	if err := os.WriteFile(in, []byte(pretrained), 0644); err != nil {
		Te.Fatal(err)
	}
	out := filepath.Join(dir, "relabeled.xyz")
	if err := Relabel(in, out); err != nil {
		Te.Fatal(err)
	}
	confs, err := chem.XYZFileRead(out)
	if err != nil {
		Te.Fatal(err)
	}
	if len(confs) != 3 {
		Te.Fatalf("Expected 3 configurations, got %d", len(confs))
	}
	C := confs[0]
	if C.Calc != nil {
		Te.Error("After relabeling there should be no results attached")
	}
	if e, err := C.FloatInfo(chem.RefEnergyKey); err != nil || e != -2080.5 {
		Te.Errorf("Wrong %s: %f %v", chem.RefEnergyKey, e, err)
	}
	if C.Info["free_energy"] != "-2080.5" {
		Te.Errorf("Other energies should not be renamed: %v", C.Info)
	}
	if f := C.Arrays[chem.RefForcesKey]; f == nil || f.At(2, 2) != -0.33 {
		Te.Errorf("Wrong %s", chem.RefForcesKey)
	}
	//in place
	if err := Relabel(in, in); err != nil {
		Te.Fatal(err)
	}
	raw, _ := os.ReadFile(in)
	if strings.Contains(string(raw), " energy=") || strings.Contains(string(raw), ":forces:") {
		Te.Errorf("Relabeling in place failed:\n%s", raw)
	}
}

func TestFilterAndSample(Te *testing.T) {
	dir := Te.TempDir()
	in := filepath.Join(dir, "pretrained.xyz")
	if err := os.WriteFile(in, []byte(pretrained), 0644); err != nil {
		Te.Fatal(err)
	}
	confs, err := chem.XYZFileRead(in)
	if err != nil {
		Te.Fatal(err)
	}
	good := FilterElements(confs, []string{"C", "O", "N", "H"})
	if len(good) != 2 || good[1].Len() != 4 {
		Te.Fatalf("Wrong filtering: %d configurations", len(good))
	}
	s, err := Sample(good, 2, rand.New(rand.NewSource(1)))
	if err != nil {
		Te.Fatal(err)
	}
	if len(s) != 2 || s[0] == s[1] {
		Te.Error("Sampling should be without replacement")
	}
	if _, err = Sample(good, 3, nil); err == nil {
		Te.Error("Sampling more than available should give an error")
	}
	if s, err = Sample(good, 0, nil); err != nil || len(s) != 0 {
		Te.Errorf("An empty sample should be fine: %v", err)
	}
}

func TestClean(Te *testing.T) {
	dir := Te.TempDir()
	O := new(Options)
	O.SetDefaults()
	O.In = filepath.Join(dir, "test_large_neut_all.xyz")
	O.Out = filepath.Join(dir, "cleaned_pt_train.xyz")
	O.N = 1
	O.Seed = 3
	if err := os.WriteFile(O.In, []byte(pretrained), 0644); err != nil {
		Te.Fatal(err)
	}
	n, err := Clean(O)
	if err != nil {
		Te.Fatal(err)
	}
	if n != 2 {
		Te.Errorf("Expected 2 configurations with only C, O, N, H, got %d", n)
	}
	confs, err := chem.XYZFileRead(O.Out)
	if err != nil || len(confs) != 1 {
		Te.Fatalf("Wrong output: %v", err)
	}
	if _, err := confs[0].FloatInfo(chem.RefEnergyKey); err != nil {
		Te.Error("The output should be relabeled")
	}
	O.N = 5
	if _, err = Clean(O); err == nil {
		Te.Error("Asking for too many configurations should give an error")
	}
}
