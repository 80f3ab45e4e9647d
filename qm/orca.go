/*
 * orca.go, part of mlprep.
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
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	chem "github.com/rmera/mlprep"
	v3 "github.com/rmera/mlprep/v3"
)

const orca = "ORCA"

//OrcaOutputExts are the text outputs kept when a calculation runs in a scratch directory.
//Large binary files (gbw, densities) are discarded.
var OrcaOutputExts = []string{".out", ".err", ".inp", ".xyz", "_trj.xyz", ".engrad", "_property.txt"}

//Note that the default methods and basis vary with each program, and even
//for a given program they are NOT considered part of the API, so they can always change.
type OrcaHandle struct {
	command   string
	inputname string
	wdir      string //where the input and outputs are
	scratch   string //parent of the scratch directories used by RunIn
	nCPU      int
}

//NewOrcaHandle returns an OrcaHandle with the default settings.
func NewOrcaHandle() *OrcaHandle {
	run := new(OrcaHandle)
	run.SetDefaults()
	return run
}

//OrcaHandle methods

//SetnCPU sets the number of CPU to be used
func (O *OrcaHandle) SetnCPU(cpu int) {
	O.nCPU = cpu
}

//SetName sets the name of the job, i.e. the input is name.inp and the output name.out
func (O *OrcaHandle) SetName(name string) {
	O.inputname = name
}

//SetCommand sets the path to the orca executable.
func (O *OrcaHandle) SetCommand(name string) {
	O.command = name
}

//SetWorkDir sets the directory where inputs are written, and programs run.
func (O *OrcaHandle) SetWorkDir(dir string) {
	O.wdir = dir
}

//SetScratch sets the directory under which RunIn creates its temporary directories.
//The empty string means the system's default temporary directory.
func (O *OrcaHandle) SetScratch(dir string) {
	O.scratch = dir
}

/*SetDefaults sets defaults for ORCA calculations. The job name is "orca", the
working directory the current one, and all the available CPU with a max of
8 are used. The ORCA command is set to $ORCA_PATH/orca, at least in
unix.*/
func (O *OrcaHandle) SetDefaults() {
	O.command = os.ExpandEnv("${ORCA_PATH}/orca")
	if O.command == "/orca" { //if ORCA_PATH was not defined
		O.command = "orca"
	}
	O.inputname = "orca"
	O.wdir = "."
	cpu := runtime.NumCPU()
	if cpu > 8 {
		cpu = 8
	}
	O.nCPU = cpu
}

func (O *OrcaHandle) file(ext string) string {
	return filepath.Join(O.wdir, O.inputname+ext)
}

//BuildInput builds an input for ORCA based int the data in atoms, coords and Q.
//returns only error.
func (O *OrcaHandle) BuildInput(coords *v3.Matrix, atoms chem.AtomMultiCharger, Q *Calc) error {
	if atoms == nil || coords == nil {
		return Error{ErrMissingCharges, orca, O.inputname, "", []string{"BuildInput"}, true, nil}
	}
	if coords.NVecs() != atoms.Len() {
		return Error{ErrMissingCharges, orca, O.inputname, fmt.Sprintf("%d atoms but %d coordinates", atoms.Len(), coords.NVecs()), []string{"BuildInput"}, true, nil}
	}
	if Q.Task == "" || Q.Method == "" || Q.Basis == "" {
		log.Printf("ORCA: incomplete calculation settings, defaults will be used where missing")
		Q = Q.Copy()
		Q.SetDefaults()
	}
	MainOptions := []string{"!", Q.Task, Q.Basis, Q.Method, Q.Others}
	mainline := strings.TrimSpace(strings.Join(MainOptions, " ")) + "\n"
	geom, err := O.buildGeom(Q)
	if err != nil {
		return Error{ErrBadConstraint, orca, O.inputname, err.Error(), []string{"buildGeom", "BuildInput"}, true, err}
	}
	pal := ""
	if O.nCPU > 1 {
		pal = fmt.Sprintf("%%pal nprocs %d end\n", O.nCPU)
	}
	mem := ""
	if Q.Memory != 0 {
		mem = fmt.Sprintf("%%MaxCore %d\n", Q.Memory)
	}
	tddft := ""
	if Q.TDDFT != nil {
		tddft = fmt.Sprintf("%%tddft\n   nroots %d\n   iroot %d\n", Q.TDDFT.NRoots, Q.TDDFT.IRoot)
		if Q.TDDFT.SpinFlip {
			tddft += "   sf true\n"
		}
		tddft += "end\n"
	}
	blocks := ""
	if Q.Blocks != "" {
		blocks = strings.TrimRight(Q.Blocks, "\n") + "\n"
	}
	//Now lets write the thing
	if O.inputname == "" {
		O.inputname = "orca"
	}
	file, err := os.Create(O.file(".inp"))
	if err != nil {
		return Error{ErrCantInput, orca, O.inputname, err.Error(), []string{"os.Create", "BuildInput"}, true, err}
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	fmt.Fprint(w, mainline)
	fmt.Fprint(w, pal)
	fmt.Fprint(w, mem)
	fmt.Fprint(w, geom)
	fmt.Fprint(w, tddft)
	fmt.Fprint(w, blocks)
	//Now the type of coords, charge and multiplicity
	fmt.Fprintf(w, "* xyz %d %d\n", atoms.Charge(), atoms.Multi())
	for i := 0; i < atoms.Len(); i++ {
		fmt.Fprintf(w, "%-2s  %14.8f %14.8f %14.8f\n", atoms.Atom(i).Symbol, coords.At(i, 0), coords.At(i, 1), coords.At(i, 2))
	}
	fmt.Fprintf(w, "*\n")
	if err := w.Flush(); err != nil {
		return Error{ErrCantInput, orca, O.inputname, err.Error(), []string{"BuildInput"}, true, err}
	}
	return nil
}

var iConstraintOrder = map[byte]int{
	'B': 2,
	'A': 3,
	'D': 4,
}

//buildGeom transforms the internal constraints and iteration limit in the Calc structure
//into an ORCA %geom block, or the empty string if there is nothing to set.
func (O *OrcaHandle) buildGeom(Q *Calc) (string, error) {
	if len(Q.IConstraints) == 0 && Q.MaxIter <= 0 {
		return "", nil
	}
	constraints := make([]string, 0, len(Q.IConstraints)+6)
	constraints = append(constraints, "%geom\n")
	if Q.MaxIter > 0 {
		constraints = append(constraints, fmt.Sprintf("   MaxIter %d\n", Q.MaxIter))
	}
	if len(Q.IConstraints) > 0 {
		constraints = append(constraints, "   Constraints\n")
		for _, val := range Q.IConstraints {
			if iConstraintOrder[val.Class] == 0 || iConstraintOrder[val.Class] != len(val.CAtoms) {
				return "", fmt.Errorf("Internal constraint %c with %d atoms", val.Class, len(val.CAtoms))
			}
			ats := make([]string, len(val.CAtoms))
			for i, v := range val.CAtoms {
				ats[i] = strconv.Itoa(v)
			}
			constraints = append(constraints, fmt.Sprintf("      {%c %s %2.3f C}\n", val.Class, strings.Join(ats, " "), val.Val))
		}
		constraints = append(constraints, "   end\n")
	}
	constraints = append(constraints, "end\n")
	return strings.Join(constraints, ""), nil
}

//Run runs the command given by the string O.command
//it waits or not for the result depending on wait.
//Not waiting for results works
//only for unix-compatible systems, as it uses bash and nohup.
func (O *OrcaHandle) Run(wait bool) (err error) {
	if wait {
		out, err := os.Create(O.file(".out"))
		if err != nil {
			return Error{ErrNotRunning, orca, O.inputname, err.Error(), []string{"os.Create", "Run"}, true, err}
		}
		defer out.Close()
		command := exec.Command(O.command, O.inputname+".inp")
		command.Dir = O.wdir
		command.Stdout = out
		errout, err := os.Create(O.file(".err"))
		if err == nil {
			defer errout.Close()
			command.Stderr = errout
		}
		err = command.Run()
		if err != nil {
			return Error{ErrNotRunning, orca, O.inputname, err.Error(), []string{"exec.Run", "Run"}, true, err}
		}
		return nil
	}
	command := exec.Command("sh", "-c", "nohup "+O.command+fmt.Sprintf(" %s.inp > %s.out &", O.inputname, O.inputname))
	command.Dir = O.wdir
	if err = command.Start(); err != nil {
		return Error{ErrNotRunning, orca, O.inputname, err.Error(), []string{"exec.Start", "Run"}, true, err}
	}
	return nil
}

//RunIn runs the calculation Q on the configuration C and waits for it. The job runs in
//a temporary directory, and only the text outputs are copied back to dir, which
//is created if needed. The temporary directory is always removed.
func (O *OrcaHandle) RunIn(dir string, C *chem.Config, Q *Calc) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Error{ErrCantInput, orca, O.inputname, err.Error(), []string{"os.MkdirAll", "RunIn"}, true, err}
	}
	tmpdir, err := os.MkdirTemp(O.scratch, "orca")
	if err != nil {
		return Error{ErrCantInput, orca, O.inputname, err.Error(), []string{"os.MkdirTemp", "RunIn"}, true, err}
	}
	defer os.RemoveAll(tmpdir)
	log.Printf("Calculation executing in %s", tmpdir)
	prevdir := O.wdir
	O.wdir = tmpdir
	defer func() { O.wdir = prevdir }()
	if err = O.BuildInput(C.Coords, C, Q); err != nil {
		return errDecorate(err, "RunIn")
	}
	runerr := O.Run(true)
	//The outputs are kept even if the run failed, they tell why.
	for _, ext := range OrcaOutputExts {
		src := O.file(ext)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(dir, O.inputname+ext)); err != nil {
			return Error{ErrCantInput, orca, O.inputname, "copying back outputs: " + err.Error(), []string{"copyFile", "RunIn"}, true, err}
		}
	}
	if runerr != nil {
		return errDecorate(runerr, "RunIn")
	}
	return nil
}

//RunSpinFlipIn is like RunIn, but the calculation uses a triplet reference
//and spin-flip TDDFT, as needed to describe the excited states with it. Neither C nor Q are modified.
func (O *OrcaHandle) RunSpinFlipIn(dir string, C *chem.Config, Q *Calc) error {
	sf := C.Copy()
	sf.SetMulti(3)
	q := Q.Copy()
	if q.TDDFT == nil {
		q.TDDFT = &TDDFT{NRoots: 1, IRoot: 1}
	}
	q.TDDFT.SpinFlip = true
	return errDecorate(O.RunIn(dir, sf, q), "RunSpinFlipIn")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

//OptimizedGeometry reads the latest geometry from an ORCA optimization. Returns the
//geometry or error. Returns the geometry AND error if the geometry read
//is not the product of a correctly ended ORCA calculation. In this case
//the error wraps ErrProbableProblem and is not critical.
func (O *OrcaHandle) OptimizedGeometry(atoms chem.Atomer) (*v3.Matrix, error) {
	confs, err := chem.XYZFileRead(O.file(".xyz"))
	if err != nil || len(confs) == 0 {
		return nil, Error{ErrNoGeometry, orca, O.inputname, "", []string{"OptimizedGeometry"}, true, err}
	}
	coords := confs[0].Coords
	if atoms != nil && coords.NVecs() != atoms.Len() {
		return nil, Error{ErrNoGeometry, orca, O.inputname, fmt.Sprintf("%d atoms in the geometry, %d expected", coords.NVecs(), atoms.Len()), []string{"OptimizedGeometry"}, true, nil}
	}
	if !O.orcaNormalTermination() {
		return coords, Error{ErrProbableProblem.Error(), orca, O.inputname, "", []string{"OptimizedGeometry"}, false, ErrProbableProblem}
	}
	return coords, nil
}

//Energy gets the energy, in eV, of a previous ORCA calculation, i.e. the last
//FINAL SINGLE POINT ENERGY in the output.
//Returns error if problem, and also if the energy returned that is product of an
//abnormally-terminated ORCA calculation (in this case error wraps ErrProbableProblem
//and is not critical).
func (O *OrcaHandle) Energy() (float64, error) {
	f, err := os.Open(O.file(".out"))
	if err != nil {
		return 0, Error{ErrNoEnergy, orca, O.inputname, err.Error(), []string{"os.Open", "Energy"}, true, err}
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var energy float64
	var found, normal bool
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "FINAL SINGLE POINT ENERGY") {
			fields := strings.Fields(line)
			energy, err = strconv.ParseFloat(fields[len(fields)-1], 64)
			if err != nil {
				return 0, Error{ErrNoEnergy, orca, O.inputname, err.Error(), []string{"strconv.ParseFloat", "Energy"}, true, err}
			}
			found = true
		}
		if strings.Contains(line, "ORCA TERMINATED NORMALLY") {
			normal = true
		}
	}
	if err = scanner.Err(); err != nil {
		return 0, Error{ErrNoEnergy, orca, O.inputname, err.Error(), []string{"scanner.Scan", "Energy"}, true, err}
	}
	if !found {
		return 0, Error{ErrNoEnergy, orca, O.inputname, "Output does not contain energy", []string{"Energy"}, true, nil}
	}
	energy *= chem.H2eV
	if !normal {
		return energy, Error{ErrProbableProblem.Error(), orca, O.inputname, "", []string{"Energy"}, false, ErrProbableProblem}
	}
	return energy, nil
}

//Forces reads the gradient from the .engrad file of a previous calculation and returns the
//forces, in eV/A.
func (O *OrcaHandle) Forces() (*v3.Matrix, error) {
	f, err := os.Open(O.file(".engrad"))
	if err != nil {
		return nil, Error{ErrNoForces, orca, O.inputname, err.Error(), []string{"os.Open", "Forces"}, true, err}
	}
	defer f.Close()
	values := make([]string, 0, 64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		values = append(values, line)
	}
	if err = scanner.Err(); err != nil {
		return nil, Error{ErrNoForces, orca, O.inputname, err.Error(), []string{"scanner.Scan", "Forces"}, true, err}
	}
	//the order is: number of atoms, energy, gradient (3N lines), atomic numbers and coordinates.
	if len(values) < 2 {
		return nil, Error{ErrNoForces, orca, O.inputname, "Truncated engrad file", []string{"Forces"}, true, nil}
	}
	natoms, err := strconv.Atoi(values[0])
	if err != nil || natoms < 1 || len(values) < 2+3*natoms {
		return nil, Error{ErrNoForces, orca, O.inputname, "Truncated engrad file", []string{"Forces"}, true, err}
	}
	grad := make([]float64, 3*natoms)
	for i, v := range values[2 : 2+3*natoms] {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, Error{ErrNoForces, orca, O.inputname, err.Error(), []string{"strconv.ParseFloat", "Forces"}, true, err}
		}
		grad[i] = -1 * g * chem.HBohr2eVA
	}
	forces, err := v3.NewMatrix(grad)
	if err != nil {
		return nil, Error{ErrNoForces, orca, O.inputname, err.Error(), []string{"v3.NewMatrix", "Forces"}, true, err}
	}
	if !forces.IsFinite() {
		return nil, Error{ErrNoForces, orca, O.inputname, "NaN or infinite gradient", []string{"Forces"}, true, nil}
	}
	return forces, nil
}

//inputGeometry reads the atoms, coordinates, charge and multiplicity from the
//"* xyz" block of the input file.
func (O *OrcaHandle) inputGeometry() (*chem.Config, error) {
	f, err := os.Open(O.file(".inp"))
	if err != nil {
		return nil, Error{ErrNoGeometry, orca, O.inputname, err.Error(), []string{"os.Open", "inputGeometry"}, true, err}
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var inblock bool
	var charge, multi int
	top := chem.NewTopology(0, 1)
	coords := make([]float64, 0, 30)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if !inblock {
			if len(fields) == 4 && fields[0] == "*" && strings.ToLower(fields[1]) == "xyz" {
				c, err1 := strconv.Atoi(fields[2])
				m, err2 := strconv.Atoi(fields[3])
				if err1 != nil || err2 != nil {
					return nil, Error{ErrNoGeometry, orca, O.inputname, "Bad charge or multiplicity", []string{"inputGeometry"}, true, nil}
				}
				charge, multi = c, m
				inblock = true
			}
			continue
		}
		if len(fields) > 0 && fields[0] == "*" {
			break
		}
		if len(fields) < 4 {
			continue
		}
		top.AppendAtom(chem.NewAtom(fields[0]))
		for _, v := range fields[1:4] {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, Error{ErrNoGeometry, orca, O.inputname, err.Error(), []string{"strconv.ParseFloat", "inputGeometry"}, true, err}
			}
			coords = append(coords, x)
		}
	}
	if top.Len() == 0 {
		return nil, Error{ErrNoGeometry, orca, O.inputname, "No xyz block in input", []string{"inputGeometry"}, true, nil}
	}
	top.SetCharge(charge)
	top.SetMulti(multi)
	mcoords, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, Error{ErrNoGeometry, orca, O.inputname, err.Error(), []string{"inputGeometry"}, true, err}
	}
	return chem.NewConfig(top, mcoords)
}

//orcaNormalTermination checks that an ORCA calculation has terminated normally.
func (O *OrcaHandle) orcaNormalTermination() bool {
	f, err := os.Open(O.file(".out"))
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "ORCA TERMINATED NORMALLY") {
			return true
		}
	}
	return false
}

//Load reconstructs the configuration of a previously completed ORCA calculation stored
//in dir, with the energy and, if a gradient was computed, the forces attached.
//The geometry is taken from orca.xyz or, if not present, from orca.inp.
//If the calculation didn't terminate normally, the configuration is returned together
//with a non-critical error wrapping ErrProbableProblem.
func Load(dir string) (*chem.Config, error) {
	O := NewOrcaHandle()
	O.SetWorkDir(dir)
	return O.Load()
}

//Load reconstructs the configuration of the calculation in the handle's working directory.
func (O *OrcaHandle) Load() (*chem.Config, error) {
	C, err := O.inputGeometry()
	if err != nil {
		return nil, errDecorate(err, "Load")
	}
	if _, err := os.Stat(O.file(".xyz")); err == nil {
		coords, err := O.OptimizedGeometry(C)
		if IsCritical(err) {
			return nil, errDecorate(err, "Load")
		}
		C.Coords = coords
	}
	energy, eerr := O.Energy()
	if IsCritical(eerr) {
		return nil, errDecorate(eerr, "Load")
	}
	C.Calc = &chem.Results{Energy: energy}
	if _, err := os.Stat(O.file(".engrad")); err == nil {
		forces, err := O.Forces()
		if err != nil {
			return nil, errDecorate(err, "Load")
		}
		if forces.NVecs() != C.Len() {
			return nil, Error{ErrNoForces, orca, O.inputname, fmt.Sprintf("%d forces for %d atoms", forces.NVecs(), C.Len()), []string{"Load"}, true, nil}
		}
		C.Calc.Forces = forces
	}
	if eerr != nil {
		return C, errDecorate(eerr, "Load")
	}
	return C, nil
}

//errDecorate decorates the error with the caller's name before returning it,
//if it implements chem.Error. Other errors are returned untouched.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if err2, ok := err.(chem.Error); ok {
		err2.Decorate(caller)
		return err2
	}
	return err
}
