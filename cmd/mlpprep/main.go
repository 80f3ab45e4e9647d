/*
 * main.go, part of mlprep.
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

//mlpprep runs the ORCA calculations that produce the data for a system, and collects
//them, together with the isolated-atom energies, into the unprocessed datasets.
//The job is described in a YAML file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	chem "github.com/rmera/mlprep"
	"github.com/rmera/mlprep/prep"
	"github.com/rmera/mlprep/qm"
	"gopkg.in/yaml.v3"
)

var verb int

//LogV prints the d arguments to stderr if level is smaller or equal to
//the verbosity level.
func LogV(level int, d ...interface{}) {
	if level <= verb {
		fmt.Fprintln(os.Stderr, d...)
	}
}

//Job is the content of the YAML file.
type Job struct {
	Molecule string `yaml:"molecule"`
	Kind     string `yaml:"kind"` //sf (isolated system) or md
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	E0s      string `yaml:"e0s"` //directory for the isolated-atom calculations
	States   []int  `yaml:"states"`

	//starting geometry for the scans, and the atoms involved (starting from 0)
	Geometry string    `yaml:"geometry"`
	Bond     [2]int    `yaml:"bond"`
	Angle    [3]int    `yaml:"angle"`
	Lengths  prep.Grid `yaml:"lengths"`
	Angles   prep.Grid `yaml:"angles"`

	Method string `yaml:"method"`
	Basis  string `yaml:"basis"`
	NProcs int    `yaml:"nprocs"`
	Memory int    `yaml:"memory"`
}

func readJob(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	J := &Job{Kind: prep.SpinFlip, States: []int{1, 2}}
	if err = yaml.NewDecoder(bufio.NewReader(f)).Decode(J); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return J, nil
}

func (J *Job) driver() *prep.Driver {
	D := prep.NewDriver()
	D.Calc.Method = J.Method
	D.Calc.Basis = J.Basis
	D.Calc.Memory = J.Memory
	D.Calc.SetDefaults()
	if J.NProcs > 0 {
		D.Orca.SetnCPU(J.NProcs)
	}
	if verb < 2 {
		D.Logger = log.New(io.Discard, "", 0)
	}
	return D
}

func (J *Job) geometry() (*chem.Config, error) {
	confs, err := chem.XYZFileRead(J.Geometry)
	if err != nil {
		return nil, err
	}
	if len(confs) == 0 {
		return nil, fmt.Errorf("no geometry in %s", J.Geometry)
	}
	return confs[0], nil
}

//collect gathers the results for each state and writes them, and the reference energies
//of all the elements present, to the output directory.
func collect(J *Job, D *prep.Driver) error {
	var data prep.States
	var err error
	if J.Kind == prep.MD {
		data, err = prep.CollectMD(J.Input, J.States, D.Logger)
	} else {
		data, err = prep.CollectIsolated(J.Input, J.States, D.Logger)
	}
	if err != nil {
		return err
	}
	if err = prep.WriteStates(J.Output, J.Molecule, J.Kind, data, J.States); err != nil {
		return err
	}
	for _, i := range data.Indexes() {
		LogV(2, fmt.Sprintf("State %d: %d configurations", i, len(data[i])))
	}
	species := chem.Species(data.All())
	e0s, err := D.ReferenceEnergies(species, J.E0s)
	if err != nil {
		return err
	}
	return chem.XYZFileWrite(filepath.Join(J.Output, "E0s.xyz"), e0s)
}

func main() {
	task := flag.String("task", "collect", "What to do: anglescan, bondanglescan, excited, snapshots or collect")
	flag.IntVar(&verb, "v", 1, "Level of verbosity")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  %s: [flags] job.yaml\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	J, err := readJob(args[0])
	if err != nil {
		log.Fatal(err)
	}
	D := J.driver()
	switch *task {
	case "anglescan":
		var C *chem.Config
		if C, err = J.geometry(); err == nil {
			err = D.AngleScan(C, J.Angle[0], J.Angle[1], J.Angle[2], J.Angles, J.Output)
		}
	case "bondanglescan":
		var C *chem.Config
		if C, err = J.geometry(); err == nil {
			err = D.BondAngleScan(C, J.Bond, J.Lengths, J.Angle, J.Angles, J.Output)
		}
	case "excited":
		err = D.ExcitedStates(J.Input, J.Output, len(J.States))
	case "snapshots":
		var failed int
		failed, err = D.Snapshots(J.Input, J.Output, len(J.States))
		if failed > 0 {
			LogV(1, fmt.Sprintf("%d snapshot calculations failed", failed))
		}
	case "collect":
		err = collect(J, D)
	default:
		err = fmt.Errorf("unknown task %s", *task)
	}
	if err != nil {
		if !qm.IsCritical(err) {
			LogV(1, "Warning:", err)
			return
		}
		log.Fatal(err)
	}
	LogV(1, "Done")
}
