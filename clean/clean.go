/*
 * clean.go, part of mlprep.
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

//Package clean prepares pretrained datasets to be mixed with new data: the
//energies and forces are renamed to the names used for the training targets,
//configurations with unwanted elements are removed, and a random subset
//of the rest is taken.
package clean

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	chem "github.com/rmera/mlprep"
)

//Relabel copies in to out, renaming the energy property to REF_energy and the forces
//per-atom property to REF_forces. It works on the text, so it doesn't need to understand
//the file, but the files can't be compressed.
func Relabel(in, out string) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()
	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err = RelabelStream(src, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	//in and out can be the same file
	return os.Rename(tmp, out)
}

//RelabelStream is like Relabel, but reads from in and writes to out.
func RelabelStream(in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	w := bufio.NewWriter(out)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if _, werr := w.WriteString(relabelLine(line)); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

func relabelLine(line string) string {
	if strings.Contains(line, "energy") {
		line = strings.ReplaceAll(line, " energy", " "+chem.RefEnergyKey)
	}
	if strings.Contains(line, ":forces") {
		line = strings.ReplaceAll(line, ":forces", ":"+chem.RefForcesKey)
	}
	return line
}

//FilterElements returns the configurations in which every atom is one of
//the allowed elements.
func FilterElements(confs []*chem.Config, allowed []string) []*chem.Config {
	ret := make([]*chem.Config, 0, len(confs))
	for _, C := range confs {
		if chem.OnlyElements(C, allowed) {
			ret = append(ret, C)
		}
	}
	return ret
}

//Sample returns n configurations, taken at random from confs without replacement.
//It returns an error if there are fewer than n configurations.
func Sample(confs []*chem.Config, n int, rng *rand.Rand) ([]*chem.Config, error) {
	if n < 0 || n > len(confs) {
		return nil, fmt.Errorf("can't sample %d configurations out of %d", n, len(confs))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	perm := rng.Perm(len(confs))
	ret := make([]*chem.Config, n)
	for i := range ret {
		ret[i] = confs[perm[i]]
	}
	return ret, nil
}

//Options for Clean.
type Options struct {
	In       string   `yaml:"in"`
	Out      string   `yaml:"out"`
	Elements []string `yaml:"elements"`
	N        int      `yaml:"n"`
	Seed     int64    `yaml:"seed"` //0 for a different sample each time
}

//SetDefaults keeps only C, O, N and H, and samples 500 configurations.
func (O *Options) SetDefaults() {
	O.Elements = []string{"C", "O", "N", "H"}
	O.N = 500
	O.Seed = 0
}

//Clean relabels the input file in place, as the pretrained sets need to
//be relabeled anyway to be used, keeps the configurations with only the allowed
//elements and writes a random sample of them to the output file. It returns the
//number of configurations that passed the filter.
func Clean(O *Options) (int, error) {
	if err := Relabel(O.In, O.In); err != nil {
		return 0, err
	}
	confs, err := chem.XYZFileRead(O.In)
	if err != nil {
		return 0, err
	}
	good := FilterElements(confs, O.Elements)
	var rng *rand.Rand
	if O.Seed != 0 {
		rng = rand.New(rand.NewSource(O.Seed))
	}
	sample, err := Sample(good, O.N, rng)
	if err != nil {
		return len(good), err
	}
	return len(good), chem.XYZFileWrite(O.Out, sample)
}
