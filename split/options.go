/*
 * options.go, part of mlprep.
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
	"bufio"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

//Mode selects which outputs are written. PerGroup cuts each group on its own, while Combined
//cuts the concatenation of the groups of a state once, so the number of training records of a
//state can differ between the two by the rounding of each cut.
type Mode string

const (
	PerGroup Mode = "per-group" //one train/validation pair for each sample type and head
	Combined Mode = "combined"  //one train/validation pair for each state
	Both     Mode = "both"
)

//ReferenceFile is the name of the file with the isolated-atom reference energies.
const ReferenceFile = "E0s.xyz"

//SummaryFile is the name of the table with the number of records per sample type.
const SummaryFile = "samples_info.csv"

//Options contains the parameters of a split. It can be read from a YAML file with
//LoadOptions, or built by hand. In the latter case, SetDefaults should be called first.
type Options struct {
	//Src is the directory with the structure files.
	Src string `yaml:"src"`

	//Dst is the directory where the outputs are written. It is created if needed.
	Dst string `yaml:"dst"`

	//Ratio is the fraction of each group that goes to the training set.
	Ratio float64 `yaml:"ratio"`

	//Duplicate makes every group (but not the reference set) appear twice.
	Duplicate bool `yaml:"duplicate"`

	//Filter skips the files whose names don't contain Marker.
	Filter bool   `yaml:"filter"`
	Marker string `yaml:"marker"`

	Mode Mode `yaml:"mode"`

	//Compress writes zstd-compressed outputs (.xyz.zst)
	Compress bool `yaml:"compress"`

	//Plot writes a bar chart of the summary table and a histogram of the energies.
	Plot bool `yaml:"plot"`

	//Seed for the shuffling. 0 means a different shuffle each time. Ignored if Rand is set.
	Seed int64 `yaml:"seed"`

	Rand   *rand.Rand  `yaml:"-"`
	Logger *log.Logger `yaml:"-"` //nil means the standard logger
}

//NewOptions returns options with the defaults set, to split the files in src into dst.
func NewOptions(src, dst string) *Options {
	O := new(Options)
	O.SetDefaults()
	O.Src = src
	O.Dst = dst
	return O
}

//SetDefaults sets a 0.8 ratio, keeping only the spin-flip ("sf") files, with no duplication and
//per-group outputs. The directories are not changed.
func (O *Options) SetDefaults() {
	O.Ratio = 0.8
	O.Duplicate = false
	O.Filter = true
	O.Marker = "sf"
	O.Mode = PerGroup
	O.Compress = false
	O.Plot = false
	O.Seed = 0
}

//Check returns an error if the options are not usable.
func (O *Options) Check() error {
	if O.Src == "" || O.Dst == "" {
		return fmt.Errorf("source and destination directories must be given")
	}
	if O.Ratio < 0 || O.Ratio > 1 {
		return fmt.Errorf("ratio must be between 0 and 1, not %f", O.Ratio)
	}
	if O.Filter && O.Marker == "" {
		return fmt.Errorf("filtering requires a marker")
	}
	switch O.Mode {
	case PerGroup, Combined, Both:
	default:
		return fmt.Errorf("unknown mode %q", O.Mode)
	}
	return nil
}

func (O *Options) rand() *rand.Rand {
	if O.Rand == nil {
		seed := O.Seed
		if seed == 0 {
			seed = rand.Int63()
		}
		O.Rand = rand.New(rand.NewSource(seed))
	}
	return O.Rand
}

func (O *Options) logger() *log.Logger {
	if O.Logger == nil {
		return log.Default()
	}
	return O.Logger
}

func (O *Options) ext() string {
	if O.Compress {
		return structureExts[0]
	}
	return structureExts[1]
}

//LoadOptions reads options from a YAML file. The fields not present in the file
//keep their default values. The options are checked before returning.
func LoadOptions(path string) (*Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	O := new(Options)
	O.SetDefaults()
	dec := yaml.NewDecoder(bufio.NewReader(f))
	if err = dec.Decode(O); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err = O.Check(); err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}
	return O, nil
}
