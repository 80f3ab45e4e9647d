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

//mlpsplit processes the unprocessed datasets of each system into training and
//validation sets. The input directory has one subdirectory per system, each of them with
//one subdirectory per type of data (isolated, molecular_dynamics...). The same structure
//is created in the output directory.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/rmera/mlprep/split"
)

var verb int

//LogV prints the d arguments to stderr if level is smaller or equal to
//the verbosity level.
func LogV(level int, d ...interface{}) {
	if level <= verb {
		fmt.Fprintln(os.Stderr, d...)
	}
}

func main() {
	cfg := flag.String("c", "", "YAML file with the split options. The flags given override it")
	in := flag.String("in", "mace-suite/data/unprocessed_datasets", "Directory with one subdirectory per system")
	out := flag.String("out", "mace-suite/data/processed_datasets", "Output directory")
	ratio := flag.Float64("ratio", 0.8, "Fraction of each group that goes to the training set")
	dup := flag.Bool("dup", true, "Duplicate every group")
	filter := flag.Bool("filter", true, "Use only the files whose names contain the marker")
	marker := flag.String("marker", "sf", "Marker for the filter")
	mode := flag.String("mode", string(split.PerGroup), "Outputs to write: per-group, combined or both")
	seed := flag.Int64("seed", 0, "Seed for the shuffling, 0 for a random one")
	compress := flag.Bool("zst", false, "Write zstd-compressed outputs")
	plot := flag.Bool("plot", false, "Plot the number of records and the energies of each dataset")
	flag.IntVar(&verb, "v", 1, "Level of verbosity")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  %s: [flags]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	O := split.NewOptions(*in, *out)
	O.Duplicate = true
	if *cfg != "" {
		var err error
		O, err = split.LoadOptions(*cfg)
		if err != nil {
			log.Fatal(err)
		}
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, f func()) {
		if *cfg == "" || set[name] {
			f()
		}
	}
	override("in", func() { O.Src = *in })
	override("out", func() { O.Dst = *out })
	override("ratio", func() { O.Ratio = *ratio })
	override("dup", func() { O.Duplicate = *dup })
	override("filter", func() { O.Filter = *filter })
	override("marker", func() { O.Marker = *marker })
	override("mode", func() { O.Mode = split.Mode(*mode) })
	override("seed", func() { O.Seed = *seed })
	override("zst", func() { O.Compress = *compress })
	override("plot", func() { O.Plot = *plot })
	if err := O.Check(); err != nil {
		log.Fatal(err)
	}
	if verb < 2 {
		O.Logger = log.New(io.Discard, "", 0)
	}
	root, dst := O.Src, O.Dst
	systems, err := os.ReadDir(root)
	if err != nil {
		log.Fatal(err)
	}
	for _, system := range systems {
		if !system.IsDir() {
			continue
		}
		types, err := os.ReadDir(filepath.Join(root, system.Name()))
		if err != nil {
			log.Fatal(err)
		}
		for _, t := range types {
			if !t.IsDir() {
				continue
			}
			O.Src = filepath.Join(root, system.Name(), t.Name())
			O.Dst = filepath.Join(dst, system.Name(), t.Name())
			LogV(1, "Processing", O.Src)
			R, err := split.Run(O)
			if err != nil {
				log.Fatalf("%s: %v", O.Src, err)
			}
			report(R)
		}
	}
}

func report(R *split.Report) {
	for _, s := range R.Skipped {
		LogV(1, "  Skipped:", s.Err)
	}
	for _, c := range R.Counts {
		LogV(2, fmt.Sprintf("  %-20s %d", c.Label, c.N))
	}
	for _, g := range R.Groups {
		std := "-"
		if !math.IsNaN(g.Std) {
			std = fmt.Sprintf("%.4f", g.Std)
		}
		LogV(3, fmt.Sprintf("  %-30s %5d records, %5d for training, energy %.4f +/- %s eV", g.Key, g.N, g.Train, g.Mean, std))
	}
	LogV(2, fmt.Sprintf("  %d files written", len(R.Written)))
}
