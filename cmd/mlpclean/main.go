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

//mlpclean relabels a pretrained dataset, keeps the configurations with only some elements
//and writes a random sample of them.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rmera/mlprep/clean"
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
	O := new(clean.Options)
	O.SetDefaults()
	elements := flag.String("elements", strings.Join(O.Elements, ","), "Comma-separated list of the elements allowed")
	n := flag.Int("n", O.N, "Number of configurations to sample")
	seed := flag.Int64("seed", 0, "Seed for the sampling, 0 for a random one")
	flag.IntVar(&verb, "v", 1, "Level of verbosity")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n  %s: [flags] pretrained.xyz cleaned.xyz\n\nThe input file is relabeled in place.\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(1)
	}
	O.In, O.Out = args[0], args[1]
	O.Elements = strings.Split(*elements, ",")
	O.N = *n
	O.Seed = *seed
	LogV(2, "Cleaning", O.In, "keeping", O.Elements)
	good, err := clean.Clean(O)
	if err != nil {
		log.Fatal(err)
	}
	LogV(1, fmt.Sprintf("%d configurations with only %s, %d written to %s", good, *elements, O.N, O.Out))
}
