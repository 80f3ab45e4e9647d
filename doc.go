/*
 * doc.go, part of mlprep.
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

/*Package chem is the main package of mlprep, a set of tools to prepare the training
data of machine-learning interatomic potentials. It provides atom, topology and
configuration structures, and facilities for reading and writing the extended XYZ
files used to exchange configurations with energies and forces.



	**mlprep Capabilities**


    Reads/writes plain and extended XYZ files, optionally zstd-compressed (.xyz.zst).

    Keeps per-configuration properties (energies, labels) and per-atom properties
	(forces, charges) alongside the coordinates.

    Generates input for, runs and recovers energies and forces from ORCA calculations
	(package qm), including spin-flip TDDFT excited states.

    Collects the results of batches of calculations into datasets, and computes the
	isolated-atom reference energies (package prep).

    Groups, shuffles, duplicates and splits datasets into training and validation
	sets, keyed by the file names (package split).

    Cleans and subsamples pretrained datasets (package clean) and plots dataset
	summaries (package chemplot, uses the gonum plot library).


Coordinates and forces are kept in a v3.Matrix, based on gonum's mat.Dense. Each row of a
v3.Matrix represents one point in space.*/
package chem
