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

//Package qm implements communication with QM programs
//in such a way that the calculation settings are as separated
//as possible from the choice of QM program to perform that
//calculation. Currently only ORCA is supported, which must be
//obtained independently from its distributors.
//
//Calculations can be run in a scratch directory, keeping only the
//text outputs in the final directory, and their results can later be
//loaded back as a chem.Config with the energy and forces attached.
package qm
