/*
 * datasets.go, part of mlprep.
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

package chemplot

import (
	"fmt"
	"image/color"

	chem "github.com/rmera/mlprep"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//Bar is one labeled bar in a bar chart.
type Bar struct {
	Label string
	Value float64
}

var barColor = color.RGBA{R: 20, G: 80, B: 200, A: 255}

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

//SampleBars plots a bar chart with the number of records of each sample type
//and saves it to filename. The format is given by the extension of filename.
func SampleBars(bars []Bar, title, filename string) error {
	if len(bars) == 0 {
		return fmt.Errorf("SampleBars: no data to plot")
	}
	values := make(plotter.Values, len(bars))
	names := make([]string, len(bars))
	for i, v := range bars {
		values[i] = v.Value
		names[i] = v.Label
	}
	p := basicPlot(title, "", "Records")
	b, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	b.LineStyle.Width = vg.Length(0)
	b.Color = barColor
	p.Add(b)
	p.NominalX(names...)
	width := vg.Length(len(bars))*vg.Centimeter + 6*vg.Centimeter
	if err := p.Save(width, 4*vg.Inch, filename); err != nil {
		return err
	}
	return nil
}

//Energies returns the target energies of the configurations, in the same order.
//Configurations with no energy are skipped.
func Energies(confs []*chem.Config) []float64 {
	ret := make([]float64, 0, len(confs))
	for _, C := range confs {
		if e, ok := chem.TargetEnergy(C); ok {
			ret = append(ret, e)
		}
	}
	return ret
}

//EnergyHistogram plots a histogram of the target energies of confs, with the given number
//of bins, and saves it to filename.
func EnergyHistogram(confs []*chem.Config, bins int, title, filename string) error {
	e := Energies(confs)
	if len(e) == 0 {
		return fmt.Errorf("EnergyHistogram: no energies to plot")
	}
	if bins < 1 {
		bins = 1
	}
	p := basicPlot(title, "Energy (eV)", "Records")
	h, err := plotter.NewHist(plotter.Values(e), bins)
	if err != nil {
		return err
	}
	h.FillColor = barColor
	p.Add(h)
	if err := p.Save(5*vg.Inch, 4*vg.Inch, filename); err != nil {
		return err
	}
	return nil
}
