/*
 * files.go, part of mlprep.
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

package chem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	v3 "github.com/rmera/mlprep/v3"
	"gonum.org/v1/gonum/mat"
)

//Keys with a special meaning in the comment line of an extended XYZ file.
const (
	propertiesKey = "Properties"
	energyKey     = "energy"
	forcesKey     = "forces"
	defaultProps  = "species:S:1:pos:R:3"
)

//ZstdExt is the extension that marks an XYZ file as zstd-compressed.
const ZstdExt = ".zst"

//XYZ read family

//xyzColumn describes one per-atom property in the Properties field.
type xyzColumn struct {
	name  string
	kind  byte //S, R, I or L
	ncols int
}

//parseProperties parses the value of the Properties key, i.e. species:S:1:pos:R:3:forces:R:3
func parseProperties(s string) ([]xyzColumn, error) {
	fields := strings.Split(s, ":")
	if len(fields)%3 != 0 {
		return nil, fmt.Errorf("Ill formatted Properties field: %s", s)
	}
	cols := make([]xyzColumn, 0, len(fields)/3)
	for i := 0; i < len(fields); i += 3 {
		n, err := strconv.Atoi(fields[i+2])
		if err != nil || n < 1 || len(fields[i+1]) != 1 {
			return nil, fmt.Errorf("Ill formatted Properties field: %s", s)
		}
		kind := fields[i+1][0]
		if !strings.ContainsRune("SRIL", rune(kind)) {
			return nil, fmt.Errorf("Unknown property type %c in %s", kind, s)
		}
		cols = append(cols, xyzColumn{name: fields[i], kind: kind, ncols: n})
	}
	if len(cols) < 2 || cols[0].name != "species" || cols[1].name != "pos" || cols[1].ncols != 3 {
		return nil, fmt.Errorf("Properties must start with species and pos: %s", s)
	}
	return cols, nil
}

//parseComment splits the comment line of an extended XYZ frame into
//key=value pairs. Values can be quoted with double quotes. A key without
//a value is taken as a true logical. A line without any '=' is a free
//comment, and gives an empty map.
func parseComment(line string) (map[string]string, error) {
	ret := make(map[string]string)
	if !strings.Contains(line, "=") {
		return ret, nil
	}
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		start := i
		for i < len(line) && line[i] != '=' && line[i] != ' ' && line[i] != '\t' {
			i++
		}
		key := line[start:i]
		if i >= len(line) || line[i] != '=' {
			ret[key] = "T"
			continue
		}
		i++ //the '='
		var val string
		if i < len(line) && line[i] == '"' {
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("Unterminated quoted value for key %s", key)
			}
			val = line[i+1 : i+1+end]
			i = i + end + 2
		} else {
			start = i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' {
				i++
			}
			val = line[start:i]
		}
		ret[key] = val
	}
	return ret, nil
}

//openRead opens the file name for reading, transparently decompressing it
//if the name ends in ZstdExt. The returned function closes everything.
func openRead(name string) (io.Reader, func(), error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(name, ZstdExt) {
		return f, func() { f.Close() }, nil
	}
	d, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return d, func() { d.Close(); f.Close() }, nil
}

//XYZFileRead reads all the frames of an (extended) XYZ file. Files whose name ends
//in .zst are decompressed with zstd on the fly.
func XYZFileRead(xyzname string) ([]*Config, error) {
	r, closer, err := openRead(xyzname)
	if err != nil {
		return nil, CError{msg: "Unable to open file", filename: xyzname, deco: []string{"XYZFileRead"}, err: err}
	}
	defer closer()
	confs, err := XYZRead(r)
	if err != nil {
		if e, ok := err.(CError); ok {
			e.filename = xyzname
			err = e
		}
		return nil, errDecorate(err, "XYZFileRead")
	}
	return confs, nil
}

//XYZRead reads all the frames of an (extended) XYZ stream, in order.
//An empty stream gives an empty slice and no error.
func XYZRead(xyzp io.Reader) ([]*Config, error) {
	xyz := bufio.NewReader(xyzp)
	confs := make([]*Config, 0, 1)
	for frame := 0; ; frame++ {
		C, err := xyzReadFrame(xyz, frame)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errDecorate(err, "XYZRead")
		}
		confs = append(confs, C)
	}
	return confs, nil
}

//xyzReadFrame reads one frame. It returns io.EOF if there are no more frames.
func xyzReadFrame(xyz *bufio.Reader, frame int) (*Config, error) {
	var line string
	var err error
	//blank lines between (or after) frames are skipped
	for {
		line, err = xyz.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			break
		}
		if err != nil {
			return nil, io.EOF
		}
	}
	natoms, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || natoms < 1 {
		return nil, CError{msg: fmt.Sprintf("Ill formatted XYZ file, frame %d: bad number of atoms", frame), deco: []string{"xyzReadFrame"}}
	}
	comment, err := xyz.ReadString('\n')
	if err != nil && comment == "" {
		return nil, CError{msg: fmt.Sprintf("Ill formatted XYZ file, frame %d: missing comment line", frame), deco: []string{"xyzReadFrame"}}
	}
	info, err := parseComment(strings.TrimRight(comment, "\r\n"))
	if err != nil {
		return nil, CError{msg: fmt.Sprintf("Frame %d: %s", frame, err.Error()), deco: []string{"xyzReadFrame"}}
	}
	props := defaultProps
	if p, ok := info[propertiesKey]; ok {
		props = p
		delete(info, propertiesKey)
	}
	cols, err := parseProperties(props)
	if err != nil {
		return nil, CError{msg: fmt.Sprintf("Frame %d: %s", frame, err.Error()), deco: []string{"xyzReadFrame"}}
	}
	width := 0
	for _, c := range cols {
		width += c.ncols
	}
	top := NewTopology(0, 1)
	coords := make([]float64, 0, 3*natoms)
	numeric := make(map[string][]float64)
	for i := 0; i < natoms; i++ {
		line, err = xyz.ReadString('\n')
		if err != nil && line == "" {
			return nil, CError{msg: fmt.Sprintf("Frame %d: expected %d atoms, found %d", frame, natoms, i), deco: []string{"xyzReadFrame"}}
		}
		fields := strings.Fields(line)
		if len(fields) < width {
			return nil, CError{msg: fmt.Sprintf("Frame %d: line for atom %d ill formed", frame, i), deco: []string{"xyzReadFrame"}}
		}
		pos := 0
		for _, c := range cols {
			vals := fields[pos : pos+c.ncols]
			pos += c.ncols
			switch c.name {
			case "species":
				top.AppendAtom(NewAtom(vals[0]))
				continue
			case "pos":
				for _, v := range vals {
					f, err := strconv.ParseFloat(v, 64)
					if err != nil {
						return nil, CError{msg: fmt.Sprintf("Frame %d: bad coordinate for atom %d", frame, i), deco: []string{"xyzReadFrame"}, err: err}
					}
					coords = append(coords, f)
				}
				continue
			}
			if c.kind == 'S' {
				continue //string columns other than species are not kept.
			}
			for _, v := range vals {
				f, err := parseNumeric(v, c.kind)
				if err != nil {
					return nil, CError{msg: fmt.Sprintf("Frame %d: bad %s value for atom %d", frame, c.name, i), deco: []string{"xyzReadFrame"}, err: err}
				}
				numeric[c.name] = append(numeric[c.name], f)
			}
		}
	}
	mcoords, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, errDecorate(err, "xyzReadFrame")
	}
	C, err := NewConfig(top, mcoords)
	if err != nil {
		return nil, errDecorate(err, "xyzReadFrame")
	}
	for _, c := range cols {
		data, ok := numeric[c.name]
		if !ok {
			continue
		}
		A := mat.NewDense(natoms, c.ncols, data)
		if c.name == forcesKey && c.ncols == 3 {
			if _, hasE := info[energyKey]; hasE {
				C.Calc = &Results{Forces: v3.Dense2Matrix(A)}
				continue
			}
		}
		C.Arrays[c.name] = A
	}
	if e, ok := info[energyKey]; ok {
		energy, err := strconv.ParseFloat(e, 64)
		if err != nil {
			return nil, CError{msg: fmt.Sprintf("Frame %d: bad energy %s", frame, e), deco: []string{"xyzReadFrame"}, err: err}
		}
		if C.Calc == nil {
			C.Calc = new(Results)
		}
		C.Calc.Energy = energy
		delete(info, energyKey)
	}
	C.Info = info
	return C, nil
}

func parseNumeric(v string, kind byte) (float64, error) {
	if kind == 'L' {
		switch v {
		case "T", "True", "true":
			return 1, nil
		case "F", "False", "false":
			return 0, nil
		}
		return 0, fmt.Errorf("Bad logical value %s", v)
	}
	return strconv.ParseFloat(v, 64)
}

//XYZ write family

//nopCloser lets a plain file be used where a compressor is expected.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

//XYZFileWrite writes the configurations, in order, to an extended XYZ file with name xyzname,
//which will be created (or overwritten). If the name ends in .zst, the file is zstd-compressed.
func XYZFileWrite(xyzname string, confs []*Config) error {
	out, err := os.Create(xyzname)
	if err != nil {
		return CError{msg: "Unable to create file", filename: xyzname, deco: []string{"XYZFileWrite"}, err: err}
	}
	defer out.Close()
	var w io.WriteCloser = nopCloser{out}
	if strings.HasSuffix(xyzname, ZstdExt) {
		w, err = zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return CError{msg: "Unable to start zstd compression", filename: xyzname, deco: []string{"XYZFileWrite"}, err: err}
		}
	}
	if err = XYZWrite(w, confs); err != nil {
		w.Close()
		return errDecorate(err, "XYZFileWrite")
	}
	if err = w.Close(); err != nil {
		return CError{msg: "Unable to finish compression", filename: xyzname, deco: []string{"XYZFileWrite"}, err: err}
	}
	return out.Close()
}

//XYZWrite writes the configurations, in order, as extended XYZ frames to out.
func XYZWrite(out io.Writer, confs []*Config) error {
	bw := bufio.NewWriter(out)
	for i, C := range confs {
		if err := xyzWriteFrame(bw, C); err != nil {
			return CError{msg: fmt.Sprintf("Can't write frame %d: %s", i, err.Error()), deco: []string{"XYZWrite"}, err: err}
		}
	}
	return bw.Flush()
}

func quoteValue(v string) string {
	if v == "" || strings.ContainsAny(v, " \t=") {
		return `"` + v + `"`
	}
	return v
}

func xyzWriteFrame(out *bufio.Writer, C *Config) error {
	if err := C.Corrupted(); err != nil {
		return err
	}
	arrayNames := make([]string, 0, len(C.Arrays))
	for k := range C.Arrays {
		arrayNames = append(arrayNames, k)
	}
	sort.Strings(arrayNames)
	props := []string{defaultProps}
	hasForces := C.Calc != nil && C.Calc.Forces != nil
	if hasForces {
		props = append(props, forcesKey+":R:3")
	}
	for _, k := range arrayNames {
		_, c := C.Arrays[k].Dims()
		props = append(props, fmt.Sprintf("%s:R:%d", k, c))
	}
	comment := []string{propertiesKey + "=" + strings.Join(props, ":")}
	if C.Calc != nil {
		comment = append(comment, energyKey+"="+strconv.FormatFloat(C.Calc.Energy, 'f', -1, 64))
	}
	infoKeys := make([]string, 0, len(C.Info))
	for k := range C.Info {
		infoKeys = append(infoKeys, k)
	}
	sort.Strings(infoKeys)
	for _, k := range infoKeys {
		comment = append(comment, k+"="+quoteValue(C.Info[k]))
	}
	fmt.Fprintf(out, "%d\n%s\n", C.Len(), strings.Join(comment, " "))
	for i := 0; i < C.Len(); i++ {
		c := C.Coords.RawRowView(i)
		fmt.Fprintf(out, "%-2s %16.8f %16.8f %16.8f", C.Atom(i).Symbol, c[0], c[1], c[2])
		if hasForces {
			f := C.Calc.Forces.RawRowView(i)
			fmt.Fprintf(out, " %16.8f %16.8f %16.8f", f[0], f[1], f[2])
		}
		for _, k := range arrayNames {
			for _, v := range C.Arrays[k].RawRowView(i) {
				fmt.Fprintf(out, " %16.8f", v)
			}
		}
		if _, err := fmt.Fprint(out, "\n"); err != nil {
			return err
		}
	}
	return nil
}
