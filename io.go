/*
Copyright © 2019 the lesthermo authors.
This file is part of lesthermo.

lesthermo is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

lesthermo is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with lesthermo.  If not, see <http://www.gnu.org/licenses/>.
*/

package lesthermo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/interp"
)

// ncVar is a variable to be written to a NetCDF file.
type ncVar struct {
	name, longName, units string
	dims                  []string
	data                  *sparse.DenseArray
}

// writeNetCDF writes the given variables to w. attrs holds the global
// attributes. Variables are written in the order given.
func writeNetCDF(w *os.File, dims []string, lengths []int, attrs map[string]interface{}, vars []ncVar) error {
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "comment", "lesthermo output file")
	for _, name := range sortedKeys(attrs) {
		h.AddAttribute("", name, attrs[name])
	}
	for _, v := range vars {
		h.AddVariable(v.name, v.dims, []float32{0})
		h.AddAttribute(v.name, "long_name", v.longName)
		h.AddAttribute(v.name, "units", v.units)
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, v := range vars {
		if err = writeNCF(f, v.name, v.data); err != nil {
			return fmt.Errorf("lesthermo: writing variable %s to netcdf file: %w", v.name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// writeNCF writes data to variable Var of f.
func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}

	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data32)
	return err
}

// createNetCDF creates the file at path and writes the given variables to it.
func createNetCDF(path string, dims []string, lengths []int, attrs map[string]interface{}, vars []ncVar) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lesthermo: creating output file: %w", err)
	}
	if err := writeNetCDF(w, dims, lengths, attrs, vars); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadNetCDF reads the named variable from a NetCDF file written by this
// package.
func ReadNetCDF(r cdf.ReaderWriterAt, name string) (*sparse.DenseArray, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("lesthermo: opening netcdf file: %w", err)
	}
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("lesthermo: variable %s not in netcdf file", name)
	}
	data := sparse.ZerosDense(dims...)
	tmp := make([]float32, len(data.Elements))
	if _, err = f.Reader(name, nil, nil).Read(tmp); err != nil {
		return nil, fmt.Errorf("lesthermo: reading netcdf variable %s: %w", name, err)
	}
	for i, v := range tmp {
		data.Elements[i] = float64(v)
	}
	return data, nil
}

// Profiles holds vertical profiles of initial conditions.
type Profiles struct {
	// Z holds the heights of the profile points [m].
	Z []float64

	// Vars holds the profile values, by variable name.
	Vars map[string][]float64
}

// ReadProfiles reads whitespace-separated columns of profile data. The
// first line holds the column names, the first of which must be "z".
// Blank lines and lines starting with '#' are skipped.
func ReadProfiles(r io.Reader) (*Profiles, error) {
	s := bufio.NewScanner(r)
	var names []string
	p := &Profiles{Vars: make(map[string][]float64)}
	line := 0
	for s.Scan() {
		line++
		txt := strings.TrimSpace(s.Text())
		if txt == "" || strings.HasPrefix(txt, "#") {
			continue
		}
		cols := strings.Fields(txt)
		if names == nil {
			if cols[0] != "z" {
				return nil, fmt.Errorf("lesthermo: profile file: first column must be z but is %s", cols[0])
			}
			names = cols
			continue
		}
		if len(cols) != len(names) {
			return nil, fmt.Errorf("lesthermo: profile file line %d: %d columns but header has %d",
				line, len(cols), len(names))
		}
		for i, c := range cols {
			v, err := strconv.ParseFloat(c, 64)
			if err != nil {
				return nil, fmt.Errorf("lesthermo: profile file line %d: %w", line, err)
			}
			if i == 0 {
				p.Z = append(p.Z, v)
			} else {
				p.Vars[names[i]] = append(p.Vars[names[i]], v)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("lesthermo: reading profile file: %w", err)
	}
	if len(p.Z) < 2 {
		return nil, fmt.Errorf("lesthermo: profile file has %d levels; need at least 2", len(p.Z))
	}
	return p, nil
}

// Interpolate returns the named profile linearly interpolated to the
// full levels of g. Only the interior levels are set; values above and
// below the profile are held constant.
func (p *Profiles) Interpolate(g *Grid, name string) ([]float64, error) {
	v, ok := p.Vars[name]
	if !ok {
		return nil, &ConfigError{Option: "fields.profile", Value: name,
			Reason: "variable missing from profile file"}
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(p.Z, v); err != nil {
		return nil, fmt.Errorf("lesthermo: interpolating profile %s: %w", name, err)
	}
	o := make([]float64, g.Kcells)
	for k := g.Kstart; k < g.Kend; k++ {
		o[k] = pl.Predict(g.Z[k])
	}
	return o, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
