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
	"fmt"
	"os"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Level types of vertical profiles.
const (
	FullLevel = "z"
	HalfLevel = "zh"
)

// Profile is a horizontally averaged vertical profile.
type Profile struct {
	Name, LongName, Units string

	// Level is FullLevel or HalfLevel.
	Level string

	// Data holds the current value at every level, including ghost levels.
	Data []float64

	records [][]float64
}

// TimeSeries is a domain-averaged scalar.
type TimeSeries struct {
	Name, LongName, Units string
	Data                  float64

	records []float64
}

// Stats calculates horizontally averaged statistics and keeps a record of
// them for output.
type Stats struct {
	grid   *Grid
	fields *Fields

	// TurbulentPrandtl is the turbulent Prandtl number used with the
	// eddy viscosity in diffusive fluxes.
	TurbulentPrandtl float64

	Profs  map[string]*Profile
	Series map[string]*TimeSeries

	// Time and Iteration hold the time and iteration of each sample.
	Time      []float64
	Iteration []int

	plane []float64
}

// NewStats returns a new statistics collaborator for the given grid and
// fields.
func NewStats(g *Grid, f *Fields) *Stats {
	return &Stats{
		grid:             g,
		fields:           f,
		TurbulentPrandtl: 1. / 3.,
		Profs:            make(map[string]*Profile),
		Series:           make(map[string]*TimeSeries),
		plane:            make([]float64, g.Itot*g.Jtot),
	}
}

// AddProf registers a new vertical profile.
func (s *Stats) AddProf(name, longName, units, level string) error {
	if level != FullLevel && level != HalfLevel {
		return fmt.Errorf("lesthermo: invalid level type %q for profile %s", level, name)
	}
	if _, ok := s.Profs[name]; ok {
		return fmt.Errorf("lesthermo: profile %s registered twice", name)
	}
	s.Profs[name] = &Profile{Name: name, LongName: longName, Units: units,
		Level: level, Data: make([]float64, s.grid.Kcells)}
	return nil
}

// AddTimeSeries registers a new time series.
func (s *Stats) AddTimeSeries(name, longName, units string) error {
	if _, ok := s.Series[name]; ok {
		return fmt.Errorf("lesthermo: time series %s registered twice", name)
	}
	s.Series[name] = &TimeSeries{Name: name, LongName: longName, Units: units}
	return nil
}

// Prof returns the data of the named profile.
func (s *Stats) Prof(name string) ([]float64, error) {
	p, ok := s.Profs[name]
	if !ok {
		return nil, fmt.Errorf("lesthermo: no statistics profile named %s", name)
	}
	return p.Data, nil
}

// SetTimeSeries sets the current value of the named time series.
func (s *Stats) SetTimeSeries(name string, v float64) error {
	ts, ok := s.Series[name]
	if !ok {
		return fmt.Errorf("lesthermo: no statistics time series named %s", name)
	}
	ts.Data = v
	return nil
}

// gather copies the interior of level k of data into the plane buffer.
func (s *Stats) gather(data []float64, k int) []float64 {
	g := s.grid
	n := 0
	for j := g.Jstart; j < g.Jend; j++ {
		ijk := g.Ijk(g.Istart, j, k)
		n += copy(s.plane[n:], data[ijk:ijk+g.Itot])
	}
	return s.plane
}

// reduce sums prof[from:to] over all partitions and divides by the total
// number of horizontal grid points.
func (s *Stats) reduce(prof []float64, from, to int) error {
	if err := s.grid.Reducer.SumAll(prof[from:to]); err != nil {
		return fmt.Errorf("lesthermo: statistics reduction: %w", err)
	}
	n := float64(s.grid.Itot * s.grid.Jtot)
	for k := from; k < to; k++ {
		prof[k] /= n
	}
	return nil
}

// CalcMean calculates the horizontal mean of data at every level.
func (s *Stats) CalcMean(data, prof []float64) error {
	for k := 0; k < s.grid.Kcells; k++ {
		prof[k] = floats.Sum(s.gather(data, k))
	}
	return s.reduce(prof, 0, s.grid.Kcells)
}

// CalcMoment calculates the nth moment of data about the profile mean.
// half indicates whether data is located at half levels.
func (s *Stats) CalcMoment(data, mean, prof []float64, n float64, half bool) error {
	g := s.grid
	kend := g.Kend
	if half {
		kend++
	}
	np := float64(g.Itot * g.Jtot)
	for k := g.Kstart; k < kend; k++ {
		prof[k] = stat.MomentAbout(n, s.gather(data, k), mean[k], nil) * np
	}
	return s.reduce(prof, g.Kstart, kend)
}

// CalcGrad calculates the mean vertical gradient of full-level data at
// the half levels.
func (s *Stats) CalcGrad(data, prof []float64) error {
	g := s.grid
	for k := g.Kstart; k <= g.Kend; k++ {
		prof[k] = 0
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := g.Ijk(i, j, k)
				if g.SpatialOrder == 4 {
					prof[k] += thermofunc.Grad4(data[ijk-2*g.Ijcells], data[ijk-g.Ijcells],
						data[ijk], data[ijk+g.Ijcells]) * g.Dzhi4[k]
				} else {
					prof[k] += (data[ijk] - data[ijk-g.Ijcells]) * g.Dzhi[k]
				}
			}
		}
	}
	return s.reduce(prof, g.Kstart, g.Kend+1)
}

// interpHalf interpolates full-level data to the half level below
// index ijk.
func (s *Stats) interpHalf(data []float64, ijk int) float64 {
	kk := s.grid.Ijcells
	if s.grid.SpatialOrder == 4 {
		return thermofunc.Interp4(data[ijk-2*kk], data[ijk-kk], data[ijk], data[ijk+kk])
	}
	return thermofunc.Interp2(data[ijk-kk], data[ijk])
}

// CalcFlux calculates the turbulent vertical flux of full-level data at
// the half levels, where mean is the mean profile of data.
func (s *Stats) CalcFlux(data, mean, prof []float64) error {
	g := s.grid
	w := s.fields.W.Data.Elements
	var meanh float64
	for k := g.Kstart; k <= g.Kend; k++ {
		if g.SpatialOrder == 4 {
			meanh = thermofunc.Interp4(mean[k-2], mean[k-1], mean[k], mean[k+1])
		} else {
			meanh = thermofunc.Interp2(mean[k-1], mean[k])
		}
		prof[k] = 0
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := g.Ijk(i, j, k)
				prof[k] += w[ijk] * (s.interpHalf(data, ijk) - meanh)
			}
		}
	}
	return s.reduce(prof, g.Kstart, g.Kend+1)
}

// CalcDiff calculates the diffusive vertical flux of fld at the half
// levels. With a 2nd order grid and an "evisc" diagnostic field the eddy
// diffusivity is used; otherwise the molecular diffusivity of the fields.
// The surface and top fluxes are the means of fld.FluxBot and fld.FluxTop.
func (s *Stats) CalcDiff(fld *Field3D, prof []float64) error {
	g := s.grid
	data := fld.Data.Elements
	evisc, eddy := s.fields.Diagnostics["evisc"]
	eddy = eddy && g.SpatialOrder == 2
	for k := g.Kstart + 1; k < g.Kend; k++ {
		prof[k] = 0
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := g.Ijk(i, j, k)
				switch {
				case eddy:
					ev := evisc.Data.Elements
					prof[k] -= thermofunc.Interp2(ev[ijk-g.Ijcells], ev[ijk]) / s.TurbulentPrandtl *
						(data[ijk] - data[ijk-g.Ijcells]) * g.Dzhi[k]
				case g.SpatialOrder == 4:
					prof[k] -= s.fields.Visc * thermofunc.Grad4(data[ijk-2*g.Ijcells],
						data[ijk-g.Ijcells], data[ijk], data[ijk+g.Ijcells]) * g.Dzhi4[k]
				default:
					prof[k] -= s.fields.Visc * (data[ijk] - data[ijk-g.Ijcells]) * g.Dzhi[k]
				}
			}
		}
	}
	prof[g.Kstart], prof[g.Kend] = 0, 0
	for j := g.Jstart; j < g.Jend; j++ {
		for i := g.Istart; i < g.Iend; i++ {
			prof[g.Kstart] += fld.FluxBot.Elements[g.Ij(i, j)]
			prof[g.Kend] += fld.FluxTop.Elements[g.Ij(i, j)]
		}
	}
	return s.reduce(prof, g.Kstart, g.Kend+1)
}

// AddFluxes sets total to the sum of the turbulent and diffusive fluxes.
func (s *Stats) AddFluxes(total, turb, diff []float64) {
	floats.AddTo(total, turb, diff)
}

// CalcCount calculates the fraction of grid points at each full level
// where data exceeds threshold.
func (s *Stats) CalcCount(data, prof []float64, threshold float64) error {
	g := s.grid
	for k := g.Kstart; k < g.Kend; k++ {
		prof[k] = 0
		for _, v := range s.gather(data, k) {
			if v > threshold {
				prof[k]++
			}
		}
	}
	return s.reduce(prof, g.Kstart, g.Kend)
}

// CalcCover returns the fraction of grid columns where data exceeds
// threshold at any level.
func (s *Stats) CalcCover(data []float64, threshold float64) (float64, error) {
	g := s.grid
	cover := []float64{0}
	for j := g.Jstart; j < g.Jend; j++ {
		for i := g.Istart; i < g.Iend; i++ {
			for k := g.Kstart; k < g.Kend; k++ {
				if data[g.Ijk(i, j, k)] > threshold {
					cover[0]++
					break
				}
			}
		}
	}
	if err := s.reduce(cover, 0, 1); err != nil {
		return 0, err
	}
	return cover[0], nil
}

// CalcPath returns the mean vertical integral of data weighted by the
// reference density.
func (s *Stats) CalcPath(data []float64) (float64, error) {
	g := s.grid
	path := []float64{0}
	for k := g.Kstart; k < g.Kend; k++ {
		path[0] += s.fields.RhoRef[k] * floats.Sum(s.gather(data, k)) * g.Dz[k]
	}
	if err := s.reduce(path, 0, 1); err != nil {
		return 0, err
	}
	return path[0], nil
}

// Sample appends the current values of all profiles and time series to
// the record.
func (s *Stats) Sample(time float64, iteration int) {
	s.Time = append(s.Time, time)
	s.Iteration = append(s.Iteration, iteration)
	for _, p := range s.Profs {
		p.records = append(p.records, append([]float64(nil), p.Data...))
	}
	for _, ts := range s.Series {
		ts.records = append(ts.records, ts.Data)
	}
}

// Write writes all recorded samples to w in NetCDF format.
func (s *Stats) Write(w *os.File) error {
	g := s.grid
	nt := len(s.Time)
	if nt == 0 {
		return fmt.Errorf("lesthermo: no statistics samples to write")
	}
	t := sparse.ZerosDense(nt)
	copy(t.Elements, s.Time)
	z := sparse.ZerosDense(g.Ktot)
	copy(z.Elements, g.Z[g.Kstart:g.Kend])
	zh := sparse.ZerosDense(g.Ktot + 1)
	copy(zh.Elements, g.Zh[g.Kstart:g.Kend+1])
	vars := []ncVar{
		{name: "t", longName: "Time", units: "s", dims: []string{"time"}, data: t},
		{name: "z", longName: "Full level height", units: "m", dims: []string{FullLevel}, data: z},
		{name: "zh", longName: "Half level height", units: "m", dims: []string{HalfLevel}, data: zh},
	}

	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(s.Profs))
	for n := range s.Profs {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		p := s.Profs[n]
		nz, kend := g.Ktot, g.Kend
		if p.Level == HalfLevel {
			nz, kend = g.Ktot+1, g.Kend+1
		}
		d := sparse.ZerosDense(nt, nz)
		for it, r := range p.records {
			copy(d.Elements[it*nz:(it+1)*nz], r[g.Kstart:kend])
		}
		vars = append(vars, ncVar{name: n, longName: p.LongName, units: p.Units,
			dims: []string{"time", p.Level}, data: d})
	}
	names = names[:0]
	for n := range s.Series {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		ts := s.Series[n]
		d := sparse.ZerosDense(nt)
		copy(d.Elements, ts.records)
		vars = append(vars, ncVar{name: n, longName: ts.LongName, units: ts.Units,
			dims: []string{"time"}, data: d})
	}
	return writeNetCDF(w, []string{"time", FullLevel, HalfLevel}, []int{nt, g.Ktot, g.Ktot + 1},
		map[string]interface{}{"iterations": []int32{int32(s.Iteration[nt-1])}}, vars)
}
