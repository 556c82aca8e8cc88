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
	"math"
	"path/filepath"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
)

// lnGradFloor is the smallest gradient magnitude whose logarithm is taken.
const lnGradFloor = 1.e-30

// Cross writes vertical (xz) and horizontal (xy) cross sections of model
// fields to NetCDF files.
type Cross struct {
	grid   *Grid
	fields *Fields

	// Dir is the directory the files are written to.
	Dir string

	// XZ holds the interior y indices of the xz cross sections and XY
	// holds the interior level indices of the xy cross sections.
	XZ, XY []int

	Time      float64
	Iteration int
}

// NewCross returns a new cross-section writer.
func NewCross(g *Grid, f *Fields, dir string, xz, xy []int) (*Cross, error) {
	for _, j := range xz {
		if j < 0 || j >= g.Jtot {
			return nil, &ConfigError{Option: "cross.xz", Value: j, Reason: "outside of the domain"}
		}
	}
	for _, k := range xy {
		if k < 0 || k >= g.Ktot {
			return nil, &ConfigError{Option: "cross.xy", Value: k, Reason: "outside of the domain"}
		}
	}
	return &Cross{grid: g, fields: f, Dir: dir, XZ: xz, XY: xy}, nil
}

// SetTime sets the time and iteration that are attached to the files
// written afterwards.
func (c *Cross) SetTime(time float64, iteration int) {
	c.Time, c.Iteration = time, iteration
}

func (c *Cross) fileName(name, plane string, index int) string {
	if index < 0 {
		return filepath.Join(c.Dir, fmt.Sprintf("%s.%s.%07d.nc", name, plane, c.Iteration))
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s.%s.%05d.%07d.nc", name, plane, index, c.Iteration))
}

func (c *Cross) write(name, plane string, index int, dims []string, data *sparse.DenseArray) error {
	err := createNetCDF(c.fileName(name, plane, index), dims, data.Shape,
		map[string]interface{}{
			"time":      []float64{c.Time},
			"iteration": []int32{int32(c.Iteration)},
		},
		[]ncVar{{name: name, dims: dims, data: data}})
	if err != nil {
		return fmt.Errorf("lesthermo: writing %s cross section of %s: %w", plane, name, err)
	}
	return nil
}

// xyPlane returns the interior of level k of data.
func (c *Cross) xyPlane(data []float64, k int) *sparse.DenseArray {
	g := c.grid
	o := sparse.ZerosDense(g.Jtot, g.Itot)
	for j := g.Jstart; j < g.Jend; j++ {
		ijk := g.Ijk(g.Istart, j, k)
		copy(o.Elements[(j-g.Jstart)*g.Itot:], data[ijk:ijk+g.Itot])
	}
	return o
}

// Simple writes the configured xz and xy cross sections of a 3-D field.
// half indicates whether the field is located at half levels.
func (c *Cross) Simple(data []float64, name string, half bool) error {
	g := c.grid
	nz := g.Ktot
	zdim := FullLevel
	if half {
		nz++
		zdim = HalfLevel
	}
	for _, jj := range c.XZ {
		j := jj + g.Jstart
		o := sparse.ZerosDense(nz, g.Itot)
		for k := 0; k < nz; k++ {
			ijk := g.Ijk(g.Istart, j, k+g.Kstart)
			copy(o.Elements[k*g.Itot:], data[ijk:ijk+g.Itot])
		}
		if err := c.write(name, "xz", jj, []string{zdim, "x"}, o); err != nil {
			return err
		}
	}
	for _, kk := range c.XY {
		if err := c.write(name, "xy", kk, []string{"y", "x"}, c.xyPlane(data, kk+g.Kstart)); err != nil {
			return err
		}
	}
	return nil
}

// LnGrad writes cross sections of the natural logarithm of the magnitude
// of the gradient of a full-level field. It requires a 4th order grid.
func (c *Cross) LnGrad(data []float64, name string) error {
	g := c.grid
	if g.SpatialOrder != 4 {
		return &UnsupportedError{What: "cross section " + name, Reason: "requires a 4th order grid"}
	}
	ii, jj, kk := 1, g.Icells, g.Ijcells
	lngrad := func(ijk, k int) float64 {
		dx := thermofunc.Grad4x(data[ijk-2*ii], data[ijk-ii], data[ijk+ii], data[ijk+2*ii]) * g.Dxi
		dy := thermofunc.Grad4x(data[ijk-2*jj], data[ijk-jj], data[ijk+jj], data[ijk+2*jj]) * g.Dyi
		dz := thermofunc.Grad4x(data[ijk-2*kk], data[ijk-kk], data[ijk+kk], data[ijk+2*kk]) * g.Dzi[k]
		return math.Log(math.Max(lnGradFloor, math.Sqrt(dx*dx+dy*dy+dz*dz)))
	}
	for _, jr := range c.XZ {
		j := jr + g.Jstart
		o := sparse.ZerosDense(g.Ktot, g.Itot)
		for k := g.Kstart; k < g.Kend; k++ {
			for i := g.Istart; i < g.Iend; i++ {
				o.Set(lngrad(g.Ijk(i, j, k), k), k-g.Kstart, i-g.Istart)
			}
		}
		if err := c.write(name, "xz", jr, []string{FullLevel, "x"}, o); err != nil {
			return err
		}
	}
	for _, kr := range c.XY {
		k := kr + g.Kstart
		o := sparse.ZerosDense(g.Jtot, g.Itot)
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				o.Set(lngrad(g.Ijk(i, j, k), k), j-g.Jstart, i-g.Istart)
			}
		}
		if err := c.write(name, "xy", kr, []string{"y", "x"}, o); err != nil {
			return err
		}
	}
	return nil
}

// Path writes a horizontal cross section of the vertical integral of a
// full-level field weighted by the reference density.
func (c *Cross) Path(data []float64, name string) error {
	g := c.grid
	o := sparse.ZerosDense(g.Jtot, g.Itot)
	for k := g.Kstart; k < g.Kend; k++ {
		w := c.fields.RhoRef[k] * g.Dz[k]
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				o.AddVal(w*data[g.Ijk(i, j, k)], j-g.Jstart, i-g.Istart)
			}
		}
	}
	return c.write(name, "xy", -1, []string{"y", "x"}, o)
}

// Plane writes the interior of a 2-D field such as a surface value.
func (c *Cross) Plane(data []float64, name string) error {
	return c.write(name, "xy", -1, []string{"y", "x"}, c.xyPlane(data, 0))
}
