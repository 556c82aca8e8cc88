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

	"github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
)

// GridConfig holds the configuration of a model grid.
type GridConfig struct {
	// Itot, Jtot and Ktot are the number of interior grid cells in the
	// x, y and z directions.
	Itot, Jtot, Ktot int

	// Xsize, Ysize and Zsize are the domain dimensions [m].
	Xsize, Ysize, Zsize float64

	// SpatialOrder is the order of the finite-difference stencils,
	// either 2 or 4.
	SpatialOrder int
}

// Grid is a staggered rectilinear grid with ghost cells on every side.
// Scalars live at full levels Z and vertical velocity lives at half
// levels Zh, where Zh[Kstart] is the surface and Zh[Kend] is the top of
// the domain. Arrays are stored with i varying fastest, then j, then k.
type Grid struct {
	GridConfig

	Igc, Jgc, Kgc              int // number of ghost cells
	Icells, Jcells, Kcells     int
	Ijcells, Ncells            int
	Istart, Iend, Jstart, Jend int
	Kstart, Kend               int
	Dx, Dy, Dxi, Dyi           float64
	Z, Zh, Dz, Dzh             []float64
	Dzi, Dzhi, Dzi4, Dzhi4     []float64

	// Reducer combines partial sums across domain partitions.
	Reducer Reducer
}

// Reducer sums values across all partitions of a decomposed domain.
type Reducer interface {
	// SumAll replaces each element of v with its sum over all partitions.
	SumAll(v []float64) error
}

// LocalReducer is a Reducer for a domain held by a single process.
type LocalReducer struct{}

// SumAll leaves v unchanged.
func (LocalReducer) SumAll(v []float64) error { return nil }

// NewGrid creates a new grid. z holds the heights of the Ktot interior
// full levels; if it is nil the levels are spaced uniformly.
func NewGrid(cfg GridConfig, z []float64) (*Grid, error) {
	for _, v := range []struct {
		name string
		val  int
	}{{"grid.itot", cfg.Itot}, {"grid.jtot", cfg.Jtot}, {"grid.ktot", cfg.Ktot}} {
		if v.val <= 0 {
			return nil, &ConfigError{Option: v.name, Value: v.val, Reason: "must be > 0"}
		}
	}
	for _, v := range []struct {
		name string
		val  float64
	}{{"grid.xsize", cfg.Xsize}, {"grid.ysize", cfg.Ysize}, {"grid.zsize", cfg.Zsize}} {
		if !(v.val > 0) {
			return nil, &ConfigError{Option: v.name, Value: v.val, Reason: "must be > 0"}
		}
	}
	var gc int
	switch cfg.SpatialOrder {
	case 2:
		gc = 1
	case 4:
		gc = 2
	default:
		return nil, &ConfigError{Option: "grid.swspatialorder", Value: cfg.SpatialOrder,
			Reason: "must be 2 or 4"}
	}
	if cfg.Ktot < 2*gc {
		return nil, &ConfigError{Option: "grid.ktot", Value: cfg.Ktot,
			Reason: fmt.Sprintf("order %d grids need at least %d levels", cfg.SpatialOrder, 2*gc)}
	}

	if z == nil {
		z = make([]float64, cfg.Ktot)
		dz := cfg.Zsize / float64(cfg.Ktot)
		for k := range z {
			z[k] = (float64(k) + 0.5) * dz
		}
	}
	if len(z) != cfg.Ktot {
		return nil, &ConfigError{Option: "grid.z", Value: len(z),
			Reason: fmt.Sprintf("need %d levels", cfg.Ktot)}
	}
	for k, zz := range z {
		if zz <= 0 || zz >= cfg.Zsize || (k > 0 && zz <= z[k-1]) {
			return nil, &ConfigError{Option: "grid.z", Value: zz,
				Reason: "levels must increase strictly within (0, zsize)"}
		}
	}

	g := &Grid{GridConfig: cfg, Igc: gc, Jgc: gc, Kgc: gc, Reducer: LocalReducer{}}
	g.Icells = cfg.Itot + 2*gc
	g.Jcells = cfg.Jtot + 2*gc
	g.Kcells = cfg.Ktot + 2*gc
	g.Ijcells = g.Icells * g.Jcells
	g.Ncells = g.Ijcells * g.Kcells
	g.Istart, g.Iend = gc, cfg.Itot+gc
	g.Jstart, g.Jend = gc, cfg.Jtot+gc
	g.Kstart, g.Kend = gc, cfg.Ktot+gc
	g.Dx = cfg.Xsize / float64(cfg.Itot)
	g.Dy = cfg.Ysize / float64(cfg.Jtot)
	g.Dxi, g.Dyi = 1/g.Dx, 1/g.Dy

	g.calcVertical(z)
	return g, nil
}

func (g *Grid) calcVertical(z []float64) {
	kc := g.Kcells
	ks, ke := g.Kstart, g.Kend
	g.Z = make([]float64, kc)
	g.Zh = make([]float64, kc)
	g.Dz = make([]float64, kc)
	g.Dzh = make([]float64, kc)
	g.Dzi = make([]float64, kc)
	g.Dzhi = make([]float64, kc)
	g.Dzi4 = make([]float64, kc)
	g.Dzhi4 = make([]float64, kc)

	copy(g.Z[ks:ke], z)
	// Mirror the full levels around the surface and the domain top.
	for n := 1; n <= g.Kgc; n++ {
		g.Z[ks-n] = -g.Z[ks+n-1]
		g.Z[ke+n-1] = 2*g.Zsize - g.Z[ke-n]
	}

	g.Zh[ks] = 0
	g.Zh[ke] = g.Zsize
	for k := ks + 1; k < ke; k++ {
		if g.SpatialOrder == 4 {
			g.Zh[k] = thermofunc.Interp4(g.Z[k-2], g.Z[k-1], g.Z[k], g.Z[k+1])
		} else {
			g.Zh[k] = thermofunc.Interp2(g.Z[k-1], g.Z[k])
		}
	}
	for n := 1; n <= g.Kgc; n++ {
		g.Zh[ks-n] = -g.Zh[ks+n]
		if ke+n < kc {
			g.Zh[ke+n] = 2*g.Zsize - g.Zh[ke-n]
		}
	}

	for k := 0; k < kc-1; k++ {
		g.Dz[k] = g.Zh[k+1] - g.Zh[k]
	}
	g.Dz[kc-1] = g.Dz[kc-2]
	for k := 1; k < kc; k++ {
		g.Dzh[k] = g.Z[k] - g.Z[k-1]
	}
	g.Dzh[0] = g.Dzh[1]
	for k := 0; k < kc; k++ {
		g.Dzi[k] = 1 / g.Dz[k]
		g.Dzhi[k] = 1 / g.Dzh[k]
		g.Dzi4[k] = g.Dzi[k]
		g.Dzhi4[k] = g.Dzhi[k]
	}
	if g.SpatialOrder == 4 {
		for k := ks; k < ke; k++ {
			g.Dzi4[k] = 1 / thermofunc.Grad4(g.Zh[k-1], g.Zh[k], g.Zh[k+1], g.Zh[k+2])
		}
		for k := ks; k <= ke; k++ {
			g.Dzhi4[k] = 1 / thermofunc.Grad4(g.Z[k-2], g.Z[k-1], g.Z[k], g.Z[k+1])
		}
	}
}

// Ijk returns the index of grid point (i, j, k) in a 3-D field.
func (g *Grid) Ijk(i, j, k int) int {
	return i + j*g.Icells + k*g.Ijcells
}

// Ij returns the index of grid point (i, j) in a 2-D field.
func (g *Grid) Ij(i, j int) int {
	return i + j*g.Icells
}

// ExtrapolateGhosts fills the ghost levels of a full-level profile whose
// interior is set. The profile is extrapolated linearly to the surface and
// the domain top, and the ghost values mirror the interior about those
// boundary values.
func (g *Grid) ExtrapolateGhosts(prof []float64) {
	ks, ke := g.Kstart, g.Kend
	bot := prof[ks] - g.Z[ks]*(prof[ks+1]-prof[ks])*g.Dzhi[ks+1]
	top := prof[ke-1] + (g.Zh[ke]-g.Z[ke-1])*(prof[ke-1]-prof[ke-2])*g.Dzhi[ke-1]
	for n := 1; n <= g.Kgc; n++ {
		prof[ks-n] = 2*bot - prof[ks+n-1]
		prof[ke+n-1] = 2*top - prof[ke-n]
	}
}

// BoundaryCyclic fills the horizontal ghost cells of a 3-D field
// (nlev = Kcells) or a 2-D field (nlev = 1) with periodic copies of the
// interior.
func (g *Grid) BoundaryCyclic(data []float64, nlev int) {
	for k := 0; k < nlev; k++ {
		off := k * g.Ijcells
		for j := g.Jstart; j < g.Jend; j++ {
			for n := 1; n <= g.Igc; n++ {
				data[off+g.Ij(g.Istart-n, j)] = data[off+g.Ij(g.Iend-n, j)]
				data[off+g.Ij(g.Iend+n-1, j)] = data[off+g.Ij(g.Istart+n-1, j)]
			}
		}
		for n := 1; n <= g.Jgc; n++ {
			for i := 0; i < g.Icells; i++ {
				data[off+g.Ij(i, g.Jstart-n)] = data[off+g.Ij(i, g.Jend-n)]
				data[off+g.Ij(i, g.Jend+n-1)] = data[off+g.Ij(i, g.Jstart+n-1)]
			}
		}
	}
}
