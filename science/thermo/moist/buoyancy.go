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

package moist

import (
	"github.com/spatialmodel/lesthermo"
	tf "github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
)

// saturate replaces the liquid water estimates ql[i] of points
// istart <= i < iend with the result of the saturation adjustment where
// the estimate is positive and with zero elsewhere. thl and qt hold the
// conserved variables of the same points. The supersaturated points are
// gathered into idx before the adjustment. If the adjustment fails, the
// index of the failed point is returned with the error.
func saturate(ql, thl, qt []float64, p, exn float64, istart, iend int, idx []int) ([]int, int, error) {
	idx = idx[:0]
	for i := istart; i < iend; i++ {
		if ql[i] > 0 {
			idx = append(idx, i)
		} else {
			ql[i] = 0
		}
	}
	for _, i := range idx {
		var err error
		if ql[i], err = tf.SatAdjust(thl[i], qt[i], p, exn); err != nil {
			return idx, i, err
		}
	}
	return idx, 0, nil
}

// divergence locates a saturation adjustment failure at point (i, j, k).
func divergence(op string, err error, g *lesthermo.Grid, i, j, k int) error {
	return &lesthermo.NumericalDivergenceError{Op: op, I: i - g.Istart, J: j - g.Jstart,
		K: k - g.Kstart, Err: err}
}

// buoyancyTend2nd adds the buoyancy to the vertical velocity tendency
// using 2nd order interpolation.
func (t *Thermo) buoyancyTend2nd() error {
	g := t.grid
	kk := g.Ijcells
	thl := t.fields.Scalars["thl"].Data.Elements
	qt := t.fields.Scalars["qt"].Data.Elements
	wt := t.fields.Wt.Data.Elements
	return lesthermo.Rows(g, func(j int) error {
		sh := make([]float64, g.Icells)
		qth := make([]float64, g.Icells)
		ql := make([]float64, g.Icells)
		var idx []int
		for k := g.Kstart + 1; k < g.Kend; k++ {
			ph := t.Ref.PressureH[k]
			exnh := tf.Exner(ph)
			off := g.Ijk(0, j, k)
			for i := g.Istart; i < g.Iend; i++ {
				ijk := off + i
				sh[i] = tf.Interp2(thl[ijk-kk], thl[ijk])
				qth[i] = tf.Interp2(qt[ijk-kk], qt[ijk])
				ql[i] = tf.LiquidWaterEstimate(sh[i], qth[i], ph, exnh)
			}
			var fi int
			var err error
			idx, fi, err = saturate(ql, sh, qth, ph, exnh, g.Istart, g.Iend, idx)
			if err != nil {
				return divergence("buoyancy tendency", err, g, fi, j, k)
			}
			for i := g.Istart; i < g.Iend; i++ {
				wt[off+i] += tf.Buoyancy(ph, sh[i], qth[i], ql[i], t.Ref.ThvH[k])
			}
		}
		return nil
	})
}

// buoyancyTend4th adds the buoyancy to the vertical velocity tendency
// using 4th order interpolation. The half-level pressure is interpolated
// from the full levels and the Exner function is approximated by a
// polynomial.
func (t *Thermo) buoyancyTend4th() error {
	g := t.grid
	kk1, kk2 := g.Ijcells, 2*g.Ijcells
	thl := t.fields.Scalars["thl"].Data.Elements
	qt := t.fields.Scalars["qt"].Data.Elements
	wt := t.fields.Wt.Data.Elements
	p := t.Ref.Pressure
	return lesthermo.Rows(g, func(j int) error {
		sh := make([]float64, g.Icells)
		qth := make([]float64, g.Icells)
		ql := make([]float64, g.Icells)
		var idx []int
		for k := g.Kstart + 1; k < g.Kend; k++ {
			ph := tf.Interp4(p[k-2], p[k-1], p[k], p[k+1])
			exnh := tf.ExnerPoly(ph)
			off := g.Ijk(0, j, k)
			for i := g.Istart; i < g.Iend; i++ {
				ijk := off + i
				sh[i] = tf.Interp4(thl[ijk-kk2], thl[ijk-kk1], thl[ijk], thl[ijk+kk1])
				qth[i] = tf.Interp4(qt[ijk-kk2], qt[ijk-kk1], qt[ijk], qt[ijk+kk1])
				ql[i] = tf.LiquidWaterEstimate(sh[i], qth[i], ph, exnh)
			}
			var fi int
			var err error
			idx, fi, err = saturate(ql, sh, qth, ph, exnh, g.Istart, g.Iend, idx)
			if err != nil {
				return divergence("buoyancy tendency", err, g, fi, j, k)
			}
			for i := g.Istart; i < g.Iend; i++ {
				wt[off+i] += tf.Buoyancy(ph, sh[i], qth[i], ql[i], t.Ref.ThvH[k])
			}
		}
		return nil
	})
}

// buoyancyField calculates the buoyancy at every level of the interior
// columns of fld and fills the horizontal ghost cells. tmp is used as
// scratch space for the liquid water.
func (t *Thermo) buoyancyField(fld, tmp *lesthermo.Field3D) error {
	g := t.grid
	thl := t.fields.Scalars["thl"].Data.Elements
	qt := t.fields.Scalars["qt"].Data.Elements
	b := fld.Data.Elements
	ql := tmp.Data.Elements
	err := lesthermo.Rows(g, func(j int) error {
		var idx []int
		for k := 0; k < g.Kcells; k++ {
			p := t.Ref.Pressure[k]
			exn := tf.ExnerPoly(p)
			off := g.Ijk(0, j, k)
			for i := g.Istart; i < g.Iend; i++ {
				ql[off+i] = tf.LiquidWaterEstimate(thl[off+i], qt[off+i], p, exn)
			}
			var fi int
			var err error
			idx, fi, err = saturate(ql[off:off+g.Icells], thl[off:off+g.Icells], qt[off:off+g.Icells],
				p, exn, g.Istart, g.Iend, idx)
			if err != nil {
				return divergence("buoyancy", err, g, fi, j, k)
			}
			for i := g.Istart; i < g.Iend; i++ {
				b[off+i] = tf.Buoyancy(p, thl[off+i], qt[off+i], ql[off+i], t.Ref.Thv[k])
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.BoundaryCyclic(b, g.Kcells)
	return nil
}

// liquidWaterField calculates the liquid water at the interior levels of
// fld.
func (t *Thermo) liquidWaterField(fld *lesthermo.Field3D) error {
	g := t.grid
	thl := t.fields.Scalars["thl"].Data.Elements
	qt := t.fields.Scalars["qt"].Data.Elements
	ql := fld.Data.Elements
	err := lesthermo.Rows(g, func(j int) error {
		var idx []int
		for k := g.Kstart; k < g.Kend; k++ {
			p := t.Ref.Pressure[k]
			exn := tf.ExnerPoly(p)
			off := g.Ijk(0, j, k)
			for i := g.Istart; i < g.Iend; i++ {
				ql[off+i] = tf.LiquidWaterEstimate(thl[off+i], qt[off+i], p, exn)
			}
			var fi int
			var err error
			idx, fi, err = saturate(ql[off:off+g.Icells], thl[off:off+g.Icells], qt[off:off+g.Icells],
				p, exn, g.Istart, g.Iend, idx)
			if err != nil {
				return divergence("liquid water", err, g, fi, j, k)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.BoundaryCyclic(ql, g.Kcells)
	return nil
}

// n2Field calculates the squared Brunt-Väisälä frequency at the interior
// levels of fld.
func (t *Thermo) n2Field(fld *lesthermo.Field3D) {
	g := t.grid
	kk := g.Ijcells
	thl := t.fields.Scalars["thl"].Data.Elements
	n2 := fld.Data.Elements
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := g.Ijk(i, j, k)
				n2[ijk] = tf.Grav / t.Ref.Thv[k] * 0.5 * (thl[ijk+kk] - thl[ijk-kk]) * g.Dzi[k]
			}
		}
	}
}

// BuoyancySurf sets the surface buoyancy and the buoyancy of the lowest
// model level, assuming there is no liquid water, and the surface
// buoyancy flux.
func (t *Thermo) BuoyancySurf(fld *lesthermo.Field3D) error {
	if err := t.updateBaseState(); err != nil {
		return err
	}
	g := t.grid
	thl, qt := t.fields.Scalars["thl"], t.fields.Scalars["qt"]
	ks := g.Kstart
	for j := 0; j < g.Jcells; j++ {
		for i := 0; i < g.Icells; i++ {
			ij, ijk := g.Ij(i, j), g.Ijk(i, j, ks)
			fld.Bot.Elements[ij] = tf.BuoyancyNoQl(thl.Bot.Elements[ij], qt.Bot.Elements[ij], t.Ref.ThvH[ks])
			fld.Data.Elements[ijk] = tf.BuoyancyNoQl(thl.Data.Elements[ijk], qt.Data.Elements[ijk], t.Ref.Thv[ks])
		}
	}
	t.buoyancyFluxBot(fld)
	return nil
}

// BuoyancyFluxBot sets the surface buoyancy flux, assuming there is no
// liquid water.
func (t *Thermo) BuoyancyFluxBot(fld *lesthermo.Field3D) error {
	if err := t.updateBaseState(); err != nil {
		return err
	}
	t.buoyancyFluxBot(fld)
	return nil
}

func (t *Thermo) buoyancyFluxBot(fld *lesthermo.Field3D) {
	thl, qt := t.fields.Scalars["thl"], t.fields.Scalars["qt"]
	thvh := t.Ref.ThvH[t.grid.Kstart]
	for ij := range fld.FluxBot.Elements {
		fld.FluxBot.Elements[ij] = tf.BuoyancyFluxNoQl(thl.Bot.Elements[ij], thl.FluxBot.Elements[ij],
			qt.Bot.Elements[ij], qt.FluxBot.Elements[ij], thvh)
	}
}
