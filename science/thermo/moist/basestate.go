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
	"fmt"
	"math"

	"github.com/spatialmodel/lesthermo"
	tf "github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
)

// ReferenceState is the hydrostatic base state of the atmosphere, held at
// full and half levels including ghost levels. It is either fresh, meaning
// that it was solved from the current mean profiles, or stale.
type ReferenceState struct {
	grid *lesthermo.Grid

	// SurfacePressure is the pressure at the surface [Pa].
	SurfacePressure float64

	Pressure, PressureH []float64 // [Pa]
	Exner, ExnerH       []float64
	Thv, ThvH           []float64 // virtual potential temperature [K]
	Rho, RhoH           []float64 // density [kg/m³]

	fresh bool
}

// NewReferenceState returns a stale reference state for grid g.
func NewReferenceState(g *lesthermo.Grid, surfacePressure float64) *ReferenceState {
	return &ReferenceState{
		grid:            g,
		SurfacePressure: surfacePressure,
		Pressure:        make([]float64, g.Kcells),
		PressureH:       make([]float64, g.Kcells),
		Exner:           make([]float64, g.Kcells),
		ExnerH:          make([]float64, g.Kcells),
		Thv:             make([]float64, g.Kcells),
		ThvH:            make([]float64, g.Kcells),
		Rho:             make([]float64, g.Kcells),
		RhoH:            make([]float64, g.Kcells),
	}
}

// Fresh reports whether the reference state is up to date.
func (r *ReferenceState) Fresh() bool { return r.fresh }

// Invalidate marks the reference state as stale.
func (r *ReferenceState) Invalidate() { r.fresh = false }

// interpHalf interpolates a full-level profile to half level k.
func (r *ReferenceState) interpHalf(x []float64, k int) float64 {
	if r.grid.SpatialOrder == 4 {
		return tf.Interp4(x[k-2], x[k-1], x[k], x[k+1])
	}
	return tf.Interp2(x[k-1], x[k])
}

// hydrostatic returns the pressure a distance dz above pressure p in a
// layer with virtual potential temperature thv.
func hydrostatic(p, dz, thv float64) float64 {
	return math.Pow(math.Pow(p, tf.Kappa)-tf.Grav*math.Pow(tf.P0, tf.Kappa)*dz/(tf.Cp*thv), 1/tf.Kappa)
}

// virtualTemperature returns the virtual potential temperature of air in
// saturation equilibrium.
func virtualTemperature(thl, qt, p, exn float64) (float64, error) {
	ql, err := tf.SatAdjust(thl, qt, p, exn)
	if err != nil {
		return math.NaN(), err
	}
	return tf.VirtualPotentialTemperature(thl+tf.Lv*ql/(tf.Cp*exn), qt, ql), nil
}

// Solve calculates the reference state from the mean profiles of liquid
// water potential temperature thl and total water qt, which must include
// valid ghost levels. The pressure is integrated upwards from the surface,
// alternating between half and full levels.
func (r *ReferenceState) Solve(thl, qt []float64) error {
	g := r.grid
	ks, ke := g.Kstart, g.Kend
	fail := func(k int, err error) error {
		return &lesthermo.NumericalDivergenceError{Op: "reference state", I: -1, J: -1, K: k, Err: err}
	}

	ps := r.SurfacePressure
	r.PressureH[ks] = ps
	r.ExnerH[ks] = tf.Exner(ps)
	// The surface is assumed to be unsaturated.
	r.ThvH[ks] = tf.VirtualPotentialTemperature(r.interpHalf(thl, ks), r.interpHalf(qt, ks), 0)
	r.RhoH[ks] = ps / (tf.Rd * r.ExnerH[ks] * r.ThvH[ks])
	r.Pressure[ks] = hydrostatic(ps, g.Z[ks]-g.Zh[ks], r.ThvH[ks])

	var err error
	for k := ks + 1; k <= ke; k++ {
		r.Exner[k-1] = tf.Exner(r.Pressure[k-1])
		if r.Thv[k-1], err = virtualTemperature(thl[k-1], qt[k-1], r.Pressure[k-1], r.Exner[k-1]); err != nil {
			return fail(k-1, err)
		}
		r.Rho[k-1] = r.Pressure[k-1] / (tf.Rd * r.Exner[k-1] * r.Thv[k-1])

		r.PressureH[k] = hydrostatic(r.PressureH[k-1], g.Dz[k-1], r.Thv[k-1])
		r.ExnerH[k] = tf.Exner(r.PressureH[k])
		if r.ThvH[k], err = virtualTemperature(r.interpHalf(thl, k), r.interpHalf(qt, k),
			r.PressureH[k], r.ExnerH[k]); err != nil {
			return fail(k, err)
		}
		r.RhoH[k] = r.PressureH[k] / (tf.Rd * r.ExnerH[k] * r.ThvH[k])

		if k < ke {
			r.Pressure[k] = hydrostatic(r.Pressure[k-1], g.Dzh[k], r.ThvH[k])
			if math.IsNaN(r.Pressure[k]) {
				return fail(k, fmt.Errorf("pressure is not a number; the column may be too deep"))
			}
		}
	}

	for _, p := range [][2][]float64{
		{r.Pressure, r.PressureH},
		{r.Exner, r.ExnerH},
		{r.Thv, r.ThvH},
		{r.Rho, r.RhoH},
	} {
		r.fillGhosts(p[0], p[1])
	}
	r.fresh = true
	return nil
}

// fillGhosts sets the ghost levels of a full-level profile and its
// half-level counterpart by linear extrapolation through the surface and
// top half levels.
func (r *ReferenceState) fillGhosts(full, half []float64) {
	g := r.grid
	ks, ke := g.Kstart, g.Kend
	for n := 1; n <= g.Kgc; n++ {
		full[ks-n] = 2*half[ks] - full[ks+n-1]
		full[ke+n-1] = 2*half[ke] - full[ke-n]
		half[ks-n] = 2*half[ks] - half[ks+n]
		if ke+n < g.Kcells {
			half[ke+n] = 2*half[ke] - half[ke-n]
		}
	}
}
