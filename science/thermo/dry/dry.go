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

// Package dry contains a dry thermodynamics scheme with potential
// temperature as the only prognostic variable. Buoyancy is proportional
// to the deviation of the potential temperature from a fixed reference
// profile.
package dry

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/lesthermo"
	tf "github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
)

// Config holds the configuration of the dry thermodynamics.
type Config struct {
	// SurfacePressure is the surface pressure [Pa]. It is required.
	SurfacePressure float64

	// CrossList holds the names of the requested cross sections.
	CrossList []string
}

// ReferenceState is the hydrostatic base state of a dry atmosphere.
type ReferenceState struct {
	Th, ThH             []float64 // potential temperature [K]
	Pressure, PressureH []float64 // [Pa]
	Exner, ExnerH       []float64
	Rho, RhoH           []float64 // density [kg/m³]
}

// Thermo fulfils the github.com/spatialmodel/lesthermo.Thermo interface.
type Thermo struct {
	grid   *lesthermo.Grid
	fields *lesthermo.Fields
	cfg    Config

	// Ref is the reference state. It is nil until Create is called.
	Ref *ReferenceState

	crossList []string
	log       logrus.FieldLogger
}

// New returns a new dry thermodynamics scheme and registers its
// prognostic variable "th" in f.
func New(g *lesthermo.Grid, f *lesthermo.Fields, cfg Config, log logrus.FieldLogger) (*Thermo, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !(cfg.SurfacePressure > 0) {
		return nil, &lesthermo.ConfigError{Option: "thermo.pbot", Value: cfg.SurfacePressure,
			Reason: "surface pressure is required and must be > 0"}
	}
	t := &Thermo{grid: g, fields: f, cfg: cfg, log: log.WithField("thermo", "dry")}
	if err := f.InitPrognostic("th", "Potential temperature", "K"); err != nil {
		return nil, err
	}
	for _, name := range cfg.CrossList {
		switch {
		case name == "b" || name == "bbot" || name == "bfluxbot":
		case name == "blngrad" && g.SpatialOrder == 4:
		default:
			t.log.WithField("name", name).Warn("dry: cross section is not supported and will not be written")
			continue
		}
		t.crossList = append(t.crossList, name)
	}
	sort.Strings(t.crossList)
	return t, nil
}

// ProgVars returns the prognostic variable "th".
func (t *Thermo) ProgVars() []string { return []string{"th"} }

// CrossList returns the validated cross-section names in sorted order.
func (t *Thermo) CrossList() []string { return t.crossList }

// HasThermoField reports whether name is "b" or "N2".
func (t *Thermo) HasThermoField(name string) bool { return name == "b" || name == "N2" }

// Create calculates the reference state from the initial potential
// temperature profile and registers the statistics with s, if s is not
// nil.
func (t *Thermo) Create(p *lesthermo.Profiles, s *lesthermo.Stats) error {
	g := t.grid
	th, err := p.Interpolate(g, "th")
	if err != nil {
		return err
	}
	g.ExtrapolateGhosts(th)
	if t.Ref, err = t.referenceState(th); err != nil {
		return err
	}
	copy(t.fields.RhoRef, t.Ref.Rho)
	copy(t.fields.RhoRefH, t.Ref.RhoH)
	if s == nil {
		return nil
	}
	for _, p := range []struct{ name, longName, units, level string }{
		{"b", "Buoyancy", "m s-2", lesthermo.FullLevel},
		{"b2", "Moment 2 of the buoyancy", "m2 s-4", lesthermo.FullLevel},
		{"b3", "Moment 3 of the buoyancy", "m3 s-6", lesthermo.FullLevel},
		{"b4", "Moment 4 of the buoyancy", "m4 s-8", lesthermo.FullLevel},
		{"bgrad", "Gradient of the buoyancy", "m s-3", lesthermo.HalfLevel},
		{"bw", "Turbulent flux of the buoyancy", "m2 s-3", lesthermo.HalfLevel},
		{"bdiff", "Diffusive flux of the buoyancy", "m2 s-3", lesthermo.HalfLevel},
		{"bflux", "Total flux of the buoyancy", "m2 s-3", lesthermo.HalfLevel},
	} {
		if err := s.AddProf(p.name, p.longName, p.units, p.level); err != nil {
			return err
		}
	}
	return nil
}

// referenceState integrates the hydrostatic equation for the potential
// temperature profile th, which must include valid ghost levels.
func (t *Thermo) referenceState(th []float64) (*ReferenceState, error) {
	g := t.grid
	ks, ke := g.Kstart, g.Kend
	r := &ReferenceState{
		Th:        append([]float64(nil), th...),
		ThH:       make([]float64, g.Kcells),
		Pressure:  make([]float64, g.Kcells),
		PressureH: make([]float64, g.Kcells),
		Exner:     make([]float64, g.Kcells),
		ExnerH:    make([]float64, g.Kcells),
		Rho:       make([]float64, g.Kcells),
		RhoH:      make([]float64, g.Kcells),
	}
	for k := ks; k <= ke; k++ {
		if g.SpatialOrder == 4 {
			r.ThH[k] = tf.Interp4(th[k-2], th[k-1], th[k], th[k+1])
		} else {
			r.ThH[k] = tf.Interp2(th[k-1], th[k])
		}
	}
	hydrostatic := func(p, dz, th float64) float64 {
		return math.Pow(math.Pow(p, tf.Kappa)-tf.Grav*math.Pow(tf.P0, tf.Kappa)*dz/(tf.Cp*th), 1/tf.Kappa)
	}
	r.PressureH[ks] = t.cfg.SurfacePressure
	r.Pressure[ks] = hydrostatic(r.PressureH[ks], g.Z[ks]-g.Zh[ks], r.ThH[ks])
	for k := ks + 1; k <= ke; k++ {
		r.PressureH[k] = hydrostatic(r.PressureH[k-1], g.Dz[k-1], r.Th[k-1])
		if k < ke {
			r.Pressure[k] = hydrostatic(r.Pressure[k-1], g.Dzh[k], r.ThH[k])
		}
	}
	for k := ks; k <= ke; k++ {
		if math.IsNaN(r.PressureH[k]) || (k < ke && math.IsNaN(r.Pressure[k])) {
			return nil, &lesthermo.NumericalDivergenceError{Op: "dry reference state", I: -1, J: -1, K: k,
				Err: fmt.Errorf("pressure is not a number; the column may be too deep")}
		}
		r.ExnerH[k] = tf.Exner(r.PressureH[k])
		r.RhoH[k] = r.PressureH[k] / (tf.Rd * r.ExnerH[k] * r.ThH[k])
		if k < ke {
			r.Exner[k] = tf.Exner(r.Pressure[k])
			r.Rho[k] = r.Pressure[k] / (tf.Rd * r.Exner[k] * r.Th[k])
		}
	}
	for _, p := range [][2][]float64{
		{r.Th, r.ThH},
		{r.Pressure, r.PressureH},
		{r.Exner, r.ExnerH},
		{r.Rho, r.RhoH},
	} {
		fillGhosts(g, p[0], p[1])
	}
	t.log.WithField("surface_density", r.RhoH[ks]).Debug("dry: solved reference state")
	return r, nil
}

// fillGhosts extrapolates a full-level profile and its half-level
// counterpart linearly through the surface and top half levels.
func fillGhosts(g *lesthermo.Grid, full, half []float64) {
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

func (t *Thermo) checkCreated() error {
	if t.Ref == nil {
		return &lesthermo.UnsupportedError{What: "dry thermodynamics before Create",
			Reason: "the reference state has not been created"}
	}
	return nil
}

// Exec adds the buoyancy at the half levels to the vertical velocity
// tendency.
func (t *Thermo) Exec() error {
	if err := t.checkCreated(); err != nil {
		return err
	}
	g := t.grid
	kk1, kk2 := g.Ijcells, 2*g.Ijcells
	th := t.fields.Scalars["th"].Data.Elements
	wt := t.fields.Wt.Data.Elements
	thh := t.Ref.ThH
	return lesthermo.Rows(g, func(j int) error {
		for k := g.Kstart + 1; k < g.Kend; k++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := g.Ijk(i, j, k)
				var s float64
				if g.SpatialOrder == 4 {
					s = tf.Interp4(th[ijk-kk2], th[ijk-kk1], th[ijk], th[ijk+kk1])
				} else {
					s = tf.Interp2(th[ijk-kk1], th[ijk])
				}
				wt[ijk] += tf.Grav / thh[k] * (s - thh[k])
			}
		}
		return nil
	})
}

// ThermoField calculates the buoyancy ("b") or the squared
// Brunt-Väisälä frequency ("N2") in fld.
func (t *Thermo) ThermoField(fld, tmp *lesthermo.Field3D, name string) error {
	if !t.HasThermoField(name) {
		return &lesthermo.UnsupportedError{What: fmt.Sprintf("thermo field %q", name),
			Reason: "dry thermodynamics provides b and N2"}
	}
	if err := t.checkCreated(); err != nil {
		return err
	}
	g := t.grid
	th := t.fields.Scalars["th"].Data.Elements
	d := fld.Data.Elements
	if name == "b" {
		for k := 0; k < g.Kcells; k++ {
			for j := g.Jstart; j < g.Jend; j++ {
				for i := g.Istart; i < g.Iend; i++ {
					ijk := g.Ijk(i, j, k)
					d[ijk] = tf.Grav / t.Ref.Th[k] * (th[ijk] - t.Ref.Th[k])
				}
			}
		}
		g.BoundaryCyclic(d, g.Kcells)
		return nil
	}
	for k := g.Kstart; k < g.Kend; k++ {
		for j := g.Jstart; j < g.Jend; j++ {
			for i := g.Istart; i < g.Iend; i++ {
				ijk := g.Ijk(i, j, k)
				d[ijk] = tf.Grav / t.Ref.Th[k] * 0.5 * (th[ijk+g.Ijcells] - th[ijk-g.Ijcells]) * g.Dzi[k]
			}
		}
	}
	return nil
}

// BuoyancySurf sets the surface buoyancy, the buoyancy of the lowest
// model level and the surface buoyancy flux.
func (t *Thermo) BuoyancySurf(fld *lesthermo.Field3D) error {
	if err := t.checkCreated(); err != nil {
		return err
	}
	g := t.grid
	th := t.fields.Scalars["th"]
	ks := g.Kstart
	for j := 0; j < g.Jcells; j++ {
		for i := 0; i < g.Icells; i++ {
			ij, ijk := g.Ij(i, j), g.Ijk(i, j, ks)
			fld.Bot.Elements[ij] = tf.Grav / t.Ref.ThH[ks] * (th.Bot.Elements[ij] - t.Ref.ThH[ks])
			fld.Data.Elements[ijk] = tf.Grav / t.Ref.Th[ks] * (th.Data.Elements[ijk] - t.Ref.Th[ks])
		}
	}
	return t.BuoyancyFluxBot(fld)
}

// BuoyancyFluxBot sets the surface buoyancy flux.
func (t *Thermo) BuoyancyFluxBot(fld *lesthermo.Field3D) error {
	if err := t.checkCreated(); err != nil {
		return err
	}
	thh := t.Ref.ThH[t.grid.Kstart]
	for ij, flux := range t.fields.Scalars["th"].FluxBot.Elements {
		fld.FluxBot.Elements[ij] = tf.Grav / thh * flux
	}
	return nil
}

// ExecStats calculates the buoyancy statistics.
func (t *Thermo) ExecStats(s *lesthermo.Stats) error {
	fld, tmp := t.fields.Tmp1, t.fields.Tmp2
	fld.Zero()
	if err := t.ThermoField(fld, tmp, "b"); err != nil {
		return err
	}
	if err := t.BuoyancyFluxBot(fld); err != nil {
		return err
	}
	prof := make(map[string][]float64)
	for _, name := range []string{"b", "b2", "b3", "b4", "bgrad", "bw", "bdiff", "bflux"} {
		p, err := s.Prof(name)
		if err != nil {
			return err
		}
		prof[name] = p
	}
	b := fld.Data.Elements
	if err := s.CalcMean(b, prof["b"]); err != nil {
		return err
	}
	for n := 2; n <= 4; n++ {
		if err := s.CalcMoment(b, prof["b"], prof[fmt.Sprintf("b%d", n)], float64(n), false); err != nil {
			return err
		}
	}
	if err := s.CalcGrad(b, prof["bgrad"]); err != nil {
		return err
	}
	if err := s.CalcFlux(b, prof["b"], prof["bw"]); err != nil {
		return err
	}
	if err := s.CalcDiff(fld, prof["bdiff"]); err != nil {
		return err
	}
	s.AddFluxes(prof["bflux"], prof["bw"], prof["bdiff"])
	return nil
}

// ExecCross writes the cross sections in the cross list.
func (t *Thermo) ExecCross(c *lesthermo.Cross) error {
	fld, tmp := t.fields.Tmp1, t.fields.Tmp2
	for _, name := range t.crossList {
		var err error
		switch name {
		case "b":
			if err = t.ThermoField(fld, tmp, "b"); err == nil {
				err = c.Simple(fld.Data.Elements, name, false)
			}
		case "blngrad":
			if err = t.ThermoField(fld, tmp, "b"); err == nil {
				err = c.LnGrad(fld.Data.Elements, name)
			}
		case "bbot":
			if err = t.BuoyancySurf(fld); err == nil {
				err = c.Plane(fld.Bot.Elements, name)
			}
		case "bfluxbot":
			if err = t.BuoyancySurf(fld); err == nil {
				err = c.Plane(fld.FluxBot.Elements, name)
			}
		}
		if err != nil {
			return fmt.Errorf("dry: cross section %s: %w", name, err)
		}
	}
	return nil
}
