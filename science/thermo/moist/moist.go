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

// Package moist contains a moist thermodynamics scheme with liquid water
// potential temperature and total water as prognostic variables. Liquid
// water is diagnosed by saturation adjustment, and buoyancy is calculated
// relative to a hydrostatic reference state.
package moist

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/lesthermo"
)

// Config holds the configuration of the moist thermodynamics.
type Config struct {
	// SurfacePressure is the surface pressure [Pa]. It is required.
	SurfacePressure float64

	// UpdateBaseState specifies whether the reference state is
	// recalculated from the mean profiles every time it is used.
	UpdateBaseState bool

	// CrossList holds the names of the requested cross sections.
	CrossList []string
}

// Thermo fulfils the github.com/spatialmodel/lesthermo.Thermo interface.
type Thermo struct {
	grid   *lesthermo.Grid
	fields *lesthermo.Fields
	cfg    Config

	// Ref is the reference state.
	Ref *ReferenceState

	crossList []string

	log logrus.FieldLogger
}

// New returns a new moist thermodynamics scheme and registers its
// prognostic variables "thl" and "qt" in f. Unsupported cross-section
// names are logged and removed from the list. If log is nil, the
// standard logger is used.
func New(g *lesthermo.Grid, f *lesthermo.Fields, cfg Config, log logrus.FieldLogger) (*Thermo, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if !(cfg.SurfacePressure > 0) {
		return nil, &lesthermo.ConfigError{Option: "thermo.pbot", Value: cfg.SurfacePressure,
			Reason: "surface pressure is required and must be > 0"}
	}
	t := &Thermo{
		grid:   g,
		fields: f,
		cfg:    cfg,
		Ref:    NewReferenceState(g, cfg.SurfacePressure),
		log:    log.WithField("thermo", "moist"),
	}
	if err := f.InitPrognostic("thl", "Liquid water potential temperature", "K"); err != nil {
		return nil, err
	}
	if err := f.InitPrognostic("qt", "Total water mixing ratio", "kg kg-1"); err != nil {
		return nil, err
	}

	allowed := map[string]bool{"b": true, "bbot": true, "bfluxbot": true, "ql": true, "qlpath": true}
	if g.SpatialOrder == 4 {
		allowed["blngrad"] = true
	}
	for _, name := range cfg.CrossList {
		if !allowed[name] {
			t.log.WithField("name", name).Warn("moist: cross section is not supported and will not be written")
			continue
		}
		t.crossList = append(t.crossList, name)
	}
	sort.Strings(t.crossList)
	return t, nil
}

// ProgVars returns the prognostic variables "thl" and "qt".
func (t *Thermo) ProgVars() []string { return []string{"thl", "qt"} }

// CrossList returns the validated cross-section names in sorted order.
func (t *Thermo) CrossList() []string { return t.crossList }

// HasThermoField reports whether name is "b", "ql" or "N2".
func (t *Thermo) HasThermoField(name string) bool {
	return name == "b" || name == "ql" || name == "N2"
}

// Create solves the reference state from the initial profiles of "thl"
// and "qt" and registers the statistics with s, if s is not nil.
func (t *Thermo) Create(p *lesthermo.Profiles, s *lesthermo.Stats) error {
	g := t.grid
	thl, err := p.Interpolate(g, "thl")
	if err != nil {
		return err
	}
	qt, err := p.Interpolate(g, "qt")
	if err != nil {
		return err
	}
	g.ExtrapolateGhosts(thl)
	g.ExtrapolateGhosts(qt)
	if err := t.solve(thl, qt); err != nil {
		return err
	}
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
		{"ql", "Liquid water mixing ratio", "kg kg-1", lesthermo.FullLevel},
		{"cfrac", "Cloud fraction", "-", lesthermo.FullLevel},
	} {
		if err := s.AddProf(p.name, p.longName, p.units, p.level); err != nil {
			return err
		}
	}
	if err := s.AddTimeSeries("lwp", "Liquid water path", "kg m-2"); err != nil {
		return err
	}
	return s.AddTimeSeries("ccover", "Projected cloud cover", "-")
}

// solve solves the reference state and copies the density into the
// fields.
func (t *Thermo) solve(thl, qt []float64) error {
	if err := t.Ref.Solve(thl, qt); err != nil {
		return err
	}
	copy(t.fields.RhoRef, t.Ref.Rho)
	copy(t.fields.RhoRefH, t.Ref.RhoH)
	t.log.WithFields(logrus.Fields{
		"surface_density": t.Ref.RhoH[t.grid.Kstart],
		"top_pressure":    t.Ref.PressureH[t.grid.Kend],
	}).Debug("moist: solved reference state")
	return nil
}

// updateBaseState recalculates the reference state from the current mean
// profiles if base state updating is enabled or the reference state is
// stale.
func (t *Thermo) updateBaseState() error {
	if t.cfg.UpdateBaseState {
		t.Ref.Invalidate()
	}
	if t.Ref.Fresh() {
		return nil
	}
	thl, qt := t.fields.Scalars["thl"], t.fields.Scalars["qt"]
	if err := thl.CalcMean(t.grid); err != nil {
		return err
	}
	if err := qt.CalcMean(t.grid); err != nil {
		return err
	}
	return t.solve(thl.Mean, qt.Mean)
}

// Exec adds the buoyancy at the half levels to the vertical velocity
// tendency.
func (t *Thermo) Exec() error {
	if err := t.updateBaseState(); err != nil {
		return err
	}
	if t.grid.SpatialOrder == 4 {
		return t.buoyancyTend4th()
	}
	return t.buoyancyTend2nd()
}

// ThermoField calculates the buoyancy ("b"), liquid water ("ql") or
// squared Brunt-Väisälä frequency ("N2") in fld, using tmp as scratch.
func (t *Thermo) ThermoField(fld, tmp *lesthermo.Field3D, name string) error {
	if !t.HasThermoField(name) {
		return &lesthermo.UnsupportedError{What: fmt.Sprintf("thermo field %q", name),
			Reason: "moist thermodynamics provides b, ql and N2"}
	}
	if err := t.updateBaseState(); err != nil {
		return err
	}
	switch name {
	case "b":
		return t.buoyancyField(fld, tmp)
	case "ql":
		return t.liquidWaterField(fld)
	default:
		t.n2Field(fld)
		return nil
	}
}
