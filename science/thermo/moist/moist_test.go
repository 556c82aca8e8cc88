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
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kr/pretty"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/lesthermo"
	tf "github.com/spatialmodel/lesthermo/science/thermo/thermofunc"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// uniformProfiles returns constant initial profiles.
func uniformProfiles(thl, qt float64) *lesthermo.Profiles {
	return &lesthermo.Profiles{
		Z:    []float64{0, 1000},
		Vars: map[string][]float64{"thl": {thl, thl}, "qt": {qt, qt}},
	}
}

// setup creates a 10 level, 100 m resolution column of 4x3 grid cells
// with uniform fields.
func setup(t *testing.T, order int, update bool, thl, qt float64) (*lesthermo.Grid, *lesthermo.Fields, *Thermo) {
	t.Helper()
	g, err := lesthermo.NewGrid(lesthermo.GridConfig{Itot: 4, Jtot: 3, Ktot: 10,
		Xsize: 400, Ysize: 300, Zsize: 1000, SpatialOrder: order}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f := lesthermo.NewFields(g, 1.e-5)
	th, err := New(g, f, Config{SurfacePressure: 1.e5, UpdateBaseState: update}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := th.Create(uniformProfiles(thl, qt), nil); err != nil {
		t.Fatal(err)
	}
	setUniform(f, thl, qt)
	return g, f, th
}

func setUniform(f *lesthermo.Fields, thl, qt float64) {
	for i := range f.Scalars["thl"].Data.Elements {
		f.Scalars["thl"].Data.Elements[i] = thl
		f.Scalars["qt"].Data.Elements[i] = qt
	}
	f.Boundary()
}

func TestDryReferenceState(t *testing.T) {
	for _, order := range []int{2, 4} {
		g, _, th := setup(t, order, true, 300, 0)
		r := th.Ref
		kappa := tf.Rd / tf.Cp
		for k := g.Kstart; k < g.Kend; k++ {
			want := math.Pow(math.Pow(1.e5, kappa)-tf.Grav*math.Pow(tf.P0, kappa)*g.Z[k]/(tf.Cp*300), 1/kappa)
			if different(r.Pressure[k], want, 1.e-9) {
				t.Errorf("order %d, level %d: pressure %g, want %g", order, k, r.Pressure[k], want)
			}
			if k > g.Kstart && r.Pressure[k] >= r.Pressure[k-1] {
				t.Errorf("order %d: pressure does not decrease at level %d", order, k)
			}
			if r.Thv[k] != 300 || r.ThvH[k] != 300 {
				t.Errorf("order %d, level %d: thv=%g, thvh=%g", order, k, r.Thv[k], r.ThvH[k])
			}
			if different(r.Rho[k], r.Pressure[k]/(tf.Rd*tf.Exner(r.Pressure[k])*300), 1.e-12) {
				t.Errorf("order %d, level %d: density %g", order, k, r.Rho[k])
			}
		}
		// Discrete hydrostatic balance between adjacent full levels.
		for k := g.Kstart + 1; k < g.Kend; k++ {
			lhs := math.Pow(r.Pressure[k], kappa)
			rhs := math.Pow(r.Pressure[k-1], kappa) - tf.Grav*math.Pow(tf.P0, kappa)*g.Dzh[k]/(tf.Cp*r.ThvH[k])
			if different(lhs, rhs, 1.e-12) {
				t.Errorf("order %d, level %d: %g != %g", order, k, lhs, rhs)
			}
		}
		if r.PressureH[g.Kstart] != 1.e5 {
			t.Errorf("surface pressure = %g", r.PressureH[g.Kstart])
		}
	}
}

func TestGhostCells(t *testing.T) {
	for _, order := range []int{2, 4} {
		g, err := lesthermo.NewGrid(lesthermo.GridConfig{Itot: 2, Jtot: 2, Ktot: 20,
			Xsize: 200, Ysize: 200, Zsize: 2000, SpatialOrder: order}, nil)
		if err != nil {
			t.Fatal(err)
		}
		r := NewReferenceState(g, 1.e5)
		thl := make([]float64, g.Kcells)
		qt := make([]float64, g.Kcells)
		for k := range thl {
			thl[k] = 290 + 0.004*g.Z[k]
			qt[k] = 0.014 - 4.e-6*g.Z[k]
		}
		if err := r.Solve(thl, qt); err != nil {
			t.Fatal(err)
		}
		ks, ke := g.Kstart, g.Kend
		for _, p := range []struct {
			name       string
			full, half []float64
		}{
			{"pressure", r.Pressure, r.PressureH},
			{"exner", r.Exner, r.ExnerH},
			{"thv", r.Thv, r.ThvH},
			{"rho", r.Rho, r.RhoH},
		} {
			for n := 1; n <= g.Kgc; n++ {
				if p.full[ks-n] != 2*p.half[ks]-p.full[ks+n-1] {
					t.Errorf("order %d: %s bottom ghost %d = %g", order, p.name, n, p.full[ks-n])
				}
				if p.full[ke+n-1] != 2*p.half[ke]-p.full[ke-n] {
					t.Errorf("order %d: %s top ghost %d = %g", order, p.name, n, p.full[ke+n-1])
				}
				if p.half[ks-n] != 2*p.half[ks]-p.half[ks+n] {
					t.Errorf("order %d: %s bottom half-level ghost %d = %g", order, p.name, n, p.half[ks-n])
				}
				if ke+n < g.Kcells && p.half[ke+n] != 2*p.half[ke]-p.half[ke-n] {
					t.Errorf("order %d: %s top half-level ghost %d = %g", order, p.name, n, p.half[ke+n])
				}
			}
		}
		// The profile is saturated near the surface, so condensation
		// increases thv above its dry value.
		if r.Thv[ks] <= tf.VirtualPotentialTemperature(thl[ks], qt[ks], 0)+1 {
			t.Errorf("order %d: thv at the lowest level = %g", order, r.Thv[ks])
		}
	}
}

func TestReferenceStateLifecycle(t *testing.T) {
	g, err := lesthermo.NewGrid(lesthermo.GridConfig{Itot: 2, Jtot: 2, Ktot: 10,
		Xsize: 200, Ysize: 200, Zsize: 1000, SpatialOrder: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f := lesthermo.NewFields(g, 0)
	th, err := New(g, f, Config{SurfacePressure: 1.e5, UpdateBaseState: false}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if th.Ref.Fresh() {
		t.Fatal("reference state should be stale before creation")
	}
	if err := th.Create(uniformProfiles(300, 0), nil); err != nil {
		t.Fatal(err)
	}
	if !th.Ref.Fresh() {
		t.Fatal("reference state should be fresh after creation")
	}
	want := append([]float64(nil), th.Ref.Thv...)

	// Without base state updating, warmer fields do not change the
	// reference state.
	setUniform(f, 302, 0)
	if err := th.Exec(); err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(th.Ref.Thv, want); len(diff) != 0 {
		t.Errorf("reference state changed: %v", diff)
	}

	th.cfg.UpdateBaseState = true
	if err := th.Exec(); err != nil {
		t.Fatal(err)
	}
	if !th.Ref.Fresh() {
		t.Error("reference state should be fresh after update")
	}
	if th.Ref.Thv[g.Kstart] != 302 {
		t.Errorf("updated thv = %g, want 302", th.Ref.Thv[g.Kstart])
	}
	if diff := pretty.Diff(f.RhoRef, th.Ref.Rho); len(diff) != 0 {
		t.Errorf("field density differs from reference state: %v", diff)
	}
}

// A uniform dry atmosphere is in exact equilibrium with its reference
// state.
func TestUniformNoBuoyancy(t *testing.T) {
	for _, order := range []int{2, 4} {
		g, f, th := setup(t, order, true, 300, 0)
		if err := th.Exec(); err != nil {
			t.Fatal(err)
		}
		for i, v := range f.Wt.Data.Elements {
			if v != 0 {
				t.Fatalf("order %d: wt[%d] = %g", order, i, v)
			}
		}
		for _, name := range []string{"b", "ql"} {
			if err := th.ThermoField(f.Tmp1, f.Tmp2, name); err != nil {
				t.Fatal(err)
			}
			for k := g.Kstart; k < g.Kend; k++ {
				for j := g.Jstart; j < g.Jend; j++ {
					for i := g.Istart; i < g.Iend; i++ {
						if v := f.Tmp1.Data.Elements[g.Ijk(i, j, k)]; v != 0 {
							t.Errorf("order %d: %s(%d,%d,%d) = %g", order, name, i, j, k, v)
						}
					}
				}
			}
		}
	}
}

func TestWarmAirRises(t *testing.T) {
	for _, order := range []int{2, 4} {
		g, f, th := setup(t, order, false, 300, 0.005)
		setUniform(f, 301, 0.005)
		if err := th.Exec(); err != nil {
			t.Fatal(err)
		}
		if err := th.ThermoField(f.Tmp1, f.Tmp2, "b"); err != nil {
			t.Fatal(err)
		}
		for k := g.Kstart; k < g.Kend; k++ {
			for j := g.Jstart; j < g.Jend; j++ {
				for i := g.Istart; i < g.Iend; i++ {
					ijk := g.Ijk(i, j, k)
					if k > g.Kstart && f.Wt.Data.Elements[ijk] <= 0 {
						t.Errorf("order %d: wt(%d,%d,%d) = %g", order, i, j, k, f.Wt.Data.Elements[ijk])
					}
					if f.Tmp1.Data.Elements[ijk] <= 0 {
						t.Errorf("order %d: b(%d,%d,%d) = %g", order, i, j, k, f.Tmp1.Data.Elements[ijk])
					}
				}
			}
		}
	}
}

func TestSupersaturatedColumn(t *testing.T) {
	g, f, th := setup(t, 2, false, 290, 0.005)
	i, j, k := g.Istart+1, g.Jstart+1, g.Kstart+2
	ijk := g.Ijk(i, j, k)
	p := th.Ref.Pressure[k]
	qs := tf.Qsat(p, 290*tf.ExnerPoly(p))

	last := math.Inf(1)
	for _, dq := range []float64{4.e-3, 3.e-3, 2.e-3, 1.e-3, 5.e-4, 1.e-4, 0} {
		f.Scalars["qt"].Data.Elements[ijk] = qs + dq
		if err := th.ThermoField(f.Tmp1, f.Tmp2, "ql"); err != nil {
			t.Fatal(err)
		}
		ql := f.Tmp1.Data.Elements[ijk]
		if dq > 0 && (ql <= 0 || ql >= last) {
			t.Errorf("qt-qs=%g: ql=%g, previous %g", dq, ql, last)
		}
		if dq == 0 && ql != 0 {
			t.Errorf("ql at saturation = %g", ql)
		}
		if other := f.Tmp1.Data.Elements[g.Ijk(g.Istart, g.Jstart, k)]; other != 0 {
			t.Errorf("unsaturated neighbor has ql=%g", other)
		}
		last = ql
	}
}

func TestBuoyancySurf(t *testing.T) {
	g, f, th := setup(t, 2, false, 300, 0.01)
	thl, qt := f.Scalars["thl"], f.Scalars["qt"]
	for i := range thl.FluxBot.Elements {
		thl.FluxBot.Elements[i] = 0.1
		qt.FluxBot.Elements[i] = 1.e-4
	}
	if err := th.BuoyancySurf(f.Tmp1); err != nil {
		t.Fatal(err)
	}
	ks := g.Kstart
	ij := g.Ij(g.Istart, g.Jstart)
	wantBot := tf.BuoyancyNoQl(300, 0.01, th.Ref.ThvH[ks])
	if f.Tmp1.Bot.Elements[ij] != wantBot {
		t.Errorf("bbot = %g, want %g", f.Tmp1.Bot.Elements[ij], wantBot)
	}
	wantFlux := tf.BuoyancyFluxNoQl(300, 0.1, 0.01, 1.e-4, th.Ref.ThvH[ks])
	if f.Tmp1.FluxBot.Elements[ij] != wantFlux || wantFlux <= 0 {
		t.Errorf("bfluxbot = %g, want %g", f.Tmp1.FluxBot.Elements[ij], wantFlux)
	}
	if b := f.Tmp1.Data.Elements[g.Ijk(g.Istart, g.Jstart, ks)]; math.Abs(b) > 1.e-12 {
		t.Errorf("lowest level buoyancy = %g", b)
	}
}

func TestN2(t *testing.T) {
	g, f, th := setup(t, 2, false, 300, 0)
	thl := f.Scalars["thl"].Data.Elements
	for k := 0; k < g.Kcells; k++ {
		for n := k * g.Ijcells; n < (k+1)*g.Ijcells; n++ {
			thl[n] = 300 + 0.003*g.Z[k]
		}
	}
	if err := th.ThermoField(f.Tmp1, f.Tmp2, "N2"); err != nil {
		t.Fatal(err)
	}
	k := g.Kstart + 4
	want := tf.Grav / th.Ref.Thv[k] * 0.003
	if got := f.Tmp1.Data.Elements[g.Ijk(g.Istart, g.Jstart, k)]; different(got, want, 1.e-9) {
		t.Errorf("N2 = %g, want %g", got, want)
	}
}

func TestErrors(t *testing.T) {
	g, err := lesthermo.NewGrid(lesthermo.GridConfig{Itot: 2, Jtot: 2, Ktot: 10,
		Xsize: 200, Ysize: 200, Zsize: 1000, SpatialOrder: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(g, lesthermo.NewFields(g, 0), Config{}, nil)
	var cfgErr *lesthermo.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != "thermo.pbot" {
		t.Errorf("missing surface pressure: %v", err)
	}

	_, f, th := setup(t, 2, true, 300, 0)
	err = th.ThermoField(f.Tmp1, f.Tmp2, "qr")
	if !errors.Is(err, lesthermo.ErrUnsupported) {
		t.Errorf("unsupported field: %v", err)
	}
	if th.HasThermoField("qr") || !th.HasThermoField("N2") {
		t.Error("HasThermoField")
	}

	f.Scalars["thl"].Data.Elements[g.Ijk(1, 1, g.Kstart)] = math.NaN()
	err = th.Exec()
	if !errors.Is(err, lesthermo.ErrNumericalDivergence) {
		t.Errorf("NaN temperature: %v", err)
	}
	if !errors.Is(err, tf.ErrNoConvergence) {
		t.Errorf("NaN temperature should wrap the saturation adjustment error: %v", err)
	}
}

func TestCrossList(t *testing.T) {
	for _, tc := range []struct {
		order    int
		want     []string
		warnings int
	}{
		{order: 2, want: []string{"b", "bbot", "ql"}, warnings: 2},
		{order: 4, want: []string{"b", "bbot", "blngrad", "ql"}, warnings: 1},
	} {
		g, err := lesthermo.NewGrid(lesthermo.GridConfig{Itot: 4, Jtot: 4, Ktot: 8,
			Xsize: 400, Ysize: 400, Zsize: 800, SpatialOrder: tc.order}, nil)
		if err != nil {
			t.Fatal(err)
		}
		logger, hook := test.NewNullLogger()
		th, err := New(g, lesthermo.NewFields(g, 0), Config{SurfacePressure: 1.e5,
			CrossList: []string{"ql", "thl", "blngrad", "bbot", "b"}}, logger)
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(th.CrossList(), tc.want); len(diff) != 0 {
			t.Errorf("order %d: %v", tc.order, diff)
		}
		if len(hook.Entries) != tc.warnings {
			t.Errorf("order %d: %d warnings, want %d", tc.order, len(hook.Entries), tc.warnings)
		}
	}
}

func TestStatsAndCross(t *testing.T) {
	g, f, th := setup(t, 4, true, 300, 0)
	th.crossList = []string{"b", "bbot", "bfluxbot", "blngrad", "ql", "qlpath"}
	s := lesthermo.NewStats(g, f)
	if err := th.Create(uniformProfiles(300, 0), s); err != nil {
		t.Fatal(err)
	}
	if err := th.ExecStats(s); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b", "b2", "bgrad", "bw", "bflux", "ql", "cfrac"} {
		p, err := s.Prof(name)
		if err != nil {
			t.Fatal(err)
		}
		for k := g.Kstart; k < g.Kend; k++ {
			if math.Abs(p[k]) > 1.e-12 {
				t.Errorf("%s[%d] = %g", name, k, p[k])
			}
		}
	}
	if s.Series["lwp"].Data != 0 || s.Series["ccover"].Data != 0 {
		t.Errorf("lwp=%g, ccover=%g", s.Series["lwp"].Data, s.Series["ccover"].Data)
	}

	dir := t.TempDir()
	c, err := lesthermo.NewCross(g, f, dir, []int{1}, []int{0, 3})
	if err != nil {
		t.Fatal(err)
	}
	c.SetTime(60, 6)
	if err := th.ExecCross(c); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"b.xz.00001.0000006.nc", "b.xy.00000.0000006.nc", "b.xy.00003.0000006.nc",
		"blngrad.xz.00001.0000006.nc", "ql.xy.00003.0000006.nc",
		"qlpath.xy.0000006.nc", "bbot.xy.0000006.nc", "bfluxbot.xy.0000006.nc",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}
}

func TestModelRun(t *testing.T) {
	g, err := lesthermo.NewGrid(lesthermo.GridConfig{Itot: 4, Jtot: 4, Ktot: 12,
		Xsize: 400, Ysize: 400, Zsize: 1200, SpatialOrder: 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f := lesthermo.NewFields(g, 1.e-5)
	logger, _ := test.NewNullLogger()
	th, err := New(g, f, Config{SurfacePressure: 1.e5, UpdateBaseState: true,
		CrossList: []string{"b", "qlpath"}}, logger)
	if err != nil {
		t.Fatal(err)
	}
	p := &lesthermo.Profiles{
		Z:    []float64{0, 600, 1200},
		Vars: map[string][]float64{"thl": {290, 291, 296}, "qt": {0.012, 0.011, 0.004}},
	}
	dir := t.TempDir()
	c, err := lesthermo.NewCross(g, f, dir, []int{0}, []int{5})
	if err != nil {
		t.Fatal(err)
	}
	m := &lesthermo.Model{
		Grid:    g,
		Fields:  f,
		Thermo:  th,
		Stats:   lesthermo.NewStats(g, f),
		Cross:   c,
		Dt:      1,
		EndTime: 4,
		InitFuncs: []lesthermo.DomainManipulator{
			lesthermo.CreateThermo(p),
			lesthermo.SetInitialFields(p, 0.2, 1),
		},
		RunFuncs: []lesthermo.DomainManipulator{
			lesthermo.ClearTendencies(),
			lesthermo.StatsEvery(2),
			lesthermo.CrossEvery(2),
			lesthermo.ExecThermo(),
			lesthermo.IntegrateW(),
			lesthermo.EndTimeCheck(),
			lesthermo.Log(logger),
		},
	}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if len(m.Stats.Time) != 2 {
		t.Errorf("statistics sampled at %v", m.Stats.Time)
	}
	if m.Fields.W.Data.AbsMax() == 0 {
		t.Error("buoyancy did not accelerate the flow")
	}
	lwp := m.Stats.Series["lwp"].Data
	if !(lwp > 0) {
		t.Errorf("liquid water path = %g", lwp)
	}
	w, err := os.Create(filepath.Join(dir, "stats.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := m.Stats.Write(w); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.xz.00000.0000002.nc", "b.xy.00005.0000000.nc", "qlpath.xy.0000002.nc"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}
}
