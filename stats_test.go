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
	"os"
	"path/filepath"
	"testing"
)

func testStats(t *testing.T, order int) (*Grid, *Fields, *Stats) {
	t.Helper()
	g := testGrid(t, order)
	f := NewFields(g, 0.1)
	return g, f, NewStats(g, f)
}

// fill sets every grid point of a 3-D field to fn(i, j, k), where i and
// j are interior indices.
func fill(g *Grid, d []float64, fn func(i, j, k int) float64) {
	for k := 0; k < g.Kcells; k++ {
		for j := 0; j < g.Jcells; j++ {
			for i := 0; i < g.Icells; i++ {
				d[g.Ijk(i, j, k)] = fn(i-g.Istart, j-g.Jstart, k)
			}
		}
	}
}

func TestStatsMoments(t *testing.T) {
	g, f, s := testStats(t, 2)
	fill(g, f.Tmp1.Data.Elements, func(i, j, k int) float64 { return float64(i) })
	mean := make([]float64, g.Kcells)
	if err := s.CalcMean(f.Tmp1.Data.Elements, mean); err != nil {
		t.Fatal(err)
	}
	m2 := make([]float64, g.Kcells)
	if err := s.CalcMoment(f.Tmp1.Data.Elements, mean, m2, 2, false); err != nil {
		t.Fatal(err)
	}
	m3 := make([]float64, g.Kcells)
	if err := s.CalcMoment(f.Tmp1.Data.Elements, mean, m3, 3, false); err != nil {
		t.Fatal(err)
	}
	for k := g.Kstart; k < g.Kend; k++ {
		if mean[k] != 1.5 {
			t.Errorf("mean[%d] = %g", k, mean[k])
		}
		if different(m2[k], 1.25, 1.e-12) {
			t.Errorf("moment 2 [%d] = %g", k, m2[k])
		}
		if m3[k] != 0 {
			t.Errorf("moment 3 [%d] = %g", k, m3[k])
		}
	}
}

func TestStatsGradFluxDiff(t *testing.T) {
	for _, order := range []int{2, 4} {
		g, f, s := testStats(t, order)
		fld := f.Tmp1
		fill(g, fld.Data.Elements, func(i, j, k int) float64 { return 2 * g.Z[k] })
		grad := make([]float64, g.Kcells)
		if err := s.CalcGrad(fld.Data.Elements, grad); err != nil {
			t.Fatal(err)
		}
		for k := g.Kstart; k <= g.Kend; k++ {
			if different(grad[k], 2, 1.e-12) {
				t.Errorf("order %d: grad[%d] = %g", order, k, grad[k])
			}
		}

		for i := range fld.FluxBot.Elements {
			fld.FluxBot.Elements[i] = 0.5
		}
		diff := make([]float64, g.Kcells)
		if err := s.CalcDiff(fld, diff); err != nil {
			t.Fatal(err)
		}
		if diff[g.Kstart] != 0.5 || diff[g.Kend] != 0 {
			t.Errorf("order %d: boundary fluxes %g, %g", order, diff[g.Kstart], diff[g.Kend])
		}
		for k := g.Kstart + 1; k < g.Kend; k++ {
			if different(diff[k], -0.2, 1.e-12) {
				t.Errorf("order %d: diff[%d] = %g", order, k, diff[k])
			}
		}

		fill(g, fld.Data.Elements, func(i, j, k int) float64 { return float64(i) })
		fill(g, f.W.Data.Elements, func(i, j, k int) float64 { return float64(i) })
		mean := make([]float64, g.Kcells)
		if err := s.CalcMean(fld.Data.Elements, mean); err != nil {
			t.Fatal(err)
		}
		flux := make([]float64, g.Kcells)
		if err := s.CalcFlux(fld.Data.Elements, mean, flux); err != nil {
			t.Fatal(err)
		}
		total := make([]float64, g.Kcells)
		s.AddFluxes(total, flux, diff)
		for k := g.Kstart + 1; k < g.Kend; k++ {
			if different(flux[k], 1.25, 1.e-12) {
				t.Errorf("order %d: flux[%d] = %g", order, k, flux[k])
			}
			if different(total[k], 1.05, 1.e-12) {
				t.Errorf("order %d: total flux[%d] = %g", order, k, total[k])
			}
		}
	}
}

func TestStatsEddyDiffusivity(t *testing.T) {
	g, f, s := testStats(t, 2)
	evisc := NewField3D(g, "evisc", "", "")
	fill(g, evisc.Data.Elements, func(i, j, k int) float64 { return 3 })
	f.Diagnostics["evisc"] = evisc
	fill(g, f.Tmp1.Data.Elements, func(i, j, k int) float64 { return g.Z[k] })
	diff := make([]float64, g.Kcells)
	if err := s.CalcDiff(f.Tmp1, diff); err != nil {
		t.Fatal(err)
	}
	for k := g.Kstart + 1; k < g.Kend; k++ {
		if different(diff[k], -9, 1.e-12) {
			t.Errorf("diff[%d] = %g", k, diff[k])
		}
	}
}

func TestStatsCloud(t *testing.T) {
	g, f, s := testStats(t, 2)
	ql := f.Tmp1.Data.Elements
	for k := g.Kstart; k < g.Kstart+2; k++ {
		ql[g.Ijk(g.Istart+1, g.Jstart+2, k)] = 1.e-3
	}
	ql[g.Ijk(g.Istart, g.Jstart, g.Kstart)] = 1.e-3
	count := make([]float64, g.Kcells)
	if err := s.CalcCount(ql, count, 0); err != nil {
		t.Fatal(err)
	}
	if count[g.Kstart] != 2./12 || count[g.Kstart+1] != 1./12 || count[g.Kstart+2] != 0 {
		t.Errorf("count = %v", count)
	}
	cover, err := s.CalcCover(ql, 0)
	if err != nil {
		t.Fatal(err)
	}
	if cover != 2./12 {
		t.Errorf("cover = %g", cover)
	}
	f.RhoRef[g.Kstart] = 1.2
	path, err := s.CalcPath(ql)
	if err != nil {
		t.Fatal(err)
	}
	if want := (2*1.2*1.e-3*100 + 1.e-3*100) / 12; different(path, want, 1.e-12) {
		t.Errorf("path = %g, want %g", path, want)
	}
}

func TestStatsWrite(t *testing.T) {
	g, _, s := testStats(t, 2)
	if err := s.AddProf("b", "Buoyancy", "m s-2", FullLevel); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProf("bflux", "Buoyancy flux", "m2 s-3", HalfLevel); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProf("b", "Buoyancy", "m s-2", FullLevel); err == nil {
		t.Error("registering a profile twice should fail")
	}
	if err := s.AddProf("x", "", "", "zz"); err == nil {
		t.Error("invalid level should fail")
	}
	if err := s.AddTimeSeries("lwp", "Liquid water path", "kg m-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Prof("c"); err == nil {
		t.Error("missing profile should fail")
	}
	if err := s.SetTimeSeries("c", 1); err == nil {
		t.Error("missing time series should fail")
	}

	path := filepath.Join(t.TempDir(), "stats.nc")
	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := s.Write(w); err == nil {
		t.Error("writing without samples should fail")
	}

	b, _ := s.Prof("b")
	for it := 0; it < 2; it++ {
		for k := range b {
			b[k] = float64(10*it + k)
		}
		if err := s.SetTimeSeries("lwp", float64(it)+0.5); err != nil {
			t.Fatal(err)
		}
		s.Sample(float64(60*it), 10*it)
	}
	if err := s.Write(w); err != nil {
		t.Fatal(err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	bOut, err := ReadNetCDF(r, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(bOut.Shape) != 2 || bOut.Shape[0] != 2 || bOut.Shape[1] != g.Ktot {
		t.Fatalf("shape %v", bOut.Shape)
	}
	if v := bOut.Get(1, 0); v != float64(10+g.Kstart) {
		t.Errorf("b(1, 0) = %g", v)
	}
	fluxOut, err := ReadNetCDF(r, "bflux")
	if err != nil {
		t.Fatal(err)
	}
	if fluxOut.Shape[1] != g.Ktot+1 {
		t.Errorf("half level profile shape %v", fluxOut.Shape)
	}
	lwp, err := ReadNetCDF(r, "lwp")
	if err != nil {
		t.Fatal(err)
	}
	if lwp.Elements[0] != 0.5 || lwp.Elements[1] != 1.5 {
		t.Errorf("lwp = %v", lwp.Elements)
	}
	tOut, err := ReadNetCDF(r, "t")
	if err != nil {
		t.Fatal(err)
	}
	if tOut.Elements[1] != 60 {
		t.Errorf("time = %v", tOut.Elements)
	}
}
