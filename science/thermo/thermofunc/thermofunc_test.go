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

package thermofunc

import (
	"errors"
	"math"
	"testing"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestExnerPoly(t *testing.T) {
	for p := P0 - 1.e4; p <= P0+1.e4; p += 100 {
		exact, poly := Exner(p), ExnerPoly(p)
		if math.Abs(exact-poly) > 1.e-6 {
			t.Errorf("p=%g: exact %g, polynomial %g", p, exact, poly)
		}
	}
	if ExnerPoly(P0) != 1 {
		t.Errorf("ExnerPoly(P0) = %g", ExnerPoly(P0))
	}
}

func TestEsl(t *testing.T) {
	// Saturation vapour pressure at 20 °C is about 2339 Pa.
	if different(Esl(293.15), 2339, 0.01) {
		t.Errorf("Esl(293.15) = %g", Esl(293.15))
	}
	if Esl(100) != Esl(150) {
		t.Errorf("Esl should be clipped below -80 °C: %g != %g", Esl(100), Esl(150))
	}
	if different(Esl(Tmelt-80), Esl(100), 1.e-9) {
		t.Errorf("Esl at -80 °C = %g, want %g", Esl(Tmelt-80), Esl(100))
	}
	for temp := 200.; temp < 320; temp++ {
		if Esl(temp+1) <= Esl(temp) {
			t.Fatalf("Esl not increasing at %g K", temp)
		}
	}
}

func TestQsat(t *testing.T) {
	// About 14.7 g/kg at 20 °C and 1000 hPa.
	if different(Qsat(1.e5, 293.15), 0.0147, 0.02) {
		t.Errorf("Qsat = %g", Qsat(1.e5, 293.15))
	}
	if Qsat(9.e4, 293.15) <= Qsat(1.e5, 293.15) {
		t.Error("Qsat should increase as pressure decreases")
	}
}

func TestSatAdjust(t *testing.T) {
	const p = 9.e4
	exn := Exner(p)
	const thl = 290.

	t.Run("unsaturated", func(t *testing.T) {
		qs := Qsat(p, thl*exn)
		ql, err := SatAdjust(thl, 0.5*qs, p, exn)
		if err != nil {
			t.Fatal(err)
		}
		if ql != 0 {
			t.Errorf("ql = %g, want 0", ql)
		}
	})

	t.Run("exactly saturated", func(t *testing.T) {
		qs := Qsat(p, thl*exn)
		ql, err := SatAdjust(thl, qs, p, exn)
		if err != nil {
			t.Fatal(err)
		}
		if ql != 0 {
			t.Errorf("ql = %g, want 0", ql)
		}
		if LiquidWaterEstimate(thl, qs, p, exn) != 0 {
			t.Errorf("estimate = %g, want 0", LiquidWaterEstimate(thl, qs, p, exn))
		}
	})

	t.Run("supersaturated", func(t *testing.T) {
		qt := Qsat(p, thl*exn) + 2.e-3
		ql, err := SatAdjust(thl, qt, p, exn)
		if err != nil {
			t.Fatal(err)
		}
		if ql <= 0 || ql >= 2.e-3 {
			t.Fatalf("ql = %g, want between 0 and 2e-3", ql)
		}
		// The adjusted state is saturated.
		temp := thl*exn + Lv/Cp*ql
		if different(qt-ql, Qsat(p, temp), 1.e-4) {
			t.Errorf("qv = %g but qsat = %g", qt-ql, Qsat(p, temp))
		}
		// Applying the adjustment again to the adjusted state does
		// not change the liquid water.
		thl2 := (temp - Lv/Cp*ql) / exn
		ql2, err := SatAdjust(thl2, qt, p, exn)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(ql2-ql) > 1.e-8 {
			t.Errorf("second adjustment: %g != %g", ql2, ql)
		}
	})

	t.Run("monotonic", func(t *testing.T) {
		qs := Qsat(p, thl*exn)
		last := math.Inf(1)
		for qt := qs + 3.e-3; qt >= qs-1.e-3; qt -= 1.e-4 {
			ql, err := SatAdjust(thl, qt, p, exn)
			if err != nil {
				t.Fatal(err)
			}
			if ql > last {
				t.Errorf("qt=%g: ql=%g increased from %g", qt, ql, last)
			}
			last = ql
		}
		if last != 0 {
			t.Errorf("subsaturated ql = %g", last)
		}
	})

	t.Run("divergence", func(t *testing.T) {
		_, err := SatAdjust(math.NaN(), 0.01, p, exn)
		if !errors.Is(err, ErrNoConvergence) {
			t.Errorf("err = %v, want ErrNoConvergence", err)
		}
	})
}

func TestBuoyancy(t *testing.T) {
	const p = 9.e4
	if b := Buoyancy(p, 300, 0, 0, 300); b != 0 {
		t.Errorf("neutral buoyancy = %g", b)
	}
	if b := BuoyancyNoQl(300, 0, 300); b != 0 {
		t.Errorf("neutral unsaturated buoyancy = %g", b)
	}
	if BuoyancyNoQl(301, 0, 300) <= 0 {
		t.Error("warm air should be positively buoyant")
	}
	if BuoyancyNoQl(300, 0.01, 300) <= 0 {
		t.Error("moist air should be positively buoyant")
	}
	if Buoyancy(p, 300, 0.01, 0, 300) != BuoyancyNoQl(300, 0.01, 300) {
		t.Error("buoyancy without liquid water should match unsaturated form")
	}
	// Liquid water loading reduces buoyancy relative to the same
	// virtual temperature without condensate.
	if Buoyancy(p, 300, 0.01, 0.001, 300) >= Buoyancy(p, 300+Lv*0.001/(Cp*ExnerPoly(p)), 0.01, 0, 300) {
		t.Error("liquid water loading should reduce buoyancy")
	}
	want := Grav / 300 * 0.1
	if different(BuoyancyFluxNoQl(300, 0.1, 0, 0, 300), want, 1.e-12) {
		t.Errorf("buoyancy flux = %g, want %g", BuoyancyFluxNoQl(300, 0.1, 0, 0, 300), want)
	}
}

func TestStencils(t *testing.T) {
	if Interp2(1, 3) != 2 {
		t.Error("Interp2")
	}
	if Interp4(300, 300, 300, 300) != 300 {
		t.Error("Interp4 of a constant")
	}
	// Exact for cubic polynomials.
	f := func(x float64) float64 { return 2 + x - 3*x*x + 0.5*x*x*x }
	if different(Interp4(f(-1.5), f(-0.5), f(0.5), f(1.5)), f(0), 1.e-12) {
		t.Errorf("Interp4 = %g, want %g", Interp4(f(-1.5), f(-0.5), f(0.5), f(1.5)), f(0))
	}
	if Grad4(-1.5, -0.5, 0.5, 1.5) != 1 {
		t.Error("Grad4 of a line")
	}
	if Grad4x(-2, -1, 1, 2) != 1 {
		t.Error("Grad4x of a line")
	}
}
