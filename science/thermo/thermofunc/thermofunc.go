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

// Package thermofunc holds the pointwise thermodynamic relations used by the
// thermodynamics schemes: Exner function, saturation vapour pressure and
// mixing ratio, saturation adjustment, virtual potential temperature,
// buoyancy, and the finite-difference stencils that stagger fields
// between full and half levels.
package thermofunc

import (
	"errors"
	"fmt"
	"math"
)

// Physical constants.
const (
	Rd    = 287.04 // gas constant for dry air [J/(kg K)]
	Rv    = 461.5  // gas constant for water vapour [J/(kg K)]
	Cp    = 1005.  // specific heat of dry air at constant pressure [J/(kg K)]
	Lv    = 2.5e6  // latent heat of vaporization [J/kg]
	Rhow  = 1.e3   // density of liquid water [kg/m³]
	Tmelt = 273.15 // melting temperature of ice [K]
	P0    = 1.e5   // reference pressure for the Exner function [Pa]
	Grav  = 9.81   // gravitational acceleration [m/s²]

	// Ep is the ratio of the gas constants of dry air and water vapour.
	Ep = Rd / Rv

	// Kappa is the Poisson exponent Rd/cp.
	Kappa = Rd / Cp
)

// Coefficients of the 7th order expansion of the Exner function
// around P0.
const (
	ex1 = 2.85611940298507510698e-06
	ex2 = -1.02018879928714644313e-11
	ex3 = 5.82999832046362073082e-17
	ex4 = -3.95621945728655163954e-22
	ex5 = 2.93898686274077761686e-27
	ex6 = -2.30925409555411170635e-32
	ex7 = 1.88513914720731231360e-37
)

// Coefficients of the saturation vapour pressure polynomial, in
// degrees Celsius.
const (
	c0 = 0.6105851e+03
	c1 = 0.4440316e+02
	c2 = 0.1430341e+01
	c3 = 0.2641412e-01
	c4 = 0.2995057e-03
	c5 = 0.2031998e-05
	c6 = 0.6936113e-08
	c7 = 0.2564861e-11
	c8 = -.3704404e-13

	eslMinCelsius = -80.
)

// Saturation adjustment settings.
const (
	// SatAdjustTolerance is the relative temperature change below which
	// the saturation adjustment is considered converged.
	SatAdjustTolerance = 1.e-5

	// SatAdjustMaxIter is the maximum number of Newton iterations.
	SatAdjustMaxIter = 100
)

// ErrNoConvergence is returned when the saturation adjustment fails to
// converge.
var ErrNoConvergence = errors.New("thermofunc: saturation adjustment did not converge")

// Exner returns the exact Exner function (p/P0)^(Rd/cp), where p is
// pressure in Pa.
func Exner(p float64) float64 {
	return math.Pow(p/P0, Kappa)
}

// ExnerPoly returns a polynomial approximation of the Exner function that
// is accurate to better than 1e-6 within 10 kPa of P0.
func ExnerPoly(p float64) float64 {
	dp := p - P0
	return 1 + dp*(ex1+dp*(ex2+dp*(ex3+dp*(ex4+dp*(ex5+dp*(ex6+ex7*dp))))))
}

// Esl returns the saturation vapour pressure over liquid water [Pa] at
// temperature t [K]. Temperatures below -80 °C are treated as -80 °C.
func Esl(t float64) float64 {
	x := math.Max(eslMinCelsius, t-Tmelt)
	return c0 + x*(c1+x*(c2+x*(c3+x*(c4+x*(c5+x*(c6+x*(c7+x*c8)))))))
}

// Qsat returns the saturation mixing ratio [kg/kg] at pressure p [Pa]
// and temperature t [K].
func Qsat(p, t float64) float64 {
	esl := Esl(t)
	return Ep * esl / (p - (1-Ep)*esl)
}

// SatAdjust returns the liquid water specific humidity [kg/kg] in
// thermodynamic equilibrium with liquid water potential temperature thl [K]
// and total water qt [kg/kg] at pressure p [Pa], where exn is the Exner
// function at p. The temperature is found by Newton iteration on
// T + Lv/cp·qsat(T) = thl·exn + Lv/cp·qt.
func SatAdjust(thl, qt, p, exn float64) (float64, error) {
	tl := thl * exn
	tnr := tl
	var qs float64
	for iter := 0; ; iter++ {
		if iter >= SatAdjustMaxIter || math.IsNaN(tnr) || tnr <= 0 {
			return math.NaN(), fmt.Errorf("%w: thl=%g qt=%g p=%g T=%g after %d iterations",
				ErrNoConvergence, thl, qt, p, tnr, iter)
		}
		tnrOld := tnr
		qs = Qsat(p, tnr)
		tnr = tnr - (tnr+(Lv/Cp)*qs-tl-(Lv/Cp)*qt)/(1+(Lv*Lv*qs)/(Rv*Cp*tnr*tnr))
		if math.Abs(tnr-tnrOld)/tnrOld <= SatAdjustTolerance {
			break
		}
	}
	return math.Max(0, qt-qs), nil
}

// LiquidWaterEstimate returns the liquid water that would exist if the
// temperature were equal to the liquid water temperature thl·exn. It is
// positive exactly where the air is supersaturated and SatAdjust needs
// to be called.
func LiquidWaterEstimate(thl, qt, p, exn float64) float64 {
	return qt - Qsat(p, thl*exn)
}

// VirtualPotentialTemperature returns the virtual potential temperature
// of air with potential temperature th, total water qt and liquid water ql.
func VirtualPotentialTemperature(th, qt, ql float64) float64 {
	return th * (1 - (1-Rv/Rd)*qt - Rv/Rd*ql)
}

// Buoyancy returns the buoyancy [m/s²] of air with liquid water potential
// temperature thl, total water qt and liquid water ql at pressure p,
// relative to the reference virtual potential temperature thvref.
func Buoyancy(p, thl, qt, ql, thvref float64) float64 {
	th := thl + Lv*ql/(Cp*ExnerPoly(p))
	return Grav * (VirtualPotentialTemperature(th, qt, ql) - thvref) / thvref
}

// BuoyancyNoQl returns the buoyancy of unsaturated air.
func BuoyancyNoQl(thl, qt, thvref float64) float64 {
	return Grav * (thl*(1-(1-Rv/Rd)*qt) - thvref) / thvref
}

// BuoyancyFluxNoQl returns the buoyancy flux of unsaturated air given
// the fluxes thlFlux and qtFlux of liquid water potential temperature
// and total water.
func BuoyancyFluxNoQl(thl, thlFlux, qt, qtFlux, thvref float64) float64 {
	return Grav / thvref * (thlFlux*(1-(1-Rv/Rd)*qt) - (1-Rv/Rd)*thl*qtFlux)
}
