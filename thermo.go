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

// Thermo is an interface for thermodynamics schemes. A scheme owns a set
// of prognostic scalars in Fields and supplies the buoyancy forcing of the
// vertical velocity.
type Thermo interface {
	// Create sets up the reference state from the initial profiles and
	// registers the statistics of the scheme with s, if s is not nil.
	Create(p *Profiles, s *Stats) error

	// Exec adds the buoyancy to the vertical velocity tendency.
	Exec() error

	// ExecStats calculates the statistics of the scheme.
	ExecStats(s *Stats) error

	// ExecCross writes the cross sections of the scheme.
	ExecCross(c *Cross) error

	// ThermoField calculates the named diagnostic field and stores it in
	// fld, using tmp as scratch space. It returns an UnsupportedError if
	// the scheme does not provide the field.
	ThermoField(fld, tmp *Field3D, name string) error

	// HasThermoField reports whether ThermoField can calculate the named
	// field.
	HasThermoField(name string) bool

	// BuoyancySurf sets the surface buoyancy in fld.Bot, the surface
	// buoyancy flux in fld.FluxBot, and the buoyancy of the lowest level.
	BuoyancySurf(fld *Field3D) error

	// BuoyancyFluxBot sets the surface buoyancy flux in fld.FluxBot.
	BuoyancyFluxBot(fld *Field3D) error

	// ProgVars returns the names of the prognostic scalars of the scheme.
	ProgVars() []string

	// CrossList returns the validated names of the cross sections the
	// scheme writes.
	CrossList() []string
}
