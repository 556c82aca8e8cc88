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

// Version gives the version number.
const Version = "0.3.0"

// DomainManipulator is a class of functions that operate on the entire
// model domain.
type DomainManipulator func(m *Model) error

// Model holds the current state of a simulation.
type Model struct {
	Grid   *Grid
	Fields *Fields
	Thermo Thermo

	// Stats and Cross are optional.
	Stats *Stats
	Cross *Cross

	Dt      float64 // time step [s]
	EndTime float64 // simulation end time [s]
	Time    float64 // current simulation time [s]

	Iteration int

	// Done is set to true when the simulation is finished.
	Done bool

	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, RunFuncs must set "Done" to true
	// at some point or the simulation will never end.
	RunFuncs []DomainManipulator
}

// Init initializes the simulation by running m.InitFuncs.
func (m *Model) Init() error {
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running m.RunFuncs until m.Done is true.
func (m *Model) Run() error {
	for !m.Done {
		for _, f := range m.RunFuncs {
			if err := f(m); err != nil {
				return err
			}
		}
	}
	return nil
}
