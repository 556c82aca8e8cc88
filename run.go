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
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Rows concurrently calls f for every interior row j of grid g. It
// returns the first error encountered.
func Rows(g *Grid, f func(j int) error) error {
	nprocs := runtime.GOMAXPROCS(0) // number of processors
	var eg errgroup.Group
	for pp := 0; pp < nprocs; pp++ {
		pp := pp
		eg.Go(func() error {
			for j := g.Jstart + pp; j < g.Jend; j += nprocs {
				if err := f(j); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

// SetInitialFields sets the prognostic scalars of the thermodynamics
// scheme to the given profiles, adds uniformly distributed random
// perturbations with amplitude amp to the first scalar, and fills the
// ghost cells.
func SetInitialFields(p *Profiles, amp float64, seed int64) DomainManipulator {
	return func(m *Model) error {
		g := m.Grid
		r := rand.New(rand.NewSource(seed))
		for n, name := range m.Thermo.ProgVars() {
			prof, err := p.Interpolate(g, name)
			if err != nil {
				return err
			}
			s, err := m.Fields.Scalar(name)
			if err != nil {
				return err
			}
			d := s.Data.Elements
			for k := g.Kstart; k < g.Kend; k++ {
				for j := g.Jstart; j < g.Jend; j++ {
					for i := g.Istart; i < g.Iend; i++ {
						d[g.Ijk(i, j, k)] = prof[k]
						if n == 0 && amp != 0 {
							d[g.Ijk(i, j, k)] += amp * (r.Float64() - 0.5)
						}
					}
				}
			}
		}
		m.Fields.Boundary()
		return nil
	}
}

// CreateThermo sets up the thermodynamics scheme from the initial profiles.
func CreateThermo(p *Profiles) DomainManipulator {
	return func(m *Model) error {
		if err := m.Thermo.Create(p, m.Stats); err != nil {
			return fmt.Errorf("lesthermo: creating thermodynamics: %w", err)
		}
		return nil
	}
}

// ClearTendencies sets all tendencies to zero and fills the ghost cells
// of the prognostic fields.
func ClearTendencies() DomainManipulator {
	return func(m *Model) error {
		for _, t := range m.Fields.Tendencies {
			t.Zero()
		}
		m.Fields.Wt.Zero()
		m.Fields.Boundary()
		return nil
	}
}

// ExecThermo adds the buoyancy forcing to the vertical velocity tendency.
func ExecThermo() DomainManipulator {
	return func(m *Model) error {
		return m.Thermo.Exec()
	}
}

// IntegrateW advances the vertical velocity and the scalars by one time
// step using the forward Euler method and advances the model time.
func IntegrateW() DomainManipulator {
	return func(m *Model) error {
		g := m.Grid
		step := func(v, vt []float64, kstart int) {
			for k := kstart; k < g.Kend; k++ {
				for n := k * g.Ijcells; n < (k+1)*g.Ijcells; n++ {
					v[n] += m.Dt * vt[n]
				}
			}
		}
		step(m.Fields.W.Data.Elements, m.Fields.Wt.Data.Elements, g.Kstart+1)
		for name, s := range m.Fields.Scalars {
			step(s.Data.Elements, m.Fields.Tendencies[name].Data.Elements, g.Kstart)
		}
		m.Time += m.Dt
		m.Iteration++
		return nil
	}
}

// StatsEvery samples the statistics every sampleTime seconds of
// simulation time, starting with the initial state.
func StatsEvery(sampleTime float64) DomainManipulator {
	next := 0.
	return func(m *Model) error {
		if m.Stats == nil || m.Time+0.5*m.Dt < next {
			return nil
		}
		next += sampleTime
		if err := m.Thermo.ExecStats(m.Stats); err != nil {
			return err
		}
		m.Stats.Sample(m.Time, m.Iteration)
		return nil
	}
}

// CrossEvery writes cross sections every sampleTime seconds of simulation
// time, starting with the initial state.
func CrossEvery(sampleTime float64) DomainManipulator {
	next := 0.
	return func(m *Model) error {
		if m.Cross == nil || m.Time+0.5*m.Dt < next {
			return nil
		}
		next += sampleTime
		m.Cross.SetTime(m.Time, m.Iteration)
		return m.Thermo.ExecCross(m.Cross)
	}
}

// EndTimeCheck sets m.Done once the simulation time reaches m.EndTime.
func EndTimeCheck() DomainManipulator {
	return func(m *Model) error {
		if m.Time+0.5*m.Dt >= m.EndTime {
			m.Done = true
		}
		return nil
	}
}

// Log logs the progress of the simulation after every time step.
func Log(log logrus.FieldLogger) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()
	return func(m *Model) error {
		log.WithFields(logrus.Fields{
			"iteration": m.Iteration,
			"time":      m.Time,
			"walltime":  time.Since(startTime).Seconds(),
			"Δwalltime": time.Since(timeStepTime).Seconds(),
			"maxw":      m.Fields.W.Data.AbsMax(),
		}).Info("lesthermo: time step complete")
		timeStepTime = time.Now()
		return nil
	}
}
