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

package lesutil

import (
	"fmt"
	"os"

	"github.com/spatialmodel/lesthermo"
	"github.com/spatialmodel/lesthermo/science/thermo/dry"
	"github.com/spatialmodel/lesthermo/science/thermo/moist"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type baseProfile struct {
	name, longName, units, level string
	data                         []float64
}

// baseStateProfiles returns the reference state profiles of th. The first
// profile is the (virtual) potential temperature.
func baseStateProfiles(th lesthermo.Thermo) ([]baseProfile, error) {
	z, zh := lesthermo.FullLevel, lesthermo.HalfLevel
	switch t := th.(type) {
	case *moist.Thermo:
		r := t.Ref
		if !r.Fresh() {
			return nil, fmt.Errorf("lesthermo: the reference state has not been calculated")
		}
		return []baseProfile{
			{"thv", "Reference virtual potential temperature", "K", z, r.Thv},
			{"thvh", "Reference virtual potential temperature", "K", zh, r.ThvH},
			{"p", "Reference pressure", "Pa", z, r.Pressure},
			{"ph", "Reference pressure", "Pa", zh, r.PressureH},
			{"exner", "Reference Exner function", "-", z, r.Exner},
			{"exnerh", "Reference Exner function", "-", zh, r.ExnerH},
			{"rho", "Reference density", "kg m-3", z, r.Rho},
			{"rhoh", "Reference density", "kg m-3", zh, r.RhoH},
		}, nil
	case *dry.Thermo:
		r := t.Ref
		if r == nil {
			return nil, fmt.Errorf("lesthermo: the reference state has not been calculated")
		}
		return []baseProfile{
			{"th", "Reference potential temperature", "K", z, r.Th},
			{"thh", "Reference potential temperature", "K", zh, r.ThH},
			{"p", "Reference pressure", "Pa", z, r.Pressure},
			{"ph", "Reference pressure", "Pa", zh, r.PressureH},
			{"exner", "Reference Exner function", "-", z, r.Exner},
			{"exnerh", "Reference Exner function", "-", zh, r.ExnerH},
			{"rho", "Reference density", "kg m-3", z, r.Rho},
			{"rhoh", "Reference density", "kg m-3", zh, r.RhoH},
		}, nil
	default:
		return nil, &lesthermo.UnsupportedError{What: fmt.Sprintf("reference state of %T", th),
			Reason: "only the moist and dry schemes have a reference state"}
	}
}

// WriteBaseState writes the reference state of the thermodynamics of m to
// a NetCDF file at path.
func WriteBaseState(m *lesthermo.Model, path string) error {
	profs, err := baseStateProfiles(m.Thermo)
	if err != nil {
		return err
	}
	s := lesthermo.NewStats(m.Grid, m.Fields)
	for _, p := range profs {
		if err := s.AddProf(p.name, p.longName, p.units, p.level); err != nil {
			return err
		}
		copy(s.Profs[p.name].Data, p.data)
	}
	s.Sample(m.Time, m.Iteration)

	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lesthermo: creating reference state file: %w", err)
	}
	if err := s.Write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// PlotBaseState creates a figure of the reference (virtual) potential
// temperature and density profiles of m at path. The image format is
// determined by the file extension.
func PlotBaseState(m *lesthermo.Model, path string) error {
	profs, err := baseStateProfiles(m.Thermo)
	if err != nil {
		return err
	}
	g := m.Grid
	th, rho := profs[0], profs[6]
	p := plot.New()
	p.Title.Text = "Reference state"
	p.X.Label.Text = fmt.Sprintf("%s (%s); density × 100 (%s)", th.longName, th.units, rho.units)
	p.Y.Label.Text = "Height (m)"
	thXY := make(plotter.XYs, g.Ktot)
	rhoXY := make(plotter.XYs, g.Ktot)
	for k := g.Kstart; k < g.Kend; k++ {
		thXY[k-g.Kstart] = plotter.XY{X: th.data[k], Y: g.Z[k]}
		rhoXY[k-g.Kstart] = plotter.XY{X: rho.data[k] * 100, Y: g.Z[k]}
	}
	if err := plotutil.AddLinePoints(p, th.name, thXY, "rho", rhoXY); err != nil {
		return fmt.Errorf("lesthermo: plotting reference state: %w", err)
	}
	if err := p.Save(4*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("lesthermo: saving reference state figure: %w", err)
	}
	return nil
}
