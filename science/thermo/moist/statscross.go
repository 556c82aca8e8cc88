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
	"fmt"

	"github.com/spatialmodel/lesthermo"
)

// ExecStats calculates the buoyancy and liquid water statistics.
func (t *Thermo) ExecStats(s *lesthermo.Stats) error {
	fld, tmp := t.fields.Tmp1, t.fields.Tmp2
	fld.Zero()
	if err := t.ThermoField(fld, tmp, "b"); err != nil {
		return err
	}
	if err := t.BuoyancyFluxBot(fld); err != nil {
		return err
	}
	b := fld.Data.Elements

	prof := make(map[string][]float64)
	for _, name := range []string{"b", "b2", "b3", "b4", "bgrad", "bw", "bdiff", "bflux", "ql", "cfrac"} {
		p, err := s.Prof(name)
		if err != nil {
			return err
		}
		prof[name] = p
	}

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

	if err := t.ThermoField(fld, tmp, "ql"); err != nil {
		return err
	}
	ql := fld.Data.Elements
	if err := s.CalcMean(ql, prof["ql"]); err != nil {
		return err
	}
	if err := s.CalcCount(ql, prof["cfrac"], 0); err != nil {
		return err
	}
	cover, err := s.CalcCover(ql, 0)
	if err != nil {
		return err
	}
	if err := s.SetTimeSeries("ccover", cover); err != nil {
		return err
	}
	lwp, err := s.CalcPath(ql)
	if err != nil {
		return err
	}
	return s.SetTimeSeries("lwp", lwp)
}

// ExecCross writes the cross sections in the cross list.
func (t *Thermo) ExecCross(c *lesthermo.Cross) error {
	fld, tmp := t.fields.Tmp1, t.fields.Tmp2
	for _, name := range t.crossList {
		var err error
		switch name {
		case "b", "ql":
			if err = t.ThermoField(fld, tmp, name); err == nil {
				err = c.Simple(fld.Data.Elements, name, false)
			}
		case "blngrad":
			if err = t.ThermoField(fld, tmp, "b"); err == nil {
				err = c.LnGrad(fld.Data.Elements, name)
			}
		case "qlpath":
			if err = t.ThermoField(fld, tmp, "ql"); err == nil {
				err = c.Path(fld.Data.Elements, name)
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
			return fmt.Errorf("moist: cross section %s: %w", name, err)
		}
	}
	return nil
}
