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
	"sort"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Field3D is a gridded 3-D variable together with its surface and top
// boundary values.
type Field3D struct {
	Name     string
	LongName string
	Units    string

	// Data has shape (Kcells, Jcells, Icells).
	Data *sparse.DenseArray

	// Bot, Top, FluxBot and FluxTop have shape (Jcells, Icells).
	Bot, Top         *sparse.DenseArray
	FluxBot, FluxTop *sparse.DenseArray

	// Mean holds the horizontal mean of Data at each level, as last
	// calculated by CalcMean.
	Mean []float64
}

// NewField3D returns a zero-valued field on grid g.
func NewField3D(g *Grid, name, longName, units string) *Field3D {
	return &Field3D{
		Name:     name,
		LongName: longName,
		Units:    units,
		Data:     sparse.ZerosDense(g.Kcells, g.Jcells, g.Icells),
		Bot:      sparse.ZerosDense(g.Jcells, g.Icells),
		Top:      sparse.ZerosDense(g.Jcells, g.Icells),
		FluxBot:  sparse.ZerosDense(g.Jcells, g.Icells),
		FluxTop:  sparse.ZerosDense(g.Jcells, g.Icells),
		Mean:     make([]float64, g.Kcells),
	}
}

// CalcMean calculates the horizontal mean of the interior of the field
// at every level, including the vertical ghost levels.
func (f *Field3D) CalcMean(g *Grid) error {
	for k := 0; k < g.Kcells; k++ {
		var sum float64
		for j := g.Jstart; j < g.Jend; j++ {
			ijk := g.Ijk(g.Istart, j, k)
			sum += floats.Sum(f.Data.Elements[ijk : ijk+g.Itot])
		}
		f.Mean[k] = sum
	}
	if err := g.Reducer.SumAll(f.Mean); err != nil {
		return fmt.Errorf("lesthermo: calculating mean of %s: %w", f.Name, err)
	}
	n := float64(g.Itot * g.Jtot)
	for k := range f.Mean {
		f.Mean[k] /= n
	}
	return nil
}

// Zero sets the field and its boundary values to zero.
func (f *Field3D) Zero() {
	for _, d := range []*sparse.DenseArray{f.Data, f.Bot, f.Top, f.FluxBot, f.FluxTop} {
		for i := range d.Elements {
			d.Elements[i] = 0
		}
	}
}

// Fields holds the prognostic, tendency and scratch fields of a model.
type Fields struct {
	grid *Grid

	// Scalars are the prognostic scalars, and Tendencies are their
	// time tendencies.
	Scalars, Tendencies map[string]*Field3D

	// W is the vertical velocity at half levels and Wt is its tendency.
	W, Wt *Field3D

	// Diagnostics holds optional diagnostic fields such as the eddy
	// viscosity "evisc".
	Diagnostics map[string]*Field3D

	// Tmp1 and Tmp2 are scratch fields.
	Tmp1, Tmp2 *Field3D

	// RhoRef and RhoRefH are the reference density at full and half
	// levels [kg/m³].
	RhoRef, RhoRefH []float64

	// Visc is the molecular diffusivity of the scalars [m²/s].
	Visc float64
}

// NewFields allocates velocity and scratch fields on grid g.
func NewFields(g *Grid, visc float64) *Fields {
	f := &Fields{
		grid:        g,
		Scalars:     make(map[string]*Field3D),
		Tendencies:  make(map[string]*Field3D),
		Diagnostics: make(map[string]*Field3D),
		W:           NewField3D(g, "w", "Vertical velocity", "m s-1"),
		Wt:          NewField3D(g, "wt", "Vertical velocity tendency", "m s-2"),
		Tmp1:        NewField3D(g, "tmp1", "", ""),
		Tmp2:        NewField3D(g, "tmp2", "", ""),
		RhoRef:      make([]float64, g.Kcells),
		RhoRefH:     make([]float64, g.Kcells),
		Visc:        visc,
	}
	for k := range f.RhoRef {
		f.RhoRef[k], f.RhoRefH[k] = 1, 1
	}
	return f
}

// InitPrognostic registers a new prognostic scalar and its tendency.
func (f *Fields) InitPrognostic(name, longName, units string) error {
	if _, ok := f.Scalars[name]; ok {
		return fmt.Errorf("lesthermo: prognostic field %s already exists", name)
	}
	f.Scalars[name] = NewField3D(f.grid, name, longName, units)
	f.Tendencies[name] = NewField3D(f.grid, name+"t", longName+" tendency", units+" s-1")
	return nil
}

// Scalar returns the named prognostic scalar.
func (f *Fields) Scalar(name string) (*Field3D, error) {
	s, ok := f.Scalars[name]
	if !ok {
		return nil, fmt.Errorf("lesthermo: no prognostic field named %s", name)
	}
	return s, nil
}

// ScalarNames returns the names of the prognostic scalars in sorted order.
func (f *Fields) ScalarNames() []string {
	names := make([]string, 0, len(f.Scalars))
	for n := range f.Scalars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Boundary fills the ghost cells of the prognostic fields. Horizontal
// boundaries are periodic. Scalars have zero vertical gradient at the
// surface and the domain top, and their surface and top values are set
// to the values of the adjacent interior level. Vertical velocity is zero
// at the surface and the domain top.
func (f *Fields) Boundary() {
	g := f.grid
	for _, name := range f.ScalarNames() {
		s := f.Scalars[name]
		d := s.Data.Elements
		for n := 1; n <= g.Kgc; n++ {
			copy(d[(g.Kstart-n)*g.Ijcells:(g.Kstart-n+1)*g.Ijcells],
				d[(g.Kstart+n-1)*g.Ijcells:(g.Kstart+n)*g.Ijcells])
			copy(d[(g.Kend+n-1)*g.Ijcells:(g.Kend+n)*g.Ijcells],
				d[(g.Kend-n)*g.Ijcells:(g.Kend-n+1)*g.Ijcells])
		}
		copy(s.Bot.Elements, d[g.Kstart*g.Ijcells:(g.Kstart+1)*g.Ijcells])
		copy(s.Top.Elements, d[(g.Kend-1)*g.Ijcells:g.Kend*g.Ijcells])
		g.BoundaryCyclic(d, g.Kcells)
		g.BoundaryCyclic(s.Bot.Elements, 1)
		g.BoundaryCyclic(s.Top.Elements, 1)
		g.BoundaryCyclic(s.FluxBot.Elements, 1)
		g.BoundaryCyclic(s.FluxTop.Elements, 1)
	}
	w := f.W.Data.Elements
	for i := 0; i < g.Ijcells; i++ {
		w[g.Kstart*g.Ijcells+i] = 0
		w[g.Kend*g.Ijcells+i] = 0
	}
	g.BoundaryCyclic(w, g.Kcells)
}
