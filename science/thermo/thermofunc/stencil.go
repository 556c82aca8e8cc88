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

// Interp2 returns the 2nd order interpolation between a and b.
func Interp2(a, b float64) float64 {
	return 0.5 * (a + b)
}

// Interp4 returns the 4th order interpolation to the midpoint of b and c.
func Interp4(a, b, c, d float64) float64 {
	return (-a + 9*b + 9*c - d) / 16
}

// Grad4 returns the 4th order gradient at the midpoint of b and c,
// to be multiplied by the inverse 4th order grid spacing.
func Grad4(a, b, c, d float64) float64 {
	return (-(d - a) + 27*(c-b)) / 24
}

// Grad4x returns the 4th order difference of a uniformly spaced
// quantity centered on c, to be multiplied by the inverse grid spacing.
func Grad4x(a, b, d, e float64) float64 {
	return (a - 8*b + 8*d - e) / 12
}
