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
	"errors"
	"fmt"
)

var (
	// ErrNumericalDivergence is returned when an iterative calculation
	// does not converge.
	ErrNumericalDivergence = errors.New("lesthermo: numerical divergence")

	// ErrUnsupported is returned when a quantity or operation is not
	// available in the current configuration.
	ErrUnsupported = errors.New("lesthermo: unsupported")
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Option string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("lesthermo: invalid configuration %s=%v: %s", e.Option, e.Value, e.Reason)
}

// NumericalDivergenceError reports the grid point at which an iterative
// calculation failed.
type NumericalDivergenceError struct {
	Op      string
	I, J, K int
	Err     error
}

func (e *NumericalDivergenceError) Error() string {
	return fmt.Sprintf("lesthermo: %s at i=%d j=%d k=%d: %v", e.Op, e.I, e.J, e.K, e.Err)
}

func (e *NumericalDivergenceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrNumericalDivergence.
func (e *NumericalDivergenceError) Is(target error) bool {
	return target == ErrNumericalDivergence
}

// UnsupportedError reports a request for a quantity that the
// thermodynamics scheme or grid cannot provide.
type UnsupportedError struct {
	What   string
	Reason string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("lesthermo: %s is not supported: %s", e.What, e.Reason)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }
