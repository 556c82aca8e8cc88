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

// Command lesthermo is a command-line interface for the lesthermo
// thermodynamics model.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/lesthermo/lesutil"
)

func main() {
	if err := lesutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
