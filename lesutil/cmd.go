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

// Package lesutil contains the command-line interface of lesthermo.
package lesutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/lesthermo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to lesthermo.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory where output files are written.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired log file location. If it is
              empty, the log is written to lesthermo.log in OutputDir.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of the log messages that are
              written: debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), basestateCmd.Flags()},
		},
		{
			name: "thermo.swthermo",
			usage: `
              thermo.swthermo selects the thermodynamics scheme: "moist" for
              liquid water potential temperature and total water, or "dry"
              for potential temperature only.`,
			defaultVal: "moist",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "thermo.pbot",
			usage: `
              thermo.pbot is the surface pressure [Pa]. It must be set.`,
			defaultVal: 0.,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "thermo.swupdatebasestate",
			usage: `
              thermo.swupdatebasestate specifies whether the moist reference
              state is recalculated from the mean profiles every time it is used.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "thermo.crosslist",
			usage: `
              thermo.crosslist lists the thermodynamic cross sections to write.
              Supported names are b, bbot, bfluxbot, ql and qlpath, and
              blngrad for 4th order grids.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "grid.itot",
			usage: `
              grid.itot is the number of grid cells in the x direction.`,
			defaultVal: 32,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "grid.jtot",
			usage: `
              grid.jtot is the number of grid cells in the y direction.`,
			defaultVal: 32,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "grid.ktot",
			usage: `
              grid.ktot is the number of vertical levels.`,
			defaultVal: 64,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "grid.xsize",
			usage: `
              grid.xsize is the size of the domain in the x direction [m].`,
			defaultVal: 3200.,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "grid.ysize",
			usage: `
              grid.ysize is the size of the domain in the y direction [m].`,
			defaultVal: 3200.,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "grid.zsize",
			usage: `
              grid.zsize is the height of the domain [m].`,
			defaultVal: 3200.,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "grid.swspatialorder",
			usage: `
              grid.swspatialorder is the order of the spatial discretization,
              either 2 or 4.`,
			defaultVal: "2",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "fields.profile",
			usage: `
              fields.profile is the path to the file holding the initial
              vertical profiles. The first line holds the column names,
              starting with z. It can include environment variables.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "fields.visc",
			usage: `
              fields.visc is the molecular diffusivity of the scalars [m²/s].`,
			defaultVal: 1.e-5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "fields.rndamp",
			usage: `
              fields.rndamp is the amplitude of the random perturbation added
              to the first prognostic scalar.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "fields.rndseed",
			usage: `
              fields.rndseed is the seed of the random perturbation.`,
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "time.dt",
			usage: `
              time.dt is the time step [s].`,
			defaultVal: 1.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "time.endtime",
			usage: `
              time.endtime is the simulation time [s].`,
			defaultVal: 60.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "stats.sampletime",
			usage: `
              stats.sampletime is the interval between statistics samples [s].`,
			defaultVal: 10.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "cross.sampletime",
			usage: `
              cross.sampletime is the interval between cross sections [s].`,
			defaultVal: 30.,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "cross.xz",
			usage: `
              cross.xz lists the y indices of the vertical cross sections.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "cross.xy",
			usage: `
              cross.xy lists the level indices of the horizontal cross sections.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "plot",
			usage: `
              plot is the path of a PNG figure of the reference state to
              create. No figure is created if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{basestateCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("LESTHERMO")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(configCmd)
	Root.AddCommand(basestateCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("lesthermo: problem reading configuration file: %w", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "lesthermo",
	Short: "Moist thermodynamics for large-eddy simulation.",
	Long: `lesthermo calculates the hydrostatic reference state, saturation
adjustment and buoyancy of a moist or dry atmosphere on a large-eddy
simulation grid. Use the subcommands specified below to access the model
functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'LESTHERMO_var' where 'var'
is the name of the variable to be set, with periods replaced by underscores.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of lesthermo.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("lesthermo v%s\n", lesthermo.Version)
	},
	DisableAutoGenTag: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration.",
	Long: `config prints the configuration that results from combining the
configuration file, environment variables and command-line arguments in
TOML format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(Cfg.AllSettings())
	},
	DisableAutoGenTag: true,
}

var basestateCmd = &cobra.Command{
	Use:   "basestate",
	Short: "Calculate the reference state.",
	Long: `basestate calculates the hydrostatic reference state from the
initial profiles and writes it to basestate.nc in the output directory.
Use the --plot flag to additionally create a figure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := newLogger(Cfg, false)
		if err != nil {
			return err
		}
		defer closer()
		m, err := NewModel(Cfg, log)
		if err != nil {
			return err
		}
		if err := m.Thermo.Create(m.Profiles, nil); err != nil {
			return err
		}
		path := filepath.Join(os.ExpandEnv(Cfg.GetString("OutputDir")), "basestate.nc")
		if err := WriteBaseState(m.Model, path); err != nil {
			return err
		}
		log.WithField("file", path).Info("lesthermo: wrote reference state")
		if plotFile := os.ExpandEnv(Cfg.GetString("plot")); plotFile != "" {
			if err := PlotBaseState(m.Model, plotFile); err != nil {
				return err
			}
			log.WithField("file", plotFile).Info("lesthermo: plotted reference state")
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a simulation in which the vertical velocity is accelerated
by the buoyancy, and writes statistics to stats.nc and cross sections to the
output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, closer, err := newLogger(Cfg, true)
		if err != nil {
			return err
		}
		defer closer()
		m, err := NewModel(Cfg, log)
		if err != nil {
			return err
		}
		return Run(m, log)
	},
	DisableAutoGenTag: true,
}
