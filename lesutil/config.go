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
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/lesthermo"
	"github.com/spatialmodel/lesthermo/science/thermo/dry"
	"github.com/spatialmodel/lesthermo/science/thermo/moist"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Simulation is a model together with the initial profiles and output
// location it was configured with.
type Simulation struct {
	*lesthermo.Model

	Profiles  *lesthermo.Profiles
	OutputDir string
}

func configError(cfg *viper.Viper, name string, err error) error {
	return &lesthermo.ConfigError{Option: name, Value: cfg.Get(name), Reason: err.Error()}
}

func getFloat(cfg *viper.Viper, name string) (float64, error) {
	v, err := cast.ToFloat64E(cfg.Get(name))
	if err != nil {
		return 0, configError(cfg, name, err)
	}
	return v, nil
}

func getInt(cfg *viper.Viper, name string) (int, error) {
	v, err := cast.ToIntE(cfg.Get(name))
	if err != nil {
		return 0, configError(cfg, name, err)
	}
	return v, nil
}

func getIntSlice(cfg *viper.Viper, name string) ([]int, error) {
	v, err := cast.ToIntSliceE(cfg.Get(name))
	if err != nil {
		return nil, configError(cfg, name, err)
	}
	return v, nil
}

// positive returns the named option after checking that it is > 0.
func positive(cfg *viper.Viper, name string) (float64, error) {
	v, err := getFloat(cfg, name)
	if err != nil {
		return 0, err
	}
	if !(v > 0) {
		return 0, &lesthermo.ConfigError{Option: name, Value: v, Reason: "must be > 0"}
	}
	return v, nil
}

// GridConfig unmarshals a viper configuration for a grid.
func GridConfig(cfg *viper.Viper) (lesthermo.GridConfig, error) {
	var c lesthermo.GridConfig
	ints := []*int{&c.Itot, &c.Jtot, &c.Ktot, &c.SpatialOrder}
	for i, name := range []string{"grid.itot", "grid.jtot", "grid.ktot", "grid.swspatialorder"} {
		v, err := getInt(cfg, name)
		if err != nil {
			return c, err
		}
		*ints[i] = v
	}
	floats := []*float64{&c.Xsize, &c.Ysize, &c.Zsize}
	for i, name := range []string{"grid.xsize", "grid.ysize", "grid.zsize"} {
		v, err := getFloat(cfg, name)
		if err != nil {
			return c, err
		}
		*floats[i] = v
	}
	return c, nil
}

// NewThermo creates the thermodynamics scheme selected by the
// thermo.swthermo option and registers its prognostic variables in f.
func NewThermo(cfg *viper.Viper, g *lesthermo.Grid, f *lesthermo.Fields, log logrus.FieldLogger) (lesthermo.Thermo, error) {
	pbot, err := getFloat(cfg, "thermo.pbot")
	if err != nil {
		return nil, err
	}
	crossList, err := cast.ToStringSliceE(cfg.Get("thermo.crosslist"))
	if err != nil {
		return nil, configError(cfg, "thermo.crosslist", err)
	}
	switch sw := cfg.GetString("thermo.swthermo"); sw {
	case "moist":
		update, err := cast.ToBoolE(cfg.Get("thermo.swupdatebasestate"))
		if err != nil {
			return nil, configError(cfg, "thermo.swupdatebasestate", err)
		}
		return moist.New(g, f, moist.Config{SurfacePressure: pbot, UpdateBaseState: update,
			CrossList: crossList}, log)
	case "dry":
		return dry.New(g, f, dry.Config{SurfacePressure: pbot, CrossList: crossList}, log)
	default:
		return nil, &lesthermo.ConfigError{Option: "thermo.swthermo", Value: sw,
			Reason: `must be "moist" or "dry"`}
	}
}

// readProfiles reads the initial profiles from the file specified by the
// fields.profile option.
func readProfiles(cfg *viper.Viper) (*lesthermo.Profiles, error) {
	path := os.ExpandEnv(cfg.GetString("fields.profile"))
	if path == "" {
		return nil, &lesthermo.ConfigError{Option: "fields.profile", Value: path,
			Reason: "the initial profile file must be specified"}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lesthermo: opening initial profiles: %w", err)
	}
	defer f.Close()
	return lesthermo.ReadProfiles(f)
}

// NewModel configures a simulation from cfg. All configuration values are
// checked before the simulation is created.
func NewModel(cfg *viper.Viper, log logrus.FieldLogger) (*Simulation, error) {
	gc, err := GridConfig(cfg)
	if err != nil {
		return nil, err
	}
	g, err := lesthermo.NewGrid(gc, nil)
	if err != nil {
		return nil, err
	}
	visc, err := getFloat(cfg, "fields.visc")
	if err != nil {
		return nil, err
	}
	f := lesthermo.NewFields(g, visc)
	th, err := NewThermo(cfg, g, f, log)
	if err != nil {
		return nil, err
	}
	p, err := readProfiles(cfg)
	if err != nil {
		return nil, err
	}

	var dt, endTime, statsTime, crossTime float64
	for _, o := range []struct {
		name string
		v    *float64
	}{{"time.dt", &dt}, {"time.endtime", &endTime}, {"stats.sampletime", &statsTime}, {"cross.sampletime", &crossTime}} {
		if *o.v, err = positive(cfg, o.name); err != nil {
			return nil, err
		}
	}
	amp, err := getFloat(cfg, "fields.rndamp")
	if err != nil {
		return nil, err
	}
	seed, err := getInt(cfg, "fields.rndseed")
	if err != nil {
		return nil, err
	}
	xz, err := getIntSlice(cfg, "cross.xz")
	if err != nil {
		return nil, err
	}
	xy, err := getIntSlice(cfg, "cross.xy")
	if err != nil {
		return nil, err
	}
	outputDir := os.ExpandEnv(cfg.GetString("OutputDir"))
	cross, err := lesthermo.NewCross(g, f, outputDir, xz, xy)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		Model: &lesthermo.Model{
			Grid:    g,
			Fields:  f,
			Thermo:  th,
			Stats:   lesthermo.NewStats(g, f),
			Cross:   cross,
			Dt:      dt,
			EndTime: endTime,
			InitFuncs: []lesthermo.DomainManipulator{
				lesthermo.CreateThermo(p),
				lesthermo.SetInitialFields(p, amp, int64(seed)),
			},
			RunFuncs: []lesthermo.DomainManipulator{
				lesthermo.ClearTendencies(),
				lesthermo.StatsEvery(statsTime),
				lesthermo.CrossEvery(crossTime),
				lesthermo.ExecThermo(),
				lesthermo.IntegrateW(),
				lesthermo.EndTimeCheck(),
				lesthermo.Log(log),
			},
		},
		Profiles:  p,
		OutputDir: outputDir,
	}, nil
}

// Run runs the simulation and writes the statistics to stats.nc in the
// output directory.
func Run(s *Simulation, log logrus.FieldLogger) error {
	if err := os.MkdirAll(s.OutputDir, os.ModePerm); err != nil {
		return fmt.Errorf("lesthermo: creating output directory: %w", err)
	}
	if err := s.Init(); err != nil {
		return err
	}
	if err := s.Model.Run(); err != nil {
		return err
	}
	path := filepath.Join(s.OutputDir, "stats.nc")
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("lesthermo: creating statistics file: %w", err)
	}
	if err := s.Stats.Write(w); err != nil {
		w.Close()
		return err
	}
	log.WithFields(logrus.Fields{
		"file":    path,
		"samples": len(s.Stats.Time),
	}).Info("lesthermo: wrote statistics")
	return w.Close()
}

// newLogger returns a logger that writes to standard error and, if toFile
// is true, to the log file specified by the LogFile option.
func newLogger(cfg *viper.Viper, toFile bool) (*logrus.Logger, func() error, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, nil, configError(cfg, "LogLevel", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if !toFile {
		return log, func() error { return nil }, nil
	}
	logFile := checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), os.ExpandEnv(cfg.GetString("OutputDir")))
	if err := os.MkdirAll(filepath.Dir(logFile), os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("lesthermo: creating log directory: %w", err)
	}
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("lesthermo: creating log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, f.Close, nil
}

// checkLogFile returns the default log file location if logFile is empty.
func checkLogFile(logFile, outputDir string) string {
	if logFile == "" {
		logFile = filepath.Join(outputDir, "lesthermo.log")
	}
	return logFile
}
