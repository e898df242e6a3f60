package orbits

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
)

const (
	// ConfigEnv is the environment variable holding the directory of relative scenario paths.
	ConfigEnv = "ORBITS_CONFIG"
	// J2000 is the default epoch of a scenario.
	J2000 = 2451545.0
)

// BodyConfig defines a body of a scenario.
type BodyConfig struct {
	Name   string
	Parent string // empty for a root body
	Mu     float64
	Orbit  Orbit
}

// TransferConfig defines a transfer to plan and queue when a scenario is built.
type TransferConfig struct {
	Body   string
	At     float64
	Target Orbit
}

// Scenario defines a simulation read from a TOML file.
type Scenario struct {
	Name      string
	Epoch     time.Time // wall clock date of simulation time zero
	Step      float64   // seconds between ticks
	Duration  float64   // seconds
	Realtime  float64   // simulation seconds per wall clock second, zero to run as fast as possible
	Frame     Frame
	LogLevel  string
	Bodies    []BodyConfig
	Transfers []TransferConfig
	Export    ExportConfig
	Metrics   string // listen address of the metrics endpoint, empty to disable
}

// LoadScenario reads the scenario from the provided TOML file. If the path is relative and the
// ORBITS_CONFIG environment variable is set, the path is relative to that directory.
// All angles are in degrees in the file.
func LoadScenario(path string) (*Scenario, error) {
	if !strings.HasSuffix(path, ".toml") {
		path += ".toml"
	}
	if dir := os.Getenv(ConfigEnv); dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("simulation.step", "1s")
	v.SetDefault("simulation.frame", "xy")
	v.SetDefault("simulation.log", "info")
	v.SetDefault("export.every", 1)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sc := &Scenario{Name: strings.TrimSuffix(filepath.Base(path), ".toml")}
	sc.Epoch = confReadJDEorTime(v, "simulation.epoch")
	sc.Step = v.GetDuration("simulation.step").Seconds()
	sc.Duration = v.GetDuration("simulation.duration").Seconds()
	sc.Realtime = v.GetFloat64("simulation.realtime")
	sc.LogLevel = v.GetString("simulation.log")
	if sc.Step <= 0 {
		return nil, fmt.Errorf("%s: simulation.step must be positive", path)
	}
	if sc.Duration < 0 {
		return nil, fmt.Errorf("%s: simulation.duration cannot be negative", path)
	}
	frame, err := FrameFromString(v.GetString("simulation.frame"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Frame = frame

	for _, name := range v.GetStringSlice("general.bodies") {
		key := "body." + name
		sc.Bodies = append(sc.Bodies, BodyConfig{
			Name:   name,
			Parent: v.GetString(key + ".parent"),
			Mu:     v.GetFloat64(key + ".mu"),
			Orbit:  confReadOrbit(v, key),
		})
	}
	if len(sc.Bodies) == 0 {
		return nil, fmt.Errorf("%s: general.bodies is empty", path)
	}

	for trNo := 0; v.IsSet(fmt.Sprintf("transfer.%d", trNo)); trNo++ {
		key := fmt.Sprintf("transfer.%d", trNo)
		sc.Transfers = append(sc.Transfers, TransferConfig{
			Body:   v.GetString(key + ".body"),
			At:     v.GetDuration(key + ".at").Seconds(),
			Target: confReadOrbit(v, key),
		})
	}

	sc.Export = ExportConfig{
		Dir:       v.GetString("export.dir"),
		Filename:  v.GetString("export.filename"),
		Cosmo:     v.GetBool("export.xyzv"),
		AsCSV:     v.GetBool("export.csv"),
		Every:     v.GetInt("export.every"),
		Epoch:     sc.Epoch,
		Timestamp: v.GetBool("export.timestamp"),
	}
	if sc.Export.Filename == "" {
		sc.Export.Filename = sc.Name
	}
	sc.Metrics = v.GetString("metrics.listen")
	return sc, nil
}

// Build returns a simulation with every body of the scenario, with its transfers planned and queued.
func (sc *Scenario) Build(opts ...Option) (*Simulation, error) {
	sim := NewSimulation(append([]Option{WithFrame(sc.Frame)}, opts...)...)
	for _, bc := range sc.Bodies {
		parent := NoParent
		if bc.Parent != "" {
			var err error
			if parent, err = sim.Lookup(bc.Parent); err != nil {
				return nil, fmt.Errorf("parent of `%s` must be listed before it: %w", bc.Name, err)
			}
		}
		if _, err := sim.AddBody(bc.Name, bc.Orbit, parent, bc.Mu); err != nil {
			return nil, err
		}
	}
	for i, tc := range sc.Transfers {
		id, err := sim.Lookup(tc.Body)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
		tr, err := sim.PlanTransfer(id, tc.Target, tc.At)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
		if err := sim.PushTransfer(id, tr); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

func confReadOrbit(v *viper.Viper, key string) Orbit {
	return Orbit{
		SemiMajorAxis:      v.GetFloat64(key + ".sma"),
		Eccentricity:       v.GetFloat64(key + ".ecc"),
		ArgPeriapsis:       Deg2rad(v.GetFloat64(key + ".argPeri")),
		InitialMeanAnomaly: Deg2rad(v.GetFloat64(key + ".meanAnomaly")),
	}
}

// confReadJDEorTime reads either a Julian date or a date.
func confReadJDEorTime(v *viper.Viper, key string) (dt time.Time) {
	if !v.IsSet(key) {
		return julian.JDToTime(J2000)
	}
	jde := v.GetFloat64(key)
	if jde == 0 {
		dt = v.GetTime(key)
	} else {
		dt = julian.JDToTime(jde)
	}
	return dt.UTC()
}
