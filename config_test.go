package orbits

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
)

const testScenario = `
[simulation]
epoch = 2451545.0
step = "500ms"
duration = "20s"
frame = "xz"
log = "debug"

[general]
bodies = ["Sun", "Earth", "Moon"]

[body.Sun]
mu = 1.0

[body.Earth]
parent = "Sun"
mu = 0.01
sma = 2.0
argPeri = 90.0

[body.Moon]
parent = "Earth"
sma = 0.1
ecc = 0.05
meanAnomaly = 180.0

[transfer.0]
body = "Earth"
at = "1s"
sma = 3.0

[transfer.1]
body = "Moon"
at = "2s"
sma = 0.2
ecc = 0.1
argPeri = 45.0

[export]
dir = "/tmp"
xyzv = true
every = 5

[metrics]
listen = ":9100"
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "earthmoon", testScenario)
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "earthmoon" {
		t.Fatalf("name `%s`", sc.Name)
	}
	if math.Abs(sc.Epoch.Sub(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)).Seconds()) > 1e-3 {
		t.Fatalf("epoch %s", sc.Epoch)
	}
	if sc.Step != 0.5 || sc.Duration != 20 {
		t.Fatalf("step=%f duration=%f", sc.Step, sc.Duration)
	}
	if sc.Frame != PlaneXZ || sc.LogLevel != "debug" {
		t.Fatalf("frame=%s log=%s", sc.Frame, sc.LogLevel)
	}
	if len(sc.Bodies) != 3 {
		t.Fatalf("%d bodies", len(sc.Bodies))
	}
	earth := sc.Bodies[1]
	if earth.Name != "Earth" || earth.Parent != "Sun" || earth.Mu != 0.01 || earth.Orbit.SemiMajorAxis != 2 {
		t.Fatalf("earth %+v", earth)
	}
	if !scalar.EqualWithinAbs(earth.Orbit.ArgPeriapsis, math.Pi/2, 1e-15) {
		t.Fatalf("earth ω=%f", earth.Orbit.ArgPeriapsis)
	}
	if moon := sc.Bodies[2]; moon.Orbit.Eccentricity != 0.05 || !scalar.EqualWithinAbs(moon.Orbit.InitialMeanAnomaly, math.Pi, 1e-15) {
		t.Fatalf("moon %+v", moon)
	}
	if len(sc.Transfers) != 2 || sc.Transfers[0].At != 1 || sc.Transfers[1].Body != "Moon" || sc.Transfers[1].Target.Eccentricity != 0.1 {
		t.Fatalf("transfers %+v", sc.Transfers)
	}
	if !sc.Export.Cosmo || sc.Export.AsCSV || sc.Export.Every != 5 || sc.Export.Filename != "earthmoon" || sc.Export.Dir != "/tmp" {
		t.Fatalf("export %+v", sc.Export)
	}
	if !sc.Export.Epoch.Equal(sc.Epoch) {
		t.Fatal("export epoch")
	}
	if sc.Metrics != ":9100" {
		t.Fatalf("metrics `%s`", sc.Metrics)
	}
}

func TestLoadScenarioEnv(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "relative", testScenario)
	t.Setenv(ConfigEnv, dir)
	sc, err := LoadScenario("relative")
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "relative" {
		t.Fatalf("name `%s`", sc.Name)
	}
}

func TestLoadScenarioDefaults(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "minimal", `
[simulation]
duration = "1m"

[general]
bodies = ["Sun"]
`)
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Step != 1 || sc.Duration != 60 || sc.Frame != PlaneXY || sc.LogLevel != "info" {
		t.Fatalf("defaults %+v", sc)
	}
	if sc.Epoch.Year() != 2000 {
		t.Fatalf("default epoch %s", sc.Epoch)
	}
	if !sc.Export.IsUseless() || sc.Export.Every != 1 || sc.Metrics != "" {
		t.Fatalf("default export %+v", sc.Export)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"nobodies": "[simulation]\nduration = \"1s\"\n",
		"badframe": "[simulation]\nframe = \"yz\"\n[general]\nbodies = [\"Sun\"]\n",
		"badstep":  "[simulation]\nstep = \"-1s\"\n[general]\nbodies = [\"Sun\"]\n",
	} {
		path := writeScenario(t, dir, name, content)
		if _, err := LoadScenario(path); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
	if _, err := LoadScenario(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("missing scenario loaded")
	}
}

func TestScenarioBuild(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, t.TempDir(), "earthmoon", testScenario))
	if err != nil {
		t.Fatal(err)
	}
	sim, err := sc.Build()
	if err != nil {
		t.Fatal(err)
	}
	if sim.Len() != 3 || sim.Frame() != PlaneXZ {
		t.Fatalf("%d bodies in %s", sim.Len(), sim.Frame())
	}
	for _, name := range []string{"Earth", "Moon"} {
		id, _ := sim.Lookup(name)
		s, _ := sim.Schedule(id)
		if s.Pending() != 2 {
			t.Fatalf("%s has %d pending maneuvers", name, s.Pending())
		}
	}
}

func TestScenarioBuildErrors(t *testing.T) {
	orphan := strings.Replace(testScenario, `bodies = ["Sun", "Earth", "Moon"]`, `bodies = ["Moon", "Sun", "Earth"]`, 1)
	sc, err := LoadScenario(writeScenario(t, t.TempDir(), "orphan", orphan))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sc.Build(); err == nil {
		t.Fatal("child listed before its parent")
	}
	sc.Bodies = []BodyConfig{{Name: "Sun", Mu: 1}}
	sc.Transfers = []TransferConfig{{Body: "Earth", Target: Orbit{SemiMajorAxis: 1}}}
	if _, err := sc.Build(); err == nil {
		t.Fatal("transfer of an unknown body")
	}
}
