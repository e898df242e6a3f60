package orbits

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Dir       string
	Filename  string
	Cosmo     bool      // interpolated states (.xyzv) as read by Cosmographia
	AsCSV     bool      // orbital elements as CSV
	Every     int       // write one state out of Every per body
	Epoch     time.Time // date of simulation time zero
	Timestamp bool      // stamp the file names with the creation time
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.Cosmo && !c.AsCSV
}

func (c ExportConfig) path(prefix, body, ext string) string {
	name := fmt.Sprintf("%s-%s-%s", prefix, c.Filename, body)
	if c.Timestamp {
		t := time.Now()
		name += fmt.Sprintf("-%d-%02d-%02dT%02d.%02d.%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.Dir, name+"."+ext)
}

type bodyFiles struct {
	xyzv  *os.File
	csvF  *os.File
	csvW  *csv.Writer
	count int
	last  State
}

// StreamStates writes the states read from the channel until it is closed, one file of each kind per body.
// The channel is always drained, even after a write error, so that the producer never blocks; the first
// error is returned.
func StreamStates(conf ExportConfig, stateChan <-chan State) (err error) {
	files := make(map[string]*bodyFiles)
	every := conf.Every
	if every < 1 {
		every = 1
	}
	fail := func(e error) {
		if err == nil && e != nil {
			err = e
		}
	}
	for state := range stateChan {
		if err != nil || conf.IsUseless() {
			continue
		}
		bf, ok := files[state.Body]
		if !ok {
			if bf, err = createBodyFiles(conf, state); err != nil {
				continue
			}
			files[state.Body] = bf
		}
		bf.count++
		bf.last = state
		if (bf.count-1)%every != 0 {
			continue
		}
		if bf.xyzv != nil {
			_, e := fmt.Fprintf(bf.xyzv, "\n%f %f %f %f %f %f %f", conf.jd(state.T), state.R[0], state.R[1], state.R[2], state.V[0], state.V[1], state.V[2])
			fail(e)
		}
		if bf.csvW != nil {
			fail(bf.csvW.Write(elementsRecord(conf, state)))
		}
	}
	for _, bf := range files {
		end := conf.Epoch.Add(time.Duration(bf.last.T * float64(time.Second))).UTC()
		if bf.xyzv != nil {
			_, e := fmt.Fprintf(bf.xyzv, "\n# Simulation time end (UTC): %s\n", end)
			fail(e)
			fail(bf.xyzv.Close())
		}
		if bf.csvW != nil {
			bf.csvW.Flush()
			fail(bf.csvW.Error())
			fail(bf.csvF.Close())
		}
	}
	return err
}

func (c ExportConfig) jd(t float64) float64 {
	return julian.TimeToJD(c.Epoch.Add(time.Duration(t * float64(time.Second))))
}

func createBodyFiles(conf ExportConfig, first State) (*bodyFiles, error) {
	bf := &bodyFiles{}
	start := conf.Epoch.Add(time.Duration(first.T * float64(time.Second))).UTC()
	if conf.Cosmo {
		f, err := os.Create(conf.path("prop", first.Body, "xyzv"))
		if err != nil {
			return nil, err
		}
		bf.xyzv = f
		// Header
		if _, err := fmt.Fprintf(f, `# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Position and velocity relative to the parent body
#   Simulation time start (UTC): %s`, time.Now().UTC(), start); err != nil {
			bf.close()
			return nil, err
		}
	}
	if conf.AsCSV {
		f, err := os.Create(conf.path("orbital-elements", first.Body, "csv"))
		if err != nil {
			bf.close()
			return nil, err
		}
		bf.csvF = f
		bf.csvW = csv.NewWriter(f)
		if err = bf.csvW.Write([]string{"time", "jd", "t", "a", "e", "omega", "M0", "x", "y", "z"}); err == nil {
			bf.csvW.Flush()
			err = bf.csvW.Error()
		}
		if err != nil {
			bf.close()
			return nil, err
		}
	}
	return bf, nil
}

// close closes the open files of a body without writing anything more.
func (bf *bodyFiles) close() error {
	var err error
	if bf.xyzv != nil {
		err = bf.xyzv.Close()
		bf.xyzv = nil
	}
	if bf.csvF != nil {
		if e := bf.csvF.Close(); err == nil {
			err = e
		}
		bf.csvF, bf.csvW = nil, nil
	}
	return err
}

// elementsRecord returns the CSV record of a state. All angles are in degrees.
func elementsRecord(conf ExportConfig, st State) []string {
	dt := conf.Epoch.Add(time.Duration(st.T * float64(time.Second))).UTC()
	fmtF := func(v float64) string {
		return strconv.FormatFloat(v, 'f', 6, 64)
	}
	return []string{
		dt.Format("2006-01-02 15:04:05"),
		fmtF(conf.jd(st.T)),
		fmtF(st.T),
		fmtF(st.Orbit.SemiMajorAxis),
		fmtF(st.Orbit.Eccentricity),
		fmtF(Rad2deg(st.Orbit.ArgPeriapsis)),
		fmtF(Rad2deg(st.Orbit.InitialMeanAnomaly)),
		fmtF(st.R[0]), fmtF(st.R[1]), fmtF(st.R[2]),
	}
}
