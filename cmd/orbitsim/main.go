package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gokepler/orbits"
	"github.com/prometheus/client_golang/prometheus"
)

// This code reads a scenario, plans its transfers and runs the simulation, streaming the states to disk.

const defaultScenario = "~~unset~~"

var (
	scenario string
	verbose  bool
)

func init() {
	// Read flags
	flag.StringVar(&scenario, "scenario", defaultScenario, "simulation scenario TOML file")
	flag.BoolVar(&verbose, "verbose", false, "really verbose (overrides the scenario log level)")
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if scenario == defaultScenario {
		level.Error(logger).Log("subsys", "conf", "err", "no scenario provided")
		os.Exit(2)
	}

	sc, err := orbits.LoadScenario(scenario)
	if err != nil {
		level.Error(logger).Log("subsys", "conf", "err", err)
		os.Exit(1)
	}
	lvl := sc.LogLevel
	if verbose {
		lvl = "debug"
	}
	logger = level.NewFilter(logger, levelOption(lvl))
	level.Info(logger).Log("subsys", "conf", "scenario", sc.Name, "bodies", len(sc.Bodies), "transfers", len(sc.Transfers), "step", sc.Step, "duration", sc.Duration, "frame", sc.Frame)

	opts := []orbits.Option{orbits.WithLogger(logger)}
	var srv *http.Server
	if sc.Metrics != "" {
		reg := prometheus.NewRegistry()
		m, err := orbits.NewMetrics(reg)
		if err != nil {
			level.Error(logger).Log("subsys", "metrics", "err", err)
			os.Exit(1)
		}
		opts = append(opts, orbits.WithMetrics(m))
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: sc.Metrics, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				level.Error(logger).Log("subsys", "metrics", "err", err)
			}
		}()
		level.Info(logger).Log("subsys", "metrics", "listen", sc.Metrics)
	}

	sim, err := sc.Build(opts...)
	if err != nil {
		level.Error(logger).Log("subsys", "plan", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var states chan orbits.State
	var wg sync.WaitGroup
	if !sc.Export.IsUseless() {
		states = make(chan orbits.State, 1000)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := orbits.StreamStates(sc.Export, states); err != nil {
				level.Error(logger).Log("subsys", "export", "err", err)
			}
		}()
	}

	runErr := sc.Run(ctx, sim, states)
	wg.Wait()
	sim.LogStatus()
	shutdownMetrics(logger, srv, 5*time.Second)
	if runErr != nil {
		level.Error(logger).Log("subsys", "sim", "err", runErr)
		os.Exit(1)
	}
}

// shutdownMetrics gracefully stops the metrics server, if any.
func shutdownMetrics(logger kitlog.Logger, srv *http.Server, timeout time.Duration) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		level.Warn(logger).Log("subsys", "metrics", "err", err)
	}
}

func levelOption(lvl string) level.Option {
	switch lvl {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	}
	return level.AllowInfo()
}
