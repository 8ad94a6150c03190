// query-sandbox drives dynamic queries over a scenario world in the terminal
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	flag "github.com/spf13/pflag"

	"github.com/lixenwraith/dynecs/core"
	"github.com/lixenwraith/dynecs/engine"
	"github.com/lixenwraith/dynecs/status"
)

var (
	scenarioFlag = flag.StringP("scenario", "f", "", "scenario TOML file (built-in scenario when empty)")
	logFlag      = flag.String("log", "", "log file (discarded when empty)")
	debugFlag    = flag.Bool("debug", false, "log at debug level")
	stepsFlag    = flag.Int("steps", 0, "run this many steps without a terminal and print query results as JSON")
	metricsFlag  = flag.String("metrics", "", "write world and query metrics in Prometheus text format to this file on exit")
	opsFlag      = flag.String("ops", "", "JSON-lines file of bridge ops run after each step's systems")
)

func main() {
	flag.Parse()

	logger, closeLog, err := openLogger(*logFlag, *debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(logger); err != nil {
		logger.Error("sandbox failed", "error", err)
		fmt.Fprintf(os.Stderr, "query-sandbox: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *core.Logger) error {
	scenario, err := LoadScenario(*scenarioFlag)
	if err != nil {
		return err
	}
	reg := status.NewRegistry()
	w := engine.NewWorld(engine.WithLogger(logger), engine.WithStatus(reg))
	sim, err := NewSim(w, scenario)
	if err != nil {
		return err
	}
	if *opsFlag != "" {
		ops, err := LoadScript(*opsFlag)
		if err != nil {
			return err
		}
		sim.SetScript(ops)
	}

	if *metricsFlag != "" {
		defer func() {
			if err := writeMetrics(*metricsFlag, reg); err != nil {
				logger.Error("write metrics", "error", err)
			}
		}()
	}

	if *stepsFlag > 0 {
		return runHeadless(sim, *stepsFlag, os.Stdout)
	}

	ui, err := NewUI(sim)
	if err != nil {
		return errors.Wrap(err, "init terminal")
	}
	defer func() {
		r := recover()
		ui.Fini()
		if r != nil {
			fmt.Fprintf(os.Stderr, "\n\x1b[31mQUERY-SANDBOX CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()
	ui.Run()
	return nil
}

func openLogger(path string, verbose bool) (*core.Logger, func(), error) {
	if path == "" {
		return core.NoopLogger(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file")
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return core.NewTextLogger(f, level), func() { _ = f.Close() }, nil
}

// StepReport is one headless step
type StepReport struct {
	Tick    core.Tick     `json:"tick"`
	Queries []QueryReport `json:"queries"`
	Ops     []OpResult    `json:"ops,omitempty"`
}

type QueryReport struct {
	Name     string   `json:"name"`
	Dense    bool     `json:"dense"`
	Count    int      `json:"count"`
	Entities []uint64 `json:"entities"`
}

// runHeadless steps the simulation and writes one JSON line per step
func runHeadless(sim *Sim, steps int, out io.Writer) error {
	enc := json.NewEncoder(out)
	for i := 0; i < steps; i++ {
		if i > 0 {
			sim.Advance()
		}
		sim.Step()
		report := StepReport{Tick: sim.world.ChangeTick(), Ops: sim.OpResults()}
		for _, v := range sim.Views() {
			qr := QueryReport{Name: v.Name, Dense: v.Dense, Count: len(v.Entities), Entities: make([]uint64, 0, len(v.Entities))}
			for _, e := range v.Entities {
				qr.Entities = append(qr.Entities, e.Bits())
			}
			report.Queries = append(report.Queries, qr)
		}
		if err := enc.Encode(report); err != nil {
			return errors.Wrap(err, "encode step")
		}
	}
	return nil
}

func writeMetrics(path string, reg *status.Registry) error {
	pr := prometheus.NewRegistry()
	if err := pr.Register(status.NewCollector(reg)); err != nil {
		return errors.Wrap(err, "register collector")
	}
	families, err := pr.Gather()
	if err != nil {
		return errors.Wrap(err, "gather")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create metrics file")
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return errors.Wrap(err, "encode metrics")
		}
	}
	return nil
}
