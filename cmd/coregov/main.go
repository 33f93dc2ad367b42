//go:build linux

package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/coregov/pkg/controller"
	"github.com/ja7ad/coregov/pkg/manager"
	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/ja7ad/coregov/pkg/port"
	"github.com/ja7ad/coregov/pkg/sensor"
	"github.com/ja7ad/coregov/pkg/status"
)

type opts struct {
	// sampling
	samples  uint64
	interval time.Duration
	ema      float64
	lenient  bool

	// controller
	ctlDir      string
	ctlFile     string
	ctlInterval uint32
	ctlOutputs  []string
	targets     []float64

	// outputs
	csvPath      string
	latencyCheck bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "coregov",
		Short: "Multicore telemetry and feedback control service",
		Long: `coregov samples hardware telemetry (performance counters, RAPL energy,
package temperature) on a fixed period and optionally drives a discrete-time
state-space controller toward externally supplied targets.

Examples:
  coregov -s 60 -i 500ms --csv out.csv
  coregov --ctl-dir ./models --ctl-file dvfs --ctl-output PowerCPU --target 45
  coregov --latency-check -i 100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().Uint64VarP(&o.samples, "samples", "s", 0, "number of samples to collect (0 = run until Ctrl-C)")
	root.Flags().DurationVarP(&o.interval, "interval", "i", time.Second, "sampling interval (e.g. 1s, 500ms)")
	root.Flags().Float64Var(&o.ema, "ema", 1, "EMA alpha for power/temperature smoothing [0..1] (1 = no smoothing)")
	root.Flags().BoolVar(&o.lenient, "lenient", false, "log sensor errors and keep sampling instead of aborting")

	root.Flags().StringVar(&o.ctlDir, "ctl-dir", "", "directory holding the controller coefficient files")
	root.Flags().StringVar(&o.ctlFile, "ctl-file", "", "coefficient file prefix inside ctl-dir")
	root.Flags().Uint32Var(&o.ctlInterval, "ctl-interval", 1, "controller runs every N sampling ticks")
	root.Flags().StringSliceVar(&o.ctlOutputs, "ctl-output", nil, "published channel measured per controlled output (e.g. PowerCPU)")
	root.Flags().Float64SliceVar(&o.targets, "target", nil, "target value per controlled output, in channel order")

	root.Flags().StringVar(&o.csvPath, "csv", "", "write every published channel per tick to CSV file")
	root.Flags().BoolVar(&o.latencyCheck, "latency-check", false, "measure each sensor's acquire latency against the interval and exit")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	if o.interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	if o.ema <= 0 || o.ema > 1 {
		return fmt.Errorf("ema must be in (0,1]")
	}
	if (o.ctlDir == "") != (o.ctlFile == "") {
		return fmt.Errorf("ctl-dir and ctl-file must be given together")
	}

	log := slog.Default()

	units, err := status.FromSystem()
	if err != nil {
		return fmt.Errorf("enumerate cpus: %w", err)
	}
	log.Info("topology", "units", units.TotalCount(), "physical", len(units.PhysicalUnitIDs()))

	policy := manager.Abort
	if o.lenient {
		policy = manager.Continue
	}

	reg := port.NewRegistry()
	m := manager.New(reg, o.interval, policy, log)
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("sensor close", "err", err)
		}
	}()

	if err := addSensors(m, units, o.ema, log); err != nil {
		return err
	}

	if o.latencyCheck {
		return reportLatency(m)
	}

	if o.ctlDir != "" {
		ctl, err := buildController(reg, o)
		if err != nil {
			return err
		}
		m.AddController(ctl)
	}

	if o.csvPath != "" {
		flush, err := attachCSV(m, reg, o.csvPath)
		if err != nil {
			return err
		}
		defer flush()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("sampling", "interval", o.interval, "samples", o.samples)
	if err := m.Run(ctx, o.samples); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// addSensors wires the full telemetry set: wall time, RAPL power, package
// temperature, a per-physical-core counter sensor, and the aggregate
// counter sensor. Power and temperature are optional on machines without
// the corresponding sysfs nodes, and get EMA smoothing when alpha < 1.
func addSensors(m *manager.Manager, units *status.Status, alpha float64, log *slog.Logger) error {
	smoothed := func(s sensor.Sensor) sensor.Sensor {
		if alpha < 1 {
			return sensor.Smooth(s, alpha)
		}
		return s
	}

	if err := m.AddSensor(sensor.NewTime("Time")); err != nil {
		return err
	}

	if p, err := sensor.NewCPUPower("PowerCPU"); err != nil {
		log.Warn("cpu power sensor unavailable", "err", err)
	} else if err := m.AddSensor(smoothed(p)); err != nil {
		return err
	}
	if d, err := sensor.NewDRAMPower("PowerDRAM"); err != nil {
		log.Warn("dram power sensor unavailable", "err", err)
	} else if err := m.AddSensor(smoothed(d)); err != nil {
		return err
	}

	if tmp, err := sensor.NewCPUTemp("Temperature"); err != nil {
		log.Warn("temperature sensor unavailable", "err", err)
	} else if err := m.AddSensor(smoothed(tmp)); err != nil {
		return err
	}

	for _, unit := range units.PhysicalUnitIDs() {
		cp, err := sensor.NewCorePerf("Perf", unit, units)
		if err != nil {
			return fmt.Errorf("core counters, unit %d: %w", unit, err)
		}
		if err := m.AddSensor(cp); err != nil {
			return err
		}
	}

	agg, err := sensor.NewCPUPerf("CPUStats", units.UnitIDs(), units)
	if err != nil {
		return fmt.Errorf("aggregate counters: %w", err)
	}
	return m.AddSensor(agg)
}

// buildController loads the coefficient set and wires the channels. The
// measured outputs are existing sensor channels named by --ctl-output;
// the actuation channels are declared here (an external resource manager
// feeds Input*, the controller publishes NewInput*) and the targets come
// from --target values published once at startup.
func buildController(reg *port.Registry, o opts) (controller.Controller, error) {
	coeff, err := controller.LoadCoefficients(o.ctlDir, o.ctlFile)
	if err != nil {
		return nil, err
	}
	if len(o.targets) != coeff.NumMeasurements {
		return nil, fmt.Errorf("%d targets for %d controlled outputs", len(o.targets), coeff.NumMeasurements)
	}
	if len(o.ctlOutputs) != coeff.NumMeasurements {
		return nil, fmt.Errorf("%d ctl-output channels for %d controlled outputs", len(o.ctlOutputs), coeff.NumMeasurements)
	}
	if _, err := reg.Read(o.ctlOutputs); err != nil {
		return nil, fmt.Errorf("ctl-output: %w", err)
	}

	inputCh := numbered("Input", coeff.NumInputs)
	newInCh := numbered("NewInput", coeff.NumInputs)
	targetCh := numbered("Target", coeff.NumMeasurements)

	if err := reg.Declare(inputCh...); err != nil {
		return nil, err
	}
	if err := reg.Declare(newInCh...); err != nil {
		return nil, err
	}
	if err := reg.Declare(targetCh...); err != nil {
		return nil, err
	}
	if err := reg.Publish(targetCh, numeric.Vector(o.targets)); err != nil {
		return nil, err
	}

	return controller.NewStateSpace(o.ctlFile, reg, inputCh, o.ctlOutputs, targetCh, newInCh, coeff, o.ctlInterval)
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + strconv.Itoa(i)
	}
	return out
}

// attachCSV streams every declared channel to path, one row per tick.
// The returned func flushes and closes the file.
func attachCSV(m *manager.Manager, reg *port.Registry, path string) (func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)

	m.OnTick(func(tick uint64) {
		names := reg.Names()
		if tick == 1 {
			_ = w.Write(append([]string{"tick"}, names...))
		}
		v, err := reg.Read(names)
		if err != nil {
			return
		}
		row := make([]string, 0, len(names)+1)
		row = append(row, strconv.FormatUint(tick, 10))
		for i := 0; i < v.Len(); i++ {
			row = append(row, strconv.FormatFloat(v.At(i), 'g', -1, 64))
		}
		_ = w.Write(row)
		w.Flush()
	})

	return func() {
		w.Flush()
		_ = f.Close()
	}, nil
}

func reportLatency(m *manager.Manager) error {
	var over bool
	for _, l := range m.CheckLatency() {
		if l.Err != nil {
			over = true
			fmt.Printf("%-12s %12s  %v\n", l.Sensor, l.Elapsed, l.Err)
			continue
		}
		fmt.Printf("%-12s %12s  ok\n", l.Sensor, l.Elapsed)
	}
	if over {
		return errors.New("one or more sensors exceed the sampling budget")
	}
	return nil
}
