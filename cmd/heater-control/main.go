// Command heater-control drives a pulse-controlled water heater from 1-wire
// temperature probes and notifies the operator about the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/sweeney/heater-control/internal/config"
	"github.com/sweeney/heater-control/internal/gpio"
	"github.com/sweeney/heater-control/internal/heater"
	"github.com/sweeney/heater-control/internal/logger"
	"github.com/sweeney/heater-control/internal/logic"
	"github.com/sweeney/heater-control/internal/notify"
	"github.com/sweeney/heater-control/internal/sensor"
	"github.com/sweeney/heater-control/internal/status"
	"github.com/sweeney/heater-control/internal/web"
)

// Process exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitFault = 2
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(exitOK)
		}
		fmt.Fprintf(os.Stderr, "heater-control: %v\n", err)
		os.Exit(exitError)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "heater-control: %v\n", err)
		os.Exit(exitError)
	}

	os.Exit(exitCode(run(cfg)))
}

func run(cfg *config.Config) error {
	bus := sensor.NewBus(sensor.NewW1Reader(cfg.OneWirePath), cfg.Sensors, cfg.SensorTimeout)

	if cfg.PrintTemps {
		return printTemps(context.Background(), os.Stdout, bus)
	}

	runID := uuid.NewString()

	notifier, err := newNotifier(cfg, runID)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	defer notifier.Close()

	out, err := gpio.NewRealOutput(cfg.GPIOChip, cfg.PinEnable, cfg.PinPulse)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	tracker := status.NewTracker(runID, time.Now(), status.Config{
		Target:    cfg.Target,
		RunLength: cfg.RunLength,
		CycleMs:   cfg.Cycle.Milliseconds(),
		TickMs:    cfg.Tick.Milliseconds(),
		Transport: cfg.Notify.Transport,
		Recipient: cfg.Notify.Recipient,
		HTTPAddr:  cfg.HTTPAddr,
	})

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	logger.Info().
		Str("run_id", runID).
		Dur("cycle", cfg.Cycle).
		Dur("tick", cfg.Tick).
		Int("run_length", cfg.RunLength).
		Str("transport", cfg.Notify.Transport).
		Msg("started")

	r := heater.Start(context.Background(), heater.Deps{
		Config:   cfg.Logic(),
		Sensors:  bus,
		Output:   out,
		Notifier: notifier,
		Tracker:  tracker,
		RunID:    runID,
		Cycle:    cfg.Cycle,
		Tick:     cfg.Tick,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return waitForRun(r, sigCh)
}

// runner is the part of *heater.Run the signal loop needs.
type runner interface {
	Stop(reason string)
	Wait() error
}

// waitForRun blocks until the run ends by itself or a signal stops it.
func waitForRun(r runner, sig <-chan os.Signal) error {
	done := make(chan error, 1)
	go func() { done <- r.Wait() }()

	select {
	case s := <-sig:
		name := signalName(s)
		logger.Info().Str("signal", name).Msg("shutting down")
		r.Stop(name)
		return <-done
	case err := <-done:
		return err
	}
}

func newNotifier(cfg *config.Config, runID string) (notify.Notifier, error) {
	switch cfg.Notify.Transport {
	case config.TransportMQTT:
		return notify.NewMQTTNotifier(notify.MQTTConfig{
			Broker:    cfg.Notify.URL,
			ClientID:  "heater-control-" + runID[:8],
			Recipient: cfg.Notify.Recipient,
			Username:  cfg.Notify.Username,
			Password:  cfg.Notify.Password,
		})
	case config.TransportAMQP:
		return notify.NewAMQPNotifier(cfg.Notify.URL, cfg.Notify.Recipient)
	case config.TransportNone:
		return notify.NewLogNotifier(cfg.Notify.Recipient), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Notify.Transport)
	}
}

// exitCode maps the run result to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var fault *heater.FaultError
	if errors.As(err, &fault) {
		logger.Error().Str("fault", string(fault.Kind)).Msg(fault.Message)
		return exitFault
	}
	logger.Error().Err(err).Msg("fatal")
	return exitError
}

// printTemps reads every sensor once and writes one "label: value" line each.
func printTemps(ctx context.Context, w io.Writer, sensors heater.Sensors) error {
	samples := sensors.ReadAll(ctx)
	labels := make([]string, 0, len(samples))
	for label := range samples {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		if s := samples[label]; s.Usable() {
			fmt.Fprintf(w, "%s: %.3f\n", label, s.Value)
		} else {
			fmt.Fprintf(w, "%s: ERR\n", label)
		}
	}
	if !allUsable(samples) {
		return errors.New("one or more sensors did not report")
	}
	return nil
}

func allUsable(samples map[string]logic.Sample) bool {
	for _, s := range samples {
		if !s.Usable() {
			return false
		}
	}
	return true
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
