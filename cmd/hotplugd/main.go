package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/sanverite/hotplugd/internal/api"
	"github.com/sanverite/hotplugd/internal/config"
	"github.com/sanverite/hotplugd/internal/core"
	"github.com/sanverite/hotplugd/internal/display"
	"github.com/sanverite/hotplugd/internal/hotplug"
	"github.com/sanverite/hotplugd/internal/input"
	"github.com/sanverite/hotplugd/internal/platform"
	"github.com/sanverite/hotplugd/internal/probe"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML configuration file")
		listen     = flag.String("listen", "", "Control Surface listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hotplugd: %v\n", err)
		os.Exit(2)
	}
	if *listen != "" {
		cfg.API.Listen = *listen
	}

	logger, sync, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hotplugd: %v\n", err)
		os.Exit(2)
	}
	defer sync()

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "hotplugd exited with error")
		sync()
		os.Exit(1)
	}
	logger.Info("hotplugd shut down gracefully")
}

func newLogger(cfg config.LogConfig) (logr.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := zc.Build()
	if err != nil {
		return logr.Logger{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(zl).WithName("hotplugd"), func() { _ = zl.Sync() }, nil
}

func run(cfg *config.Config, logger logr.Logger) error {
	state := core.NewState(cfg.Tunables())
	if err := state.SetAgentState(core.StateStarting); err != nil {
		return err
	}

	probeCfg := probe.Config{CPURoot: cfg.Platform.CPURoot}
	if cfg.Input.Enabled {
		probeCfg.InputGlob = cfg.Input.Glob
	}
	summary, err := probe.ProbePlatform(context.Background(), probeCfg)
	state.UpdateProbe(summary)
	for _, w := range summary.Warnings {
		logger.Info("platform probe warning", "warning", w)
	}
	if err != nil {
		_ = state.SetAgentState(core.StateError)
		return fmt.Errorf("platform probe: %w", err)
	}

	cpus, err := platform.NewCPUs(cfg.Platform.CPURoot)
	if err != nil {
		_ = state.SetAgentState(core.StateError)
		return err
	}
	var freq hotplug.Frequency
	if summary.CPUFreqOK {
		freq = platform.NewCPUFreq(cfg.Platform.CPURoot)
	} else {
		state.AppendWarning("cpufreq unavailable: screen-off capping and wakeup boost disabled")
	}
	load := platform.NewLoadPoller(cfg.Platform.LoadInterval, cfg.Platform.DepthWindow, logger)

	ctl := hotplug.NewController(state, cpus, freq, load, hotplug.Options{
		SamplingPeriod:     cfg.Controller.SamplingPeriod,
		BusySamplingPeriod: cfg.Controller.BusySamplingPeriod,
		StartDelay:         cfg.Controller.StartDelay,
		ResumeDelay:        cfg.Controller.ResumeDelay,
		WakeupBoostWindow:  cfg.Controller.WakeupBoostWindow,
		Logger:             logger,
	})
	boost := hotplug.NewTouchBoost(state, cpus, cfg.Controller.BoostDelay, logger)
	defer boost.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return load.Start(gCtx)
	})
	g.Go(func() error {
		return ctl.Start(gCtx)
	})

	if cfg.API.Enabled {
		srv := api.NewServer(state, api.ServerOptions{
			Addr:            cfg.API.Listen,
			ShutdownTimeout: cfg.API.ShutdownTimeout,
			Logger:          logger,
			Suspender:       ctl,
			Probe: func(ctx context.Context) (core.PlatformSummary, error) {
				return probe.ProbePlatform(ctx, probeCfg)
			},
		})
		if err := srv.Listen(); err != nil {
			logger.Error(err, "control surface disabled")
			state.AppendWarning("control surface disabled: " + err.Error())
		} else {
			g.Go(func() error {
				return srv.Serve(gCtx)
			})
		}
	}

	if cfg.Input.Enabled {
		listener := input.NewListener(cfg.Input.Glob, boost.HandleEvent, logger)
		names, err := listener.Connect()
		switch {
		case errors.Is(err, input.ErrNoInputDevices):
			state.AppendWarning("touch boost disabled: no touch capable input devices")
		case err != nil:
			logger.Error(err, "input listener disabled")
			state.AppendWarning("touch boost disabled: " + err.Error())
		default:
			state.UpdateInputs(core.InputSnapshot{Devices: names})
			g.Go(func() error {
				return listener.Start(gCtx)
			})
		}
	}

	if cfg.Display.Enabled {
		watcher := display.NewWatcher(cfg.Display.BacklightPath, cfg.Display.PollInterval, ctl, logger)
		if err := watcher.Check(); err != nil {
			logger.Error(err, "display watcher disabled", "path", cfg.Display.BacklightPath)
			state.AppendWarning("display watcher disabled: " + err.Error())
		} else {
			g.Go(func() error {
				return watcher.Start(gCtx)
			})
		}
	}

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
