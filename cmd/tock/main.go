package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"tock/internal/logging"
	"tock/internal/metrics"
	"tock/internal/session"
	"tock/internal/tock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tock:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yml", "path to the YAML config")
	countdown := flag.String("countdown", "", "count down from MM:SS instead of counting up")
	limit := flag.String("for", "", "stop a stopwatch after MM:SS")
	trace := flag.String("trace", "", "write a CSV event trace to this path")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address")
	verbose := flag.Bool("v", false, "print every clock event")
	flag.Parse()

	// Read the configuration
	cfg, err := tock.Load(*configPath)
	if err != nil {
		return err
	}
	if *countdown != "" {
		cfg.Countdown = true
		cfg.Duration = *countdown
	}
	if *trace != "" {
		cfg.TraceCSV = *trace
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logging.NewLogger(
		logging.WithLevel(cfg.LogLevel),
		logging.WithJSON(cfg.LogJSON),
		logging.WithAddSource(cfg.LogSource),
	)

	var runFor time.Duration
	if *limit != "" {
		ms, err := tock.TimeToMS(*limit)
		if err != nil {
			return fmt.Errorf("-for: %w", err)
		}
		runFor = time.Duration(ms) * time.Millisecond
	}
	var duration time.Duration
	if cfg.Countdown {
		// validated above
		duration, _ = cfg.CountdownDuration()
	}

	opts := []tock.Option{
		tock.WithLogger(log),
		tock.WithOnTick(func(c *tock.Clock) {
			fmt.Printf("\r%8s  %s", c.Display(), tock.FormatDuration(c.Lap()))
		}),
		tock.WithOnComplete(func() {
			fmt.Println("\ncountdown complete")
		}),
	}
	if *verbose {
		opts = append(opts, tock.WithObserver(tock.ObserverFunc(func(ev tock.Event) {
			fmt.Println(ev)
		})))
	}

	var rec *tock.Recorder
	if cfg.TraceCSV != "" {
		rec, err = tock.NewRecorder(cfg.TraceCSV)
		if err != nil {
			return err
		}
		opts = append(opts, tock.WithObserver(rec))
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		m := metrics.New()
		opts = append(opts, tock.WithObserver(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		log.Info("serving metrics", slog.String("addr", cfg.MetricsAddr))
	}

	clock := tock.New(cfg, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lap, runErr := session.Run(ctx, clock, duration, runFor)
	fmt.Printf("\nfinal: %s (%d ticks)\n", tock.FormatDuration(lap), clock.Ticks())

	var result error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		result = multierror.Append(result, runErr)
	}
	if rec != nil {
		if err := rec.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close trace: %w", err))
		}
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown metrics: %w", err))
		}
	}
	return result
}
