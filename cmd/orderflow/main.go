// Package main boots the orderflow HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/randalmurphal/orderflow/internal/httpapi"
	"github.com/randalmurphal/orderflow/pkg/orderflow"
	"github.com/randalmurphal/orderflow/pkg/orderflow/config"
	"github.com/randalmurphal/orderflow/pkg/orderflow/observability"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

// EnvPrefix selects the environment variables that override file config.
const EnvPrefix = "ORDERFLOW_"

func main() {
	if err := run(os.Args[1:], os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args, environ []string) error {
	cfg, err := loadConfig(args, environ)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.String("log_level", "info"))
	if err != nil {
		return err
	}
	logger.Info("service starting")

	var opts []orderflow.Option
	opts = append(opts, orderflow.WithLogger(logger))
	var appOpts []httpapi.Option
	appOpts = append(appOpts, httpapi.WithLogger(logger))

	if cfg.Bool("metrics", true) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()
		otel.SetMeterProvider(mp)

		metrics, err := observability.NewMetricsRecorderFromProvider(mp)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		opts = append(opts, orderflow.WithMetrics(metrics))
		appOpts = append(appOpts, httpapi.WithMetricsCollector(reader))
	}
	if cfg.Bool("tracing", false) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		otel.SetTracerProvider(tp)
		opts = append(opts, orderflow.WithSpanManager(observability.NewSpanManagerFromProvider(tp)))
	}

	if inv := inventoryFromConfig(cfg.Section("inventory")); inv != nil {
		appOpts = append(appOpts, httpapi.WithInventory(inv))
	}

	dbPath := cfg.String("database", ":memory:")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	settings := orderflow.SettingsFromConfig(cfg)
	pipeline := orderflow.New(settings, opts...)
	defer func() { _ = pipeline.Close() }()
	logger.Info("pipeline ready",
		slog.String("high_value_threshold", settings.HighValueThreshold.StringFixed(2)),
		slog.Int("batch_size", settings.BatchSize),
		slog.String("database", dbPath),
	)

	app := httpapi.NewApp(pipeline, st, appOpts...)
	addr := cfg.String("http_addr", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http listen", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case s := <-sigc:
		logger.Info("shutdown signal", slog.String("signal", s.String()))
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	app.StartShutdown()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration("shutdown_timeout", 15*time.Second))
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("service stopped",
		slog.Int("dead_letters", len(pipeline.DeadLetters())),
		slog.Int64("standard_handled", pipeline.StandardHandled()),
	)
	return nil
}

// loadConfig layers the config file, then the environment, then flags.
func loadConfig(args, environ []string) (config.Config, error) {
	flagSet := pflag.NewFlagSet("orderflow", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to a YAML or JSON config file")
	addr := flagSet.String("addr", "", "HTTP listen address (default :8080)")
	database := flagSet.String("database", "", "SQLite database path (default :memory:)")
	logLevel := flagSet.String("log-level", "", "debug, info, warn, or error (default info)")
	if err := flagSet.Parse(args); err != nil {
		return config.Config{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return config.Config{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg := config.New(nil)
	if *configPath != "" {
		fileCfg, err := config.FromFile(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = fileCfg
	}
	cfg = config.Overlay(cfg, config.FromEnv(EnvPrefix, environ))

	flags := map[string]string{
		"http_addr": *addr,
		"database":  *database,
		"log_level": *logLevel,
	}
	for key, val := range flags {
		if val != "" {
			cfg = cfg.With(key, val)
		}
	}
	return cfg, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}

// inventoryFromConfig builds stock limits from an sku -> quantity section.
// An empty section disables stock checks.
func inventoryFromConfig(section config.Config) *httpapi.Inventory {
	raw := section.Raw()
	if len(raw) == 0 {
		return nil
	}
	stock := make(map[string]int, len(raw))
	for sku := range raw {
		stock[sku] = section.Int(sku, 0)
	}
	return httpapi.NewInventory(stock)
}
