// Command plcruntime is the real-time PLC execution core daemon: it loads
// a compiled control-program artifact, drives the scan cycle against the
// plugin-backed I/O image, and serves the control/debug socket. Startup
// and shutdown ordering follow agents/docker-agent/main.go's shape (flag
// parsing with environment fallback, background goroutines launched in
// dependency order, signal.Notify-driven graceful shutdown) generalized
// from a single WebSocket connection to this process's several
// independent background services.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/audit"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/config"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/control"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/controlauth"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/logging"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/opsserver"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/reporter"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/telemetry"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/watchdog"
)

func main() {
	cfg := config.Load()

	controlSocket := flag.String("control-socket", cfg.ControlSocketPath, "control/debug socket path")
	logSocket := flag.String("log-socket", cfg.LogSocketPath, "log transport socket path")
	pluginConfig := flag.String("plugin-config", cfg.PluginConfigPath, "plugin driver host configuration file")
	buildDir := flag.String("build-dir", cfg.BuildDir, "directory scanned for compiled program artifacts")
	maxClients := flag.Int("max-clients", cfg.MaxClients, "maximum concurrent control-socket clients")
	opsAddr := flag.String("ops-addr", cfg.OpsListenAddr, "ops listener bind address (/healthz, /metrics)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	logPretty := flag.Bool("log-pretty", false, "use a human-readable console log writer")
	flag.Parse()

	cfg.ControlSocketPath = *controlSocket
	cfg.LogSocketPath = *logSocket
	cfg.PluginConfigPath = *pluginConfig
	cfg.BuildDir = *buildDir
	cfg.MaxClients = *maxClients
	cfg.OpsListenAddr = *opsAddr

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "plc-runtime: invalid configuration:", err)
		os.Exit(1)
	}

	logging.Initialize(*logLevel, *logPretty)

	transport := logging.NewTransport(cfg.LogSocketPath, cfg.NATSURL, cfg.NATSSubject)
	logging.AttachTransport(transport)

	logger := logging.Base

	auditSink, err := audit.Open(cfg.AuditDSN, logging.Control())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open audit sink")
	}
	defer auditSink.Close()

	tables := image.New()
	pluginHost := plugins.NewHost(tables, logging.Plugins())
	manager := lifecycle.NewManager(cfg.BuildDir, cfg.PluginConfigPath, tables, pluginHost, auditSink, logging.Lifecycle())

	publisher, err := telemetry.NewPublisher(cfg.RedisURL, cfg.RedisChannel, logging.Control())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct telemetry publisher")
	}
	defer publisher.Close()

	var gate *controlauth.Gate
	if cfg.AuthRequired {
		gate = controlauth.NewGate(cfg.JWTSigningKey, cfg.TOTPSecret)
	}

	controlSrv := control.New(cfg.ControlSocketPath, cfg.MaxClients, manager, gate, auditSink, logging.Control())
	opsSrv := opsserver.New(cfg.OpsListenAddr, manager, logging.Control())
	statsReporter := reporter.New(manager, publisher, logging.Control())
	watchdogSvc := watchdog.New(manager, logging.Watchdog(), os.Exit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	runBackground := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error().Err(err).Str("service", name).Msg("background service exited with error")
			}
		}()
	}

	runBackground("log-transport", func(ctx context.Context) error {
		transport.Run(ctx)
		return nil
	})
	runBackground("watchdog", func(ctx context.Context) error {
		watchdogSvc.Run(ctx)
		return nil
	})
	runBackground("control-socket", controlSrv.Run)
	runBackground("ops-listener", opsSrv.Run)

	cronExpr := "@every " + cfg.StatsReportInterval.String()
	if err := statsReporter.Start(ctx, cronExpr); err != nil {
		logger.Fatal().Err(err).Str("cron", cronExpr).Msg("failed to start statistics reporter")
	}

	logger.Info().
		Str("control_socket", cfg.ControlSocketPath).
		Str("ops_addr", cfg.OpsListenAddr).
		Str("build_dir", cfg.BuildDir).
		Msg("plc-runtime started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	statsReporter.Stop()
	cancel()
	wg.Wait()

	logger.Info().Msg("plc-runtime shutdown complete")
}
