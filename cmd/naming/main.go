// Command distfs-naming runs the naming process: the authoritative
// namespace (pkg/naming.Core) behind its two RMI skeletons, a monitoring
// HTTP server, and a Prometheus exposition endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/distfs/distfs/internal/config"
	"github.com/distfs/distfs/internal/metrics"
	"github.com/distfs/distfs/pkg/api"
	"github.com/distfs/distfs/pkg/health"
	"github.com/distfs/distfs/pkg/logging"
	"github.com/distfs/distfs/pkg/naming"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML configuration file")
	monitorAddr := flag.String("monitor-addr", ":8080", "address for the /healthz and /status HTTP server")
	flag.Parse()

	cfg := config.NewDefault()
	if *configFile != "" {
		loaded, err := config.LoadFromFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %s\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format)).
		With("component", "cmd.naming")

	tracker := health.NewTracker()
	collector := metrics.NewCollector(cfg.Metrics.Enabled, cfg.Metrics.Port)
	if err := collector.Start(); err != nil {
		logger.Error("failed to start metrics collector", "error", err.Error())
		os.Exit(1)
	}

	core := naming.NewCore()
	core.SetRegistrationWorkers(cfg.RMI.MaxRegistrationWorkers)
	core.SetIdleWorkerTimeout(cfg.RMI.IdleWorkerTimeout)
	core.SetStoppedHook(func(cause error) {
		if cause != nil {
			tracker.Report("naming.core", false, cause.Error())
			logger.Error("naming core stopped abnormally", "error", cause.Error())
			return
		}
		tracker.Report("naming.core", true, "stopped")
	})
	core.SetOpsObserver(collector.RecordNamingOp)
	core.SetCallObserver(collector.RecordRMICall)
	core.SetPoolSizeObserver(collector.SetWorkerPoolSize)

	registrationAddr := net.JoinHostPort(cfg.Naming.BindHost, fmt.Sprint(cfg.Naming.RegistrationPort))
	serviceAddr := net.JoinHostPort(cfg.Naming.BindHost, fmt.Sprint(cfg.Naming.ServicePort))

	if err := core.Start(registrationAddr, serviceAddr); err != nil {
		logger.Error("failed to start naming core", "error", err.Error())
		os.Exit(1)
	}
	tracker.Report("naming.core", true, fmt.Sprintf("registration=%s service=%s", core.RegistrationAddress(), core.ServiceAddress()))
	logger.Info("naming core started", "registration_addr", core.RegistrationAddress(), "service_addr", core.ServiceAddress())

	monitor := api.NewServer(*monitorAddr, tracker)
	monitor.Start()
	logger.Info("monitoring server started", "addr", monitor.Address())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := monitor.Stop(); err != nil {
		logger.Warn("monitoring server shutdown error", "error", err.Error())
	}
	if err := collector.Stop(shutdownCtx); err != nil {
		logger.Warn("metrics collector shutdown error", "error", err.Error())
	}
	if err := core.Stop(); err != nil {
		logger.Warn("naming core shutdown error", "error", err.Error())
	}
}
