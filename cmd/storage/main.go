// Command distfs-storage runs a storage server: a LocalStorage tree behind
// the Storage and Command RMI skeletons, registered with a naming process
// at startup via the resilient naming client.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/distfs/distfs/internal/config"
	"github.com/distfs/distfs/internal/metrics"
	"github.com/distfs/distfs/pkg/api"
	"github.com/distfs/distfs/pkg/health"
	"github.com/distfs/distfs/pkg/logging"
	"github.com/distfs/distfs/pkg/nclient"
	"github.com/distfs/distfs/pkg/retry"
	"github.com/distfs/distfs/pkg/rmi"
	"github.com/distfs/distfs/pkg/storage"
)

var (
	storageIface = reflect.TypeOf((*storage.Storage)(nil)).Elem()
	commandIface = reflect.TypeOf((*storage.Command)(nil)).Elem()
)

func main() {
	configFile := flag.String("config", "", "path to a YAML configuration file")
	monitorAddr := flag.String("monitor-addr", ":8081", "address for the /healthz and /status HTTP server")
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
		With("component", "cmd.storage")

	tracker := health.NewTracker()
	collector := metrics.NewCollector(cfg.Metrics.Enabled, cfg.Metrics.Port)
	if err := collector.Start(); err != nil {
		logger.Error("failed to start metrics collector", "error", err.Error())
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Storage.LocalRoot, 0o755); err != nil {
		logger.Error("failed to create storage root", "error", err.Error())
		os.Exit(1)
	}
	local := storage.NewLocalStorage(cfg.Storage.LocalRoot)

	bindAddr := net.JoinHostPort(cfg.Storage.BindHost, "0")
	storageSkeleton, err := rmi.NewSkeleton(storageIface, local, bindAddr)
	if err != nil {
		logger.Error("failed to build storage skeleton", "error", err.Error())
		os.Exit(1)
	}
	commandSkeleton, err := rmi.NewSkeleton(commandIface, local, bindAddr)
	if err != nil {
		logger.Error("failed to build command skeleton", "error", err.Error())
		os.Exit(1)
	}

	storageSkeleton.SetListenErrorHook(func(err error) {
		tracker.Report("rmi.storage", false, err.Error())
	})
	commandSkeleton.SetListenErrorHook(func(err error) {
		tracker.Report("rmi.command", false, err.Error())
	})
	storageSkeleton.SetCallObserver(collector.RecordRMICall)
	storageSkeleton.SetPoolSizeObserver(collector.SetWorkerPoolSize)
	storageSkeleton.SetIdleWorkerTimeout(cfg.RMI.IdleWorkerTimeout)
	commandSkeleton.SetCallObserver(collector.RecordRMICall)
	commandSkeleton.SetPoolSizeObserver(collector.SetWorkerPoolSize)
	commandSkeleton.SetIdleWorkerTimeout(cfg.RMI.IdleWorkerTimeout)

	if err := storageSkeleton.Start(); err != nil {
		logger.Error("failed to start storage skeleton", "error", err.Error())
		os.Exit(1)
	}
	if err := commandSkeleton.Start(); err != nil {
		logger.Error("failed to start command skeleton", "error", err.Error())
		os.Exit(1)
	}
	tracker.Report("rmi.storage", true, storageSkeleton.Address())
	tracker.Report("rmi.command", true, commandSkeleton.Address())

	storageStub, err := rmi.NewStub(storageIface, storageSkeleton)
	if err != nil {
		logger.Error("failed to build storage stub", "error", err.Error())
		os.Exit(1)
	}
	commandStub, err := rmi.NewStub(commandIface, commandSkeleton)
	if err != nil {
		logger.Error("failed to build command stub", "error", err.Error())
		os.Exit(1)
	}

	paths, err := local.LocalPaths()
	if err != nil {
		logger.Error("failed to enumerate local paths", "error", err.Error())
		os.Exit(1)
	}

	client, err := nclient.New(cfg.Storage.NamingRegistrationAddr, retry.DefaultConfig())
	if err != nil {
		logger.Error("failed to build naming client", "error", err.Error())
		os.Exit(1)
	}

	toDelete, err := client.Register(storageStub, commandStub, paths)
	if err != nil {
		tracker.Report("naming.registration", false, err.Error())
		logger.Error("failed to register with naming service", "error", err.Error())
		os.Exit(1)
	}
	tracker.Report("naming.registration", true, fmt.Sprintf("%d paths, %d superseded", len(paths), len(toDelete)))
	logger.Info("registered with naming service", "paths", len(paths), "superseded", len(toDelete))

	for _, p := range toDelete {
		if err := local.Delete(p); err != nil {
			logger.Warn("failed to delete superseded local path", "path", p.String(), "error", err.Error())
		}
	}

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
	if err := storageSkeleton.Stop(); err != nil {
		logger.Warn("storage skeleton shutdown error", "error", err.Error())
	}
	if err := commandSkeleton.Stop(); err != nil {
		logger.Warn("command skeleton shutdown error", "error", err.Error())
	}
}
