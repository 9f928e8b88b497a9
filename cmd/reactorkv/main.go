// Command reactorkv runs the key-value server: it wires configuration,
// logging, the durability log, the KV engine, and the reactor together in
// the order the bootstrap contract requires, then blocks until a shutdown
// signal arrives.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"reactorkv/internal/aof"
	"reactorkv/internal/config"
	"reactorkv/internal/engine"
	"reactorkv/internal/logging"
	"reactorkv/internal/reactor"
	"reactorkv/internal/stats"
	"reactorkv/internal/store"
	"reactorkv/internal/timer"
)

var rootCmd = &cobra.Command{
	Use:   "reactorkv [config-file]",
	Short: "reactorkv is a single-threaded, epoll-driven key-value server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().Int("port", 0, "listening TCP port (overrides config/default)")
	rootCmd.Flags().String("loglevel", "", "log level: debug, info, warn, error, fatal")
	rootCmd.Flags().String("logfile", "", "log file path (empty means stdout)")
	rootCmd.Flags().Bool("aof-enabled", false, "enable the durability log")
	rootCmd.Flags().String("aof-file", "", "durability log path")
	rootCmd.Flags().String("appendfsync", "", "durability flush policy: always, everysec, no")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var configFile string
	if len(args) == 1 {
		configFile = args[0]
	}

	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	logger, closeLogger, err := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFile)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer closeLogger()

	counters := stats.New()
	st := store.New()

	var log *aof.Log
	if cfg.AOFEnabled {
		policy := aof.ParseSyncPolicy(cfg.AppendFsync)
		log, err = aof.Open(afero.NewOsFs(), cfg.AOFFile, policy)
		if err != nil {
			logger.Fatalf("opening durability log: %v", err)
		}
	}

	eng := engine.New(st, log, counters)

	if log != nil {
		values, truncated, err := log.Replay()
		if err != nil {
			logger.Fatalf("replaying durability log: %v", err)
		}
		if truncated {
			logger.Warnf("durability log %s ended mid-record; discarding the incomplete tail", cfg.AOFFile)
		}
		for _, v := range values {
			eng.Execute(v, true)
		}
		logger.Infof("replayed %d commands from %s", len(values), cfg.AOFFile)
	}

	wheel, err := timer.New()
	if err != nil {
		logger.Fatalf("creating timer wheel: %v", err)
	}

	wheel.Add(time.Second, eng.RunSweep, true, time.Second)

	if log != nil && aof.ParseSyncPolicy(cfg.AppendFsync) == aof.EverySec {
		wheel.Add(time.Second, func() {
			if err := log.FlushIfPending(); err != nil {
				logger.Errorf("flushing durability log: %v", err)
			}
		}, true, time.Second)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	r, err := reactor.New(addr, eng, wheel, counters)
	if err != nil {
		logger.Fatalf("starting reactor on %s: %v", addr, err)
	}
	logger.Infof("listening on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	select {
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
		shutdownErr := r.Shutdown()
		runErr := <-done
		return shutdownOutcome(shutdownErr, runErr, wheel, log)
	case runErr := <-done:
		return shutdownOutcome(nil, runErr, wheel, log)
	}
}

// shutdownOutcome aggregates every close-time error (the reactor's,
// the loop goroutine's, the timer wheel's, and the durability log's) with
// go.uber.org/multierr rather than reporting only the first.
func shutdownOutcome(reactorErr, runErr error, wheel *timer.Wheel, log *aof.Log) error {
	var err error
	err = multierr.Append(err, reactorErr)
	err = multierr.Append(err, runErr)
	err = multierr.Append(err, wheel.Close())
	if log != nil {
		err = multierr.Append(err, log.Close())
	}
	return err
}
