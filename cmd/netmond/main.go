// netmond controls the netmon probing daemon: it starts it with
// privilege drop, queries its status and stops it with signal
// escalation. With -daemon it runs the probe loop itself in the
// foreground, without detaching or dropping privileges.
//
// Starting and stopping require root. The daemon itself runs as the
// unprivileged netmon account after the drop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netmon/internal/config"
	"netmon/internal/daemon"
	"netmon/internal/lib/setup"
	"netmon/internal/lib/sl"
	"netmon/internal/probe"
	"netmon/internal/records"
	"netmon/internal/store"
)

const version = "0.1.0"

func main() {
	help := flag.Bool("help", false, "print this help menu")
	showVersion := flag.Bool("version", false, "print the version")
	start := flag.Bool("start", false, "start the netmon daemon")
	daemonMode := flag.Bool("daemon", false, "run directly as the daemon, do not setup a pidfile or drop privileges")
	info := flag.Bool("info", false, "info about the running netmon daemon")
	end := flag.Bool("end", false, "stop the running netmon daemon")
	fail := flag.Bool("fail", false, "add a failed http check (debugging)")
	flag.Parse()

	setup.LoadEnv()

	switch {
	case *help:
		flag.Usage()
	case *showVersion:
		fmt.Printf("netmond %s\n", version)
	case *start:
		daemon.RequireRoot()
		if err := daemon.Start(config.NewDaemonConfig(), config.NewStoreConfig()); err != nil {
			slog.Error("error while starting netmond", sl.Error(err))
			os.Exit(1)
		}
	case *daemonMode:
		runDaemon()
	case *info:
		fmt.Println(daemon.QueryStatus(config.NewDaemonConfig()))
	case *end:
		daemon.RequireRoot()
		if err := daemon.Stop(config.NewDaemonConfig()); err != nil {
			slog.Error("error while stopping netmond", sl.Error(err))
			os.Exit(1)
		}
	case *fail:
		injectFailure()
	default:
		flag.Usage()
	}
}

func runDaemon() {
	daemon.SetupProcess()
	daemonCfg := config.NewDaemonConfig()

	st := setup.MustOpenStore(config.NewStoreConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting the probe loop", slog.Int("pid", os.Getpid()))
	runner := probe.NewRunner(st, config.NewProbeConfig())
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("probe loop failed", sl.Error(err))
	}

	daemon.CleanupOwnPidFile(daemonCfg)
	slog.Info("netmond shut down")
}

// injectFailure appends one failed HTTP check, for exercising the
// analyzer against a store that is otherwise all successes.
func injectFailure() {
	st, err := store.Load(config.NewStoreConfig())
	if err != nil {
		slog.Error("could not load the check store", sl.Error(err))
		os.Exit(1)
	}
	st.AddCheck(records.New(
		time.Now(),
		records.FlagIPv4|records.FlagTypeHTTP,
		nil,
		"0.0.0.0",
	))
	if err := st.Save(); err != nil {
		slog.Error("could not save the check store", sl.Error(err))
		os.Exit(1)
	}
}
