package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"netmon/internal/config"
	"netmon/internal/lib/sl"

	"golang.org/x/sys/unix"
)

// Stop terminates the daemon named by the pid file. It sends SIGTERM,
// polls liveness until the configured timeout and escalates to SIGKILL
// if the daemon does not exit in time. A pid file left behind after
// termination is removed with a warning; the daemon normally cleans it
// up itself.
//
// No pid file means the daemon is not running, which is not an error.
// A signal-delivery failure other than "no such process" is.
func Stop(cfg config.DaemonConfig) error {
	pid, ok := ReadPid(cfg)
	if !ok {
		slog.Info("netmond is not running")
		return nil
	}

	terminated := false
	switch err := unix.Kill(pid, unix.SIGTERM); {
	case err == nil:
		slog.Info("sent termination signal to netmond", sl.Pid(pid))
	case errors.Is(err, unix.ESRCH):
		terminated = true
	default:
		return fmt.Errorf("terminate netmond (pid %d): %w", pid, err)
	}

	deadline := time.Now().Add(cfg.StopTimeout)
	for !terminated && time.Now().Before(deadline) {
		if !pidAlive(pid) {
			terminated = true
			break
		}
		time.Sleep(cfg.PollInterval)
	}

	if !terminated {
		slog.Warn("netmond is taking too long to terminate, killing it", sl.Pid(pid))
		switch err := unix.Kill(pid, unix.SIGKILL); {
		case err == nil:
			slog.Info("sent kill signal to netmond", sl.Pid(pid))
		case errors.Is(err, unix.ESRCH):
			// Exited between the poll and the kill.
		default:
			slog.Error("failed to kill netmond", sl.Pid(pid), sl.Error(err))
		}
	}

	if _, err := os.Stat(cfg.PidFile); err == nil {
		slog.Warn("the pid file still exists even though the daemon is not running, removing it",
			slog.String("path", cfg.PidFile))
		if err := os.Remove(cfg.PidFile); err != nil {
			slog.Warn("could not remove the pid file", sl.Error(err))
		}
	}
	return nil
}
