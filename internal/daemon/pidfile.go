package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"netmon/internal/config"
	"netmon/internal/lib/sl"

	"golang.org/x/sys/unix"
)

// State describes what the pid file and the process table together say
// about the daemon.
type State int

const (
	// StateNotRunning means no pid file exists.
	StateNotRunning State = iota
	// StateStale means the pid file exists but no such process runs.
	StateStale
	// StateRunning means the pid file names a live process.
	StateRunning
)

// Status is the result of a liveness query.
type Status struct {
	State State
	Pid   int
}

func (s Status) String() string {
	switch s.State {
	case StateRunning:
		return fmt.Sprintf("netmond is running with pid %d", s.Pid)
	case StateStale:
		return fmt.Sprintf("the pid file exists with pid %d, but no process with that pid is running", s.Pid)
	default:
		return "netmond is not running"
	}
}

// ReadPid reads the daemon pid from the pid file. The second return is
// false when the file does not exist or does not parse; an unparsable
// pid file is logged and treated like an absent one.
func ReadPid(cfg config.DaemonConfig) (int, bool) {
	raw, err := os.ReadFile(cfg.PidFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to read the pid file", slog.String("path", cfg.PidFile), sl.Error(err))
		}
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		slog.Error("failed to parse the pid from file",
			slog.String("path", cfg.PidFile), slog.String("raw", strings.TrimSpace(string(raw))), sl.Error(err))
		return 0, false
	}
	return pid, true
}

func writePidFile(cfg config.DaemonConfig, pid, uid, gid int) error {
	if err := os.WriteFile(cfg.PidFile, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	// The daemon account must be able to remove the file on shutdown.
	if err := os.Chown(cfg.PidFile, uid, gid); err != nil {
		return fmt.Errorf("chown pid file: %w", err)
	}
	return nil
}

// pidAlive checks the process table with a null signal. EPERM still
// means the process exists.
func pidAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// QueryStatus distinguishes "no pid file" from "pid file present but
// process dead" from "running".
func QueryStatus(cfg config.DaemonConfig) Status {
	pid, ok := ReadPid(cfg)
	if !ok {
		return Status{State: StateNotRunning}
	}
	if pidAlive(pid) {
		return Status{State: StateRunning, Pid: pid}
	}
	return Status{State: StateStale, Pid: pid}
}
