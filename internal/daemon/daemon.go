// Package daemon supervises the probing daemon's process lifecycle:
// privileged start with detach and privilege drop, status query
// against pid file and process table, and stop with signal escalation.
// It talks to the OS only; the check store's contents are never touched
// from here.
package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"netmon/internal/config"

	"golang.org/x/sys/unix"
)

// daemonFlag is passed to the re-executed binary so it runs the probe
// loop instead of the control surface.
const daemonFlag = "-daemon"

// RequireRoot terminates the process with exit code 1 unless it runs
// with root privilege. Start and stop need it to manage the daemon
// account's directories and to signal the daemon.
func RequireRoot() {
	if os.Geteuid() != 0 {
		fmt.Fprintln(os.Stderr, "This needs to be run as root")
		os.Exit(1)
	}
}

// Start launches the daemon: it prepares the store, pid and log
// directories, re-executes this binary detached in its own session
// with stdout/stderr on the log files, drops privilege to the
// configured account and writes the pid file.
//
// The default privilege drop discards every capability, CAP_NET_RAW
// included, so ICMP probes stop working in the dropped daemon. Set
// DaemonConfig.KeepRawSocket to retain CAP_NET_RAW through ambient
// capabilities.
func Start(cfg config.DaemonConfig, storeCfg config.StoreConfig) error {
	uid, gid, err := lookupAccount(cfg.User, cfg.Group)
	if err != nil {
		return err
	}

	for _, dir := range []string{storeCfg.Dir, filepath.Dir(cfg.PidFile), filepath.Dir(cfg.InfoLog), filepath.Dir(cfg.ErrLog)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	// The daemon account maintains the pid file after the drop.
	if err := os.Chown(filepath.Dir(cfg.PidFile), uid, gid); err != nil {
		return fmt.Errorf("chown pid directory: %w", err)
	}

	infoLog, err := os.Create(cfg.InfoLog)
	if err != nil {
		return fmt.Errorf("open info log: %w", err)
	}
	defer infoLog.Close()
	errLog, err := os.Create(cfg.ErrLog)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	defer errLog.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable: %w", err)
	}

	cmd := exec.Command(exe, daemonFlag)
	cmd.Dir = storeCfg.Dir
	cmd.Stdout = infoLog
	cmd.Stderr = errLog
	attr := &syscall.SysProcAttr{
		Setsid: true,
		Credential: &syscall.Credential{
			Uid: uint32(uid),
			Gid: uint32(gid),
		},
	}
	if cfg.KeepRawSocket {
		attr.AmbientCaps = []uintptr{unix.CAP_NET_RAW}
	}
	cmd.SysProcAttr = attr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon process: %w", err)
	}
	pid := cmd.Process.Pid
	if err := writePidFile(cfg, pid, uid, gid); err != nil {
		return err
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release daemon process: %w", err)
	}

	slog.Info("netmond was started", slog.Int("pid", pid))
	return nil
}

// SetupProcess applies the daemon-side process settings that only the
// daemon itself can set: the file-creation mask for the store and pid
// files it will write.
func SetupProcess() {
	unix.Umask(0o022)
}

// CleanupOwnPidFile deletes the pid file on clean daemon shutdown, but
// only when it actually names this process. A foreground run must not
// clobber the pid file of a detached daemon.
func CleanupOwnPidFile(cfg config.DaemonConfig) {
	pid, ok := ReadPid(cfg)
	if !ok || pid != os.Getpid() {
		return
	}
	if err := os.Remove(cfg.PidFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove the pid file", slog.String("path", cfg.PidFile), slog.String("error", err.Error()))
	}
}

func lookupAccount(userName, groupName string) (uid, gid int, err error) {
	u, err := user.Lookup(userName)
	if err != nil {
		return 0, 0, fmt.Errorf("look up daemon user %q: %w", userName, err)
	}
	g, err := user.LookupGroup(groupName)
	if err != nil {
		return 0, 0, fmt.Errorf("look up daemon group %q: %w", groupName, err)
	}
	uid, err = strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err = strconv.Atoi(g.Gid)
	if err != nil {
		return 0, 0, fmt.Errorf("parse gid %q: %w", g.Gid, err)
	}
	return uid, gid, nil
}
