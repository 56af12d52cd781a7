package config

import "time"

type DaemonConfig struct {
	PidFile string
	InfoLog string
	ErrLog  string
	// User and Group name the unprivileged account the daemon runs as
	// after privilege drop.
	User  string
	Group string
	// StopTimeout bounds how long stop waits for a graceful exit before
	// escalating to SIGKILL; liveness is polled every PollInterval.
	StopTimeout  time.Duration
	PollInterval time.Duration
	// KeepRawSocket retains CAP_NET_RAW across the privilege drop so
	// ICMP probes keep working. The default drop discards every
	// capability, which disables ICMP once the daemon is running.
	KeepRawSocket bool
}

func NewDaemonConfig() DaemonConfig {
	return DaemonConfig{
		PidFile:       getEnv("NETMON_PID_FILE", "/run/netmond/netmond.pid"),
		InfoLog:       getEnv("NETMON_INFO_LOG", "/var/log/netmon/info.log"),
		ErrLog:        getEnv("NETMON_ERROR_LOG", "/var/log/netmon/error.log"),
		User:          getEnv("NETMON_USER", "netmon"),
		Group:         getEnv("NETMON_GROUP", "netmon"),
		StopTimeout:   getEnvAsDuration("NETMON_STOP_TIMEOUT", 5*time.Second),
		PollInterval:  getEnvAsDuration("NETMON_STOP_POLL_INTERVAL", 20*time.Millisecond),
		KeepRawSocket: getEnvAsBool("NETMON_KEEP_RAW_SOCKET", false),
	}
}
