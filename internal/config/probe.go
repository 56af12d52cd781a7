package config

import "time"

type ProbeConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	// Targets are probed over HTTP and ICMP every interval.
	Targets []string
	// Privileged selects raw-socket ICMP instead of unprivileged UDP
	// echo. Requires CAP_NET_RAW.
	Privileged bool
}

func NewProbeConfig() ProbeConfig {
	return ProbeConfig{
		Interval:   getEnvAsDuration("NETMON_PROBE_INTERVAL", time.Minute),
		Timeout:    getEnvAsDuration("NETMON_PROBE_TIMEOUT", 5*time.Second),
		Targets:    getEnvAsList("NETMON_TARGETS", []string{"1.1.1.1", "1.0.0.1", "2606:4700:4700::1111"}),
		Privileged: getEnvAsBool("NETMON_PRIVILEGED_PING", false),
	}
}
