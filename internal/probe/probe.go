// Package probe issues the reachability probes and feeds completed
// checks into the store.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"netmon/internal/records"

	probing "github.com/prometheus-community/pro-bing"
)

// familyFlag derives the IP family flag bits from the target address.
// Unparsable targets get no family bit, which the analyzer treats as
// an accepted anomaly.
func familyFlag(target string) records.CheckFlag {
	ip := net.ParseIP(target)
	switch {
	case ip == nil:
		return 0
	case ip.To4() != nil:
		return records.FlagIPv4
	default:
		return records.FlagIPv6
	}
}

// HTTP probes the target with a plain GET. Any response at all counts
// as reachable.
func HTTP(ctx context.Context, target string, timeout time.Duration) records.Check {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	host := target
	if ip := net.ParseIP(target); ip != nil && ip.To4() == nil {
		host = "[" + target + "]"
	}

	flags := records.FlagTypeHTTP | familyFlag(target)
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s", host), nil)
	resp, err := http.DefaultClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return records.New(start, flags, nil, target)
	}
	defer resp.Body.Close()

	return records.New(start, flags|records.FlagSuccess, &latency, target)
}

// ICMP probes the target with a single echo request. Privileged mode
// uses a raw socket and needs CAP_NET_RAW; unprivileged mode falls
// back to a UDP echo socket.
func ICMP(ctx context.Context, target string, timeout time.Duration, privileged bool) records.Check {
	flags := familyFlag(target)
	if flags.Has(records.FlagIPv6) {
		flags |= records.FlagTypeICMP6
	} else {
		flags |= records.FlagTypeICMP4
	}

	start := time.Now()
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return records.New(start, flags, nil, target)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return records.New(start, flags, nil, target)
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return records.New(start, flags, nil, target)
	}
	latency := stats.AvgRtt.Milliseconds()
	return records.New(start, flags|records.FlagSuccess, &latency, target)
}
