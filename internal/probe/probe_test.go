package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netmon/internal/config"
	"netmon/internal/records"
	"netmon/internal/store"
)

func TestFamilyFlag(t *testing.T) {
	cases := []struct {
		target string
		want   records.CheckFlag
	}{
		{"1.1.1.1", records.FlagIPv4},
		{"192.168.0.1", records.FlagIPv4},
		{"2606:4700:4700::1111", records.FlagIPv6},
		{"::1", records.FlagIPv6},
		{"not-an-ip", 0},
	}
	for _, tc := range cases {
		if got := familyFlag(tc.target); got != tc.want {
			t.Errorf("familyFlag(%q) = %v, want %v", tc.target, got, tc.want)
		}
	}
}

func TestHTTPProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	target := strings.TrimPrefix(srv.URL, "http://")

	check := HTTP(context.Background(), target, time.Second)
	if !check.IsSuccess() {
		t.Error("probe against live server must succeed")
	}
	if check.Type() != records.TypeHTTP {
		t.Errorf("type = %v, want HTTP", check.Type())
	}
	if check.LatencyMs == nil {
		t.Error("successful probe must record latency")
	}
	if check.Target != target {
		t.Errorf("target = %q, want %q", check.Target, target)
	}
}

func TestHTTPProbeFailure(t *testing.T) {
	// Reserve a port and close it again so nothing listens there.
	srv := httptest.NewServer(http.NotFoundHandler())
	target := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	check := HTTP(context.Background(), target, 500*time.Millisecond)
	if check.IsSuccess() {
		t.Error("probe against closed port must fail")
	}
	if check.LatencyMs != nil {
		t.Error("failed probe must not record latency")
	}
}

func TestRunnerRound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	target := strings.TrimPrefix(srv.URL, "http://")

	storeCfg := config.StoreConfig{Dir: t.TempDir(), Compression: 4}
	st, err := store.Create(storeCfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	runner := NewRunner(st, config.ProbeConfig{
		Interval: time.Hour,
		Timeout:  time.Second,
		Targets:  []string{target},
	})
	if err := runner.round(context.Background()); err != nil {
		t.Fatalf("round: %v", err)
	}

	// One HTTP and one ICMP check per target and round.
	if st.Len() != 2 {
		t.Fatalf("store has %d checks after one round, want 2", st.Len())
	}

	loaded, err := store.Load(storeCfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("round must persist its checks, reloaded %d", loaded.Len())
	}
}
