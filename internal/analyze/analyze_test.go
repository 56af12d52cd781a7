package analyze

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"netmon/internal/config"
	"netmon/internal/records"
	"netmon/internal/store"
)

// recordingHandler captures log records so tests can count warnings.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) countLevel(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func captureLogs(t *testing.T) *recordingHandler {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	h := &recordingHandler{}
	slog.SetDefault(slog.New(h))
	return h
}

func newStore(t *testing.T, checks ...records.Check) *store.Store {
	t.Helper()
	cfg := config.StoreConfig{Dir: t.TempDir(), Compression: 4}
	st, err := store.Create(cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, c := range checks {
		st.AddCheck(c)
	}
	if err := st.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return st
}

func httpCheck(t *testing.T, minute int, success bool) records.Check {
	t.Helper()
	flags := records.FlagTypeHTTP | records.FlagIPv4
	if success {
		flags |= records.FlagSuccess
	}
	ts := time.Unix(1700000000, 0).Add(time.Duration(minute) * time.Minute)
	return records.New(ts, flags, nil, "1.1.1.1")
}

// section extracts the body between a titled divider and the next one.
func section(t *testing.T, report, title string) string {
	t.Helper()
	marker := "= " + title + " ="
	start := strings.Index(report, marker)
	if start < 0 {
		t.Fatalf("report has no %q section:\n%s", title, report)
	}
	body := report[start:]
	body = body[strings.Index(body, "\n")+1:]
	if end := strings.Index(body, "=========="); end >= 0 {
		body = body[:end]
	}
	return body
}

func TestEmptyStoreReport(t *testing.T) {
	captureLogs(t)
	report, err := Analyze(newStore(t))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, title := range []string{"General", "HTTP", "ICMPv4", "ICMPv6", "IPv4", "IPv6", "Outages"} {
		if got := strings.TrimSpace(section(t, report, title)); got != "None" {
			t.Errorf("%s section of empty store = %q, want None", title, got)
		}
	}
	if !strings.Contains(section(t, report, "Store Metadata"), "Hash Store File") {
		t.Error("metadata section is missing the on-disk hash")
	}
}

func TestStatBlockCounts(t *testing.T) {
	captureLogs(t)
	st := newStore(t,
		httpCheck(t, 0, true),
		httpCheck(t, 1, true),
		httpCheck(t, 2, false),
	)
	report, err := Analyze(st)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	general := section(t, report, "General")
	for key, want := range map[string]string{
		"checks":        "00000003",
		"checks ok":     "00000002",
		"checks bad":    "00000001",
		"success ratio": "66.67%",
	} {
		found := false
		for _, line := range strings.Split(general, "\n") {
			if strings.HasPrefix(line, key+" ") && strings.Contains(line, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("general section is missing %q = %q:\n%s", key, want, general)
		}
	}
	if !strings.Contains(general, "2023-11-14T22:13:20Z") {
		t.Errorf("general section is missing the first check timestamp:\n%s", general)
	}
}

func TestOutageGrouping(t *testing.T) {
	captureLogs(t)
	// ok ok fail fail ok fail ok: two outages of 2 and 1 failing checks.
	st := newStore(t,
		httpCheck(t, 0, true),
		httpCheck(t, 1, true),
		httpCheck(t, 2, false),
		httpCheck(t, 3, false),
		httpCheck(t, 4, true),
		httpCheck(t, 5, false),
		httpCheck(t, 6, true),
	)
	report, err := Analyze(st)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	outagesBody := section(t, report, "Outages")
	first := strings.Index(outagesBody, "Checks: 2")
	second := strings.Index(outagesBody, "Checks: 1")
	if first < 0 || second < 0 || second < first {
		t.Fatalf("expected an outage of 2 checks followed by one of 1:\n%s", outagesBody)
	}
	if strings.Count(outagesBody, "Checks: ") != 2 {
		t.Errorf("expected exactly two outages:\n%s", outagesBody)
	}

	// The displayed range deliberately spans the whole category view.
	if !strings.Contains(outagesBody, "From 2023-11-14T22:13:20Z To 2023-11-14T22:19:20Z") {
		t.Errorf("outage range must bound the whole category view:\n%s", outagesBody)
	}
}

func TestNoFailuresMeansNoOutages(t *testing.T) {
	captureLogs(t)
	st := newStore(t, httpCheck(t, 0, true), httpCheck(t, 1, true))
	report, err := Analyze(st)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := strings.TrimSpace(section(t, report, "Outages")); got != "None" {
		t.Errorf("outages section = %q, want None", got)
	}
}

func TestAmbiguousFamilyExcludedWithOneWarning(t *testing.T) {
	logs := captureLogs(t)
	ambiguous := records.New(
		time.Unix(1700000000, 0),
		records.FlagSuccess|records.FlagTypeHTTP|records.FlagIPv4|records.FlagIPv6,
		nil,
		"1.1.1.1",
	)
	report, err := Analyze(newStore(t, ambiguous))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, title := range []string{"IPv4", "IPv6"} {
		if got := strings.TrimSpace(section(t, report, title)); got != "None" {
			t.Errorf("%s section must exclude the ambiguous check, got %q", title, got)
		}
	}
	if got := logs.countLevel(slog.LevelWarn); got != 1 {
		t.Errorf("ambiguous check produced %d warnings, want exactly 1", got)
	}
}

func TestFailGroups(t *testing.T) {
	mk := func(outcomes ...bool) []records.Check {
		var out []records.Check
		for i, ok := range outcomes {
			out = append(out, httpCheck(t, i, ok))
		}
		return out
	}

	cases := []struct {
		name  string
		view  []records.Check
		sizes []int
	}{
		{"no failures", mk(true, true), nil},
		{"single trailing run", mk(true, false, false), []int{2}},
		{"leading run", mk(false, true, true), []int{1}},
		{"two separated runs", mk(true, true, false, false, true, false, true), []int{2, 1}},
		{"all failing", mk(false, false, false), []int{3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups := failGroups(tc.view)
			if len(groups) != len(tc.sizes) {
				t.Fatalf("got %d groups, want %d", len(groups), len(tc.sizes))
			}
			for i, want := range tc.sizes {
				if len(groups[i]) != want {
					t.Errorf("group %d has %d checks, want %d", i, len(groups[i]), want)
				}
			}
		})
	}
}
