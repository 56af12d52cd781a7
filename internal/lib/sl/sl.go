package sl

import (
	"log/slog"
	"netmon/internal/records"
)

func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

func Check(check records.Check) slog.Attr {
	attrs := []any{
		slog.String("target", check.Target),
		slog.String("type", check.Type().String()),
		slog.Bool("success", check.IsSuccess()),
	}
	if check.LatencyMs != nil {
		attrs = append(attrs, slog.Int64("latency_ms", *check.LatencyMs))
	}
	return slog.Group("check", attrs...)
}

func Pid(pid int) slog.Attr {
	return slog.Int("pid", pid)
}
