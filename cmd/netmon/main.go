// netmon prints the outage and success-rate report for the recorded
// probe history. It only ever reads the store.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"netmon/internal/analyze"
	"netmon/internal/config"
	"netmon/internal/lib/setup"
	"netmon/internal/lib/sl"
)

func main() {
	setup.LoadEnv()

	st := setup.MustLoadStore(config.NewStoreConfig())
	report, err := analyze.Analyze(st)
	if err != nil {
		slog.Error("failed to generate the report", sl.Error(err))
		os.Exit(1)
	}
	fmt.Print(report)
}
