// Command psm matches experiment and control tables by propensity score and
// serves the same pipeline over HTTP.
//
// Usage:
//
//	psm match --experiment exp.csv --control ctrl.csv --columns age,income -n 100
//	psm match --store s3://bucket/runs --experiment exp.csv --control ctrl.csv --out result.csv.zst --publish
//	psm serve --config psm.yaml
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
