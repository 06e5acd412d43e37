// Command provision prepares a facility registry host from a declarative
// recipe: package repository keys and sources, the server package set,
// build dependencies, service restarts, and the deploy account with its
// sudo grant. Steps run in order and the first failure stops the run.
//
// Most steps shell out to system tools (apt-get, systemctl, useradd,
// visudo), so the command is normally run as root.
//
// Usage:
//
//	go run ./cmd/provision -recipe deploy/provision.yaml
//	go run ./cmd/provision -recipe deploy/provision.yaml -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/umojahealth/facility-data-repair/internal/config"
	"github.com/umojahealth/facility-data-repair/internal/observability"
	"github.com/umojahealth/facility-data-repair/internal/provision"
)

func main() {
	os.Exit(run())
}

func run() int {
	recipePath := flag.String("recipe", "deploy/provision.yaml", "recipe file to apply")
	dryRun := flag.Bool("dry-run", false, "print the steps without applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	logger := observability.NewLogger(cfg)

	rec, err := provision.Load(*recipePath)
	if err != nil {
		logger.Error("failed to load recipe", "path", *recipePath, "error", err)
		return 1
	}

	if *dryRun {
		fmt.Printf("%s (%d steps)\n", rec.Name, len(rec.Steps))
		for i := range rec.Steps {
			fmt.Printf("%2d. %s\n", i+1, rec.Steps[i].Describe())
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := provision.NewRunner(provision.HostExecer{}, http.DefaultClient, logger, "")
	if err := runner.Apply(ctx, rec); err != nil {
		logger.Error("provisioning failed", "error", err)
		return 1
	}

	logger.Info("recipe applied", "name", rec.Name, "steps", len(rec.Steps))
	return 0
}
