// Package main is the entry point for the mallard workflow engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/mallard/cmd/mallard/commands"
	"go.trai.ch/mallard/internal/app"
	"go.trai.ch/mallard/internal/core/domain"
	_ "go.trai.ch/mallard/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available if initialization failed; zerr prints a
		// full report with stack trace and metadata under %+v.
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		return 1
	}

	cli := commands.New(components)

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrRunFailed) {
			// Per-target failures were already reported.
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
