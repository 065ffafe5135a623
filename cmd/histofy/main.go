package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/histofy/histofy/cmd/histofy/commands"
	"github.com/histofy/histofy/pkg/output"
	"github.com/histofy/histofy/pkg/ui"
)

func main() {
	// A signal during a rewrite must reach the executor so it can roll
	// back before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := commands.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		format := ui.Resolve(ui.FormatAuto, os.Stderr)
		fmt.Fprintln(os.Stderr, output.NewRenderer(format).RenderError(err))
		stop()
		os.Exit(1)
	}
}
