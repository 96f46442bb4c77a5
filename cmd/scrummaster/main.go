package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clintrovert/scrummaster/internal/apperr"
	"github.com/clintrovert/scrummaster/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(&cli.App{})
	err := root.ExecuteContext(ctx)

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if s := apperr.Suggestion(err); s != "" {
			fmt.Fprintln(os.Stderr, "Hint:", s)
		}
		stop()
		os.Exit(1)
	}
}
