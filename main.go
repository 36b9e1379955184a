// ircmux - drives several IRC client sessions from one readiness loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ircmux/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ircmux: %v\n", err)
		os.Exit(1)
	}
}
