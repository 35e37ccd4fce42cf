package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/lox/cardplatypus/internal/game"
	"github.com/lox/cardplatypus/internal/game/bluff"
	"github.com/lox/cardplatypus/internal/game/euchre"
	"github.com/lox/cardplatypus/internal/game/kuhn"
)

func setupLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// signalContext cancels on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// rootFor returns a fresh-state factory for a game name.
func rootFor(name string) (func() game.State, error) {
	switch name {
	case "euchre":
		return func() game.State { return euchre.NewState() }, nil
	case "kuhn":
		return func() game.State { return kuhn.NewState() }, nil
	case "bluff":
		return func() game.State { return bluff.NewState() }, nil
	default:
		return nil, fmt.Errorf("unknown game %q", name)
	}
}
