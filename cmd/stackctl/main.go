package main

import (
	"log/slog"
	"os"

	"github.com/agentstack/stackctl/cmd/stackctl/commands"
)

func main() {
	// Commands that run a workflow replace this with the tee logger once
	// the log path is known; everything before that goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
