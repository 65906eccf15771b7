// rundeck is a command line client for a Rundeck job server.
package main

import (
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	})))
	Execute()
}

func logLevel() slog.Level {
	if os.Getenv("RUNDECK_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
