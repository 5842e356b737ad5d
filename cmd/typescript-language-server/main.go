package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/RakeshSunda/typescript-language-server/internal/ls"
	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

var (
	tsserverPath       string
	logLevel           string
	projectDiagnostics bool
)

var rootCmd = &cobra.Command{
	Use:   "typescript-language-server",
	Short: "LSP adapter for the TypeScript/JavaScript analysis server",
	RunE:  run,
}

func main() {
	rootCmd.Version = ls.Version
	rootCmd.Flags().StringVar(&tsserverPath, "tsserver-path", "tsserver", "path to the tsserver executable")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.Flags().BoolVar(&projectDiagnostics, "project-diagnostics", false, "request diagnostics project-wide instead of per open file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(logLevel),
	})))

	client, err := tsserver.Start(tsserver.Options{
		Path: tsserverPath,
		Config: tsserver.Config{
			EnableProjectDiagnostics: projectDiagnostics,
		},
	})
	if err != nil {
		slog.Error("tsserver start failed", "error", err)
		return err
	}
	defer client.Close()

	server := ls.New(client)
	if err := server.RunStdio(); err != nil {
		slog.Error("server failed", "error", err)
		return err
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
