package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fmal/impact/internal/config"
	"github.com/fmal/impact/internal/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦┌┬┐┌─┐┌─┐┌─┐┌┬┐
  ║│││├─┘├─┤│   │
  ╩┴ ┴┴  ┴ ┴└─┘ ┴
`

// useColor is false when stdout is not a terminal.
var useColor = true

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		useColor = false
		errors.DisableColors()
	}

	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "impact",
		Short: "Fine-grained reactive state runtime",
		Long: `impact drives a fine-grained reactive graph of signals, computed
values and effects, and lets you inspect it while it runs.

  • Glitch-free push-pull propagation
  • Dependency tracking per run
  • Live devtools over HTTP and WebSocket
  • Prometheus metrics and OpenTelemetry spans`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to impact.json or impact.yaml")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		demoCmd(flags),
		benchCmd(flags),
		serveCmd(flags),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads --config, or the nearest config file, or the defaults
// when there is none.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		var ce *errors.Error
		if stderrors.As(err, &ce) && ce.Code == "E100" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the command's logger from the configuration.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With("app", cfg.Name)
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

func paint(code, text string) string {
	if !useColor {
		return text
	}
	return code + text + "\033[0m"
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", paint("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}
