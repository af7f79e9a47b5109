// Command ssrpages serves and inspects a page-based SSR application.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	dir     string
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "ssrpages",
		Short: "Page configuration, routing and page code modules for SSR apps",
		Long: `ssrpages resolves an application's page configuration, matches URLs
to pages, generates the per-page code modules a bundler imports, and
serves pages and their serialized page context over HTTP.

The project is described by ssrpages.json; pages are declared in the
YAML file it names (pages.yaml by default).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "Project directory (default: nearest directory with ssrpages.json)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output")

	rootCmd.AddCommand(
		genCmd(flags),
		matchCmd(flags),
		routesCmd(flags),
		serveCmd(flags),
		assetsCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// newLogger returns the command logger, writing to w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
