// Command schmerzverlauf records pain and medication entries and serves the
// tracker over HTTP.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the persistent root flags.
type options struct {
	configPath string
	logLevel   string
	trace      bool
	stdout     io.Writer
	stderr     io.Writer
}

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "error: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "schmerzverlauf",
		Short:         "Pain and medication diary",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	defaultConfig := os.Getenv("SCHMERZ_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "schmerzverlauf.yaml"
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to the YAML configuration")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().BoolVar(&opts.trace, "trace", false, "write operation spans as JSON lines to stderr")

	root.AddCommand(
		newServeCmd(opts),
		newPainCmd(opts),
		newMedCmd(opts),
		newListCmd(opts),
		newSeriesCmd(opts),
		newDosesCmd(opts),
		newExportCmd(opts),
		newClearCmd(opts),
		newConfigCmd(opts),
	)
	return root
}
