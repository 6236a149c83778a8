// Command xiropt runs the XIR optimization pipeline over the built-in
// sample modules.
//
// Usage:
//
//	xiropt [options] <command> [args]
//
// Examples:
//
//	xiropt list                                 # List samples and passes
//	xiropt print loop_sum                       # Optimize and print a sample
//	xiropt print --raw ray_query                # Print without optimizing
//	xiropt run --passes mem2reg,dce dead_code   # Interpret after two passes
//	xiropt callgraph call_graph                 # Show the call graph
//	xiropt --config pipeline.toml print if_else # Pipeline from a config file
package main

import (
	"fmt"
	"os"

	"github.com/containerd/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gogpu/xir"
)

const xiroptVersion = "0.1.0-dev"

type rootOptions struct {
	configFile string
	passes     []string
	noValidate bool
	workers    int
	verbose    bool
}

func newRootCommand() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "xiropt [OPTIONS] COMMAND",
		Short:         "Optimize and inspect XIR sample modules",
		Version:       xiroptVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "TOML pipeline configuration file")
	flags.StringSliceVar(&opts.passes, "passes", nil, "comma separated passes to run, in order")
	flags.BoolVar(&opts.noValidate, "no-validate", false, "skip module validation around the pipeline")
	flags.IntVar(&opts.workers, "workers", 0, "modules optimized concurrently")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every pass at debug level")

	cmd.AddCommand(
		newListCommand(),
		newPrintCommand(&opts),
		newRunCommand(&opts),
		newCallGraphCommand(&opts),
	)
	return cmd
}

// pipelineOptions merges the config file, if any, with the flags set on the
// command line, and applies the resulting log level.
func pipelineOptions(opts *rootOptions, flags *pflag.FlagSet) (xir.Options, error) {
	pipeline := xir.DefaultOptions()
	if opts.configFile != "" {
		var err error
		if pipeline, err = xir.LoadOptions(opts.configFile); err != nil {
			return xir.Options{}, err
		}
	}
	if flags.Changed("passes") {
		pipeline.Passes = opts.passes
	}
	if opts.noValidate {
		pipeline.Validate = false
	}
	if flags.Changed("workers") {
		pipeline.Workers = opts.workers
	}
	if opts.verbose {
		pipeline.LogLevel = "debug"
	}
	if err := pipeline.Check(); err != nil {
		return xir.Options{}, err
	}
	if pipeline.LogLevel != "" {
		if err := log.SetLevel(pipeline.LogLevel); err != nil {
			return xir.Options{}, errors.Wrap(err, "log level")
		}
	}
	return pipeline, nil
}

func main() {
	log.L.Logger.SetOutput(os.Stderr)

	cmd := newRootCommand()
	cmd.SetOut(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "xiropt: %s\n", err)
		os.Exit(1)
	}
}
