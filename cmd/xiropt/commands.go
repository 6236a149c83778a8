package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gogpu/xir"
	"github.com/gogpu/xir/analysis"
	"github.com/gogpu/xir/internal/samples"
	"github.com/gogpu/xir/interp"
	"github.com/gogpu/xir/ir"
	"github.com/gogpu/xir/printer"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the sample modules and the known passes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Samples:")
			for _, s := range samples.All() {
				fmt.Fprintf(out, "  %-16s %s\n", s.Name, s.Description)
			}
			fmt.Fprintln(out, "\nPasses:")
			for _, name := range xir.Passes() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintf(out, "\nDefault pipeline: %s\n", strings.Join(xir.DefaultOptions().Passes, ","))
			return nil
		},
	}
}

// buildSamples builds the named samples and, unless raw is set, optimizes
// them with the pipeline configured on the command line.
func buildSamples(cmd *cobra.Command, opts *rootOptions, raw bool, names []string) ([]samples.Sample, []*ir.Module, error) {
	var (
		found   []samples.Sample
		modules []*ir.Module
	)
	for _, name := range names {
		s, ok := samples.Lookup(name)
		if !ok {
			return nil, nil, errors.Errorf("unknown sample %q, see 'xiropt list'", name)
		}
		found = append(found, s)
		modules = append(modules, s.Build())
	}
	if raw {
		return found, modules, nil
	}
	pipeline, err := pipelineOptions(opts, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	if err := xir.OptimizeModules(cmd.Context(), modules, pipeline); err != nil {
		return nil, nil, err
	}
	return found, modules, nil
}

func newPrintCommand(opts *rootOptions) *cobra.Command {
	var (
		raw        bool
		noComments bool
		noTypes    bool
	)
	cmd := &cobra.Command{
		Use:   "print SAMPLE [SAMPLE...]",
		Short: "Optimize samples and print the resulting modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, modules, err := buildSamples(cmd, opts, raw, args)
			if err != nil {
				return err
			}
			popts := printer.Options{Comments: !noComments, Types: !noTypes}
			for i, m := range modules {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				fmt.Fprint(cmd.OutOrStdout(), printer.PrintWithOptions(m, popts))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&raw, "raw", false, "print the samples as built, without running the pipeline")
	flags.BoolVar(&noComments, "no-comments", false, "omit comments and predecessor lists")
	flags.BoolVar(&noTypes, "no-types", false, "omit result and constant types")
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		raw      bool
		maxSteps int
	)
	cmd := &cobra.Command{
		Use:   "run SAMPLE",
		Short: "Interpret the entry function of a sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, modules, err := buildSamples(cmd, opts, raw, args)
			if err != nil {
				return err
			}
			entry := samples.Entry(modules[0])
			if entry == nil {
				return errors.Errorf("sample %s has no main function", found[0].Name)
			}
			res, err := interp.New(interp.Options{MaxSteps: maxSteps}).Run(entry, found[0].Args()...)
			if err != nil {
				return errors.Wrapf(err, "running %s", found[0].Name)
			}
			out := cmd.OutOrStdout()
			for _, line := range res.Output {
				fmt.Fprintln(out, line)
			}
			if res.Value != nil {
				fmt.Fprintf(out, "=> %s\n", interp.Format(res.Value))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&raw, "raw", false, "interpret the sample as built, without running the pipeline")
	flags.IntVar(&maxSteps, "max-steps", interp.DefaultMaxSteps, "abort after this many executed instructions")
	return cmd
}

func newCallGraphCommand(opts *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "callgraph SAMPLE",
		Short: "Print the call graph of a sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, modules, err := buildSamples(cmd, opts, raw, args)
			if err != nil {
				return err
			}
			m := modules[0]
			g := analysis.ComputeCallGraph(m)
			out := cmd.OutOrStdout()

			roots := make([]string, 0, len(g.RootFunctions()))
			for _, f := range g.RootFunctions() {
				roots = append(roots, functionLabel(f))
			}
			fmt.Fprintf(out, "roots: %s\n", strings.Join(roots, ", "))
			for _, f := range m.Functions() {
				callees := g.Callees(f)
				if len(callees) == 0 {
					continue
				}
				names := make([]string, len(callees))
				for i, c := range callees {
					names[i] = functionLabel(c)
				}
				fmt.Fprintf(out, "%s -> %s\n", functionLabel(f), strings.Join(names, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "inspect the sample as built, without running the pipeline")
	return cmd
}

func functionLabel(f *ir.Function) string {
	return f.FunctionKind().String() + " " + f.Label()
}
