// Package main implements the dsdl-catalyst CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/electwix/dsdl-catalyst/internal/cli"
	"github.com/electwix/dsdl-catalyst/internal/diagnostics"
	"github.com/electwix/dsdl-catalyst/internal/fileset"
	"github.com/electwix/dsdl-catalyst/internal/logging"
	"github.com/electwix/dsdl-catalyst/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	if len(opts.Args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", opts.Args)
		return 1
	}

	logger := logging.New(logging.Options{
		Verbose: opts.Verbose,
		JSON:    opts.LogJSON,
		Writer:  stderr,
	})

	env := pipeline.Environment{
		Logger:     logging.NewSlogAdapter(logger),
		FSResolver: fileset.NewOSResolver,
		Writer:     pipeline.NewOSWriter(),
	}

	pipe := pipeline.Pipeline{Env: env}
	summary, runErr := pipe.Run(ctx, pipeline.RunOptions{
		ConfigPath:   opts.ConfigPath,
		OutOverride:  opts.Out,
		DryRun:       opts.DryRun,
		ListOutputs:  opts.ListOutputs,
		StrictConfig: opts.StrictConfig,
	})

	formatter := diagnostics.NewFormatter()
	if err := formatter.WriteAll(stderr, summary.Diagnostics); err != nil {
		return 1
	}

	if runErr != nil {
		var diagErr *pipeline.DiagnosticsError
		if !errors.As(runErr, &diagErr) {
			_, _ = fmt.Fprintln(stderr, runErr.Error())
		}
		var writeErr *pipeline.WriteError
		if errors.As(runErr, &writeErr) {
			return 2
		}
		return 1
	}

	if opts.ListOutputs || opts.DryRun {
		for _, file := range summary.Files {
			_, _ = fmt.Fprintln(stdout, file.Path)
		}
	}
	return 0
}
