// Package cli parses the command line of dsdl-catalyst.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// ProgramName is the name reported in usage output.
const ProgramName = "dsdl-catalyst"

// DefaultConfigPath is the project file read when --config is not given.
const DefaultConfigPath = "dsdl-catalyst.toml"

// Options holds the parsed flags.
type Options struct {
	ConfigPath   string
	Out          string
	DryRun       bool
	ListOutputs  bool
	StrictConfig bool
	Verbose      bool
	LogJSON      bool
	Args         []string
}

// Parse parses args, which exclude the program name. Errors carry the usage text.
func Parse(args []string) (Options, error) {
	opts := Options{ConfigPath: DefaultConfigPath}

	fs := flag.NewFlagSet(ProgramName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Path to the project file")
	fs.StringVar(&opts.ConfigPath, "c", opts.ConfigPath, "Path to the project file")
	fs.StringVar(&opts.Out, "out", "", "Override the output directory; relative paths are resolved against the project file directory")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Render files without writing them")
	fs.BoolVar(&opts.ListOutputs, "list-outputs", false, "Print the paths that would be generated and exit")
	fs.BoolVar(&opts.StrictConfig, "strict-config", false, "Treat unknown project file keys as errors")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.Verbose, "v", false, "Enable debug logging")
	fs.BoolVar(&opts.LogJSON, "log-json", false, "Write logs as JSON")

	if err := fs.Parse(args); err != nil {
		return Options{}, fmt.Errorf("%w\n\n%s", err, Usage(fs))
	}
	opts.Args = fs.Args()
	return opts, nil
}

// Usage renders the flag documentation of fs.
func Usage(fs *flag.FlagSet) string {
	if fs == nil {
		return ""
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "Usage of %s:\n", fs.Name())
	out := fs.Output()
	fs.SetOutput(&buf)
	fs.PrintDefaults()
	fs.SetOutput(out)
	return buf.String()
}
