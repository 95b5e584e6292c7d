// Package pipeline runs a generation: load the project file, read the root
// namespaces, render the target language and write the results.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/electwix/dsdl-catalyst/internal/config"
	"github.com/electwix/dsdl-catalyst/internal/diagnostics"
	"github.com/electwix/dsdl-catalyst/internal/dsdl"
	"github.com/electwix/dsdl-catalyst/internal/fileset"
	"github.com/electwix/dsdl-catalyst/internal/generator"
	"github.com/electwix/dsdl-catalyst/internal/lang"
	"github.com/electwix/dsdl-catalyst/internal/logging"
	"github.com/electwix/dsdl-catalyst/internal/templates"
)

// Environment captures external dependencies used by the pipeline.
type Environment struct {
	FSResolver func(string) (fileset.Resolver, error)
	// Logger defaults to a NopLogger.
	Logger logging.Logger
	// Writer defaults to an atomic OS writer.
	Writer Writer
	Hooks  Hooks
	// Reader is reused across runs so its parse cache survives; nil creates one per run.
	Reader *dsdl.Reader
	// NewRunID overrides the run id source.
	NewRunID func() string
}

// Writer writes generated files to persistent storage.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// FileReader is implemented by writers that can return what they previously
// stored. Files whose stored content already matches are not rewritten;
// writers without it receive every file.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Pipeline orchestrates configuration loading, reading and code generation.
type Pipeline struct {
	Env Environment
}

// RunOptions configures a pipeline execution.
type RunOptions struct {
	ConfigPath   string
	OutOverride  string
	DryRun       bool
	ListOutputs  bool
	StrictConfig bool
}

// Summary describes a run.
type Summary struct {
	RunID       string
	Types       []*dsdl.CompositeType
	Files       []generator.File
	Diagnostics []diagnostics.Diagnostic
	// Written and Unchanged count files by write outcome; both stay zero
	// for dry runs.
	Written   int
	Unchanged int
}

// DiagnosticsError reports a run that failed on an input file. The
// diagnostic is also the last entry of Summary.Diagnostics.
type DiagnosticsError struct {
	Diagnostic diagnostics.Diagnostic
	Cause      error
}

func (e *DiagnosticsError) Error() string {
	return e.Diagnostic.String()
}

func (e *DiagnosticsError) Unwrap() error { return e.Cause }

// WriteError wraps failures encountered while writing generated files.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// NewOSWriter returns a Writer that replaces files atomically on the local filesystem.
func NewOSWriter() Writer {
	return &osWriter{perm: 0o644}
}

type osWriter struct {
	perm fs.FileMode
}

var _ FileReader = (*osWriter)(nil)

func (w *osWriter) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}

func (w *osWriter) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("pipeline: empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".dsdl-catalyst-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
		_ = tmp.Close()
	}()
	if w.perm != 0 {
		if err := tmp.Chmod(w.perm); err != nil {
			return fmt.Errorf("chmod temp file: %w", err)
		}
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	success = true
	return nil
}

// Stage names recorded as the source of diagnostics.
const (
	stageConfig    = "config"
	stageLanguage  = "language"
	stageTemplates = "templates"
	stageReader    = "reader"
	stageGenerator = "generator"
)

// Run executes the pipeline according to opts.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (summary Summary, err error) {
	logger := p.Env.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	newRunID := p.Env.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	summary.RunID = newRunID()
	logger = logger.With("run_id", summary.RunID)
	hooks := p.Env.Hooks

	fail := func(stage, path string, cause error) error {
		d := diagnostics.FromError(stage, path, cause)
		summary.Diagnostics = append(summary.Diagnostics, d)
		logger.Error("generation failed", "stage", stage, "location", d.Location.String(), "error", d.Message)
		return &DiagnosticsError{Diagnostic: d, Cause: cause}
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultFileName
	}
	absConfigPath, err := filepath.Abs(configPath)
	if err != nil {
		return summary, fail(stageConfig, configPath, fmt.Errorf("resolve config path: %w", err))
	}
	baseDir := filepath.Dir(absConfigPath)

	resolverFn := p.Env.FSResolver
	if resolverFn == nil {
		resolverFn = fileset.NewOSResolver
	}
	resolver, err := resolverFn(baseDir)
	if err != nil {
		return summary, fail(stageConfig, absConfigPath, fmt.Errorf("resolve filesystem: %w", err))
	}

	loaded, err := config.Load(absConfigPath, config.LoadOptions{Strict: opts.StrictConfig, Resolver: &resolver})
	if err != nil {
		return summary, fail(stageConfig, absConfigPath, err)
	}
	for _, warning := range loaded.Warnings {
		summary.Diagnostics = append(summary.Diagnostics, diagnostics.Warning(stageConfig, absConfigPath, warning))
		logger.Warn("configuration warning", "message", warning)
	}

	plan := loaded.Plan
	if opts.OutOverride != "" {
		override := opts.OutOverride
		if !filepath.IsAbs(override) {
			override = filepath.Join(baseDir, override)
		}
		plan.Out = filepath.Clean(override)
	}
	logger.Debug("loaded configuration", "config", absConfigPath, "language", plan.TargetLanguage,
		"roots", len(plan.RootNamespaces), "out", plan.Out)

	langCtx, err := lang.NewContext(lang.ContextOptions{
		TargetLanguage:                    plan.TargetLanguage,
		Extension:                         plan.Extension,
		NamespaceOutputStem:               plan.NamespaceOutputStem,
		AdditionalConfigFiles:             plan.LanguageConfig,
		OmitSerializationSupportForTarget: plan.OmitSerializationSupport,
	})
	if err != nil {
		return summary, fail(stageLanguage, absConfigPath, err)
	}
	env, err := templates.New(templates.Options{Language: langCtx.TargetLanguage(), Dir: plan.Templates})
	if err != nil {
		return summary, fail(stageTemplates, absConfigPath, err)
	}

	if err := runHook(ctx, hooks.BeforeRead, plan.RootNamespaces); err != nil {
		return summary, err
	}
	reader := p.Env.Reader
	if reader == nil {
		reader = dsdl.NewReader(logging.Slog(logger))
	}
	for _, root := range plan.RootNamespaces {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		lookup := make([]dsdl.Namespace, 0, len(plan.RootNamespaces)+len(plan.LookupDirs))
		for _, dir := range slices.Concat(plan.RootNamespaces, plan.LookupDirs) {
			if dir != root {
				lookup = append(lookup, dsdl.DirNamespace(dir))
			}
		}
		types, err := reader.Read(ctx, dsdl.DirNamespace(root), lookup...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			return summary, fail(stageReader, root, err)
		}
		logger.Info("read root namespace", "namespace", root, "types", len(types))
		summary.Types = append(summary.Types, types...)
	}
	if err := runHook(ctx, hooks.AfterRead, summary.Types); err != nil {
		return summary, err
	}

	gen, err := generator.New(langCtx, env, generator.Options{
		GenerateNamespaces: plan.GenerateNamespaces,
		Logger:             logging.Slog(logger),
	})
	if err != nil {
		return summary, fail(stageGenerator, absConfigPath, err)
	}

	if opts.ListOutputs {
		planned, err := gen.Plan(summary.Types)
		if err != nil {
			return summary, fail(stageGenerator, absConfigPath, err)
		}
		summary.Files = rooted(plan.Out, planned)
		return summary, nil
	}

	if err := runHook(ctx, hooks.BeforeGenerate, summary.Types); err != nil {
		return summary, err
	}
	files, err := gen.Generate(ctx, summary.Types)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summary, ctxErr
		}
		return summary, fail(stageGenerator, renderFailurePath(err, plan.Out, absConfigPath), err)
	}
	summary.Files = rooted(plan.Out, files)
	logger.Info("generated files", "files", len(summary.Files))
	if err := runHook(ctx, hooks.AfterGenerate, summary.Files); err != nil {
		return summary, err
	}

	if opts.DryRun {
		return summary, nil
	}

	if err := runHook(ctx, hooks.BeforeWrite, summary.Files); err != nil {
		return summary, err
	}
	writer := p.Env.Writer
	if writer == nil {
		writer = NewOSWriter()
	}
	for _, file := range summary.Files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		same, cmpErr := fileMatches(writer, file.Path, file.Content)
		if cmpErr != nil {
			return summary, &WriteError{Path: file.Path, Err: cmpErr}
		}
		if same {
			summary.Unchanged++
			logger.Debug("unchanged", "path", file.Path)
			continue
		}
		if err := writer.WriteFile(file.Path, file.Content); err != nil {
			return summary, &WriteError{Path: file.Path, Err: err}
		}
		summary.Written++
	}
	logger.Info("wrote files", "written", summary.Written, "unchanged", summary.Unchanged)

	if err := runHook(ctx, hooks.AfterWrite, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func rooted(out string, files []generator.File) []generator.File {
	result := make([]generator.File, len(files))
	for i, f := range files {
		f.Path = filepath.Join(out, filepath.FromSlash(f.Path))
		result[i] = f
	}
	return result
}

// renderFailurePath locates a generation failure: the definition being
// rendered, else the output file, else the project file.
func renderFailurePath(err error, out, configPath string) string {
	var renderErr *generator.RenderError
	if !errors.As(err, &renderErr) {
		return configPath
	}
	if renderErr.Source != "" {
		return renderErr.Source
	}
	return filepath.Join(out, filepath.FromSlash(renderErr.Path))
}

func fileMatches(w Writer, path string, content []byte) (bool, error) {
	r, ok := w.(FileReader)
	if !ok {
		return false, nil
	}
	existing, err := r.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(existing, content), nil
}
