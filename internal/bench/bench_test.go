package bench

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/electwix/dsdl-catalyst/internal/dsdl"
	"github.com/electwix/dsdl-catalyst/internal/fileset"
	"github.com/electwix/dsdl-catalyst/internal/generator"
	"github.com/electwix/dsdl-catalyst/internal/lang"
	"github.com/electwix/dsdl-catalyst/internal/lang/py"
	"github.com/electwix/dsdl-catalyst/internal/logging"
	"github.com/electwix/dsdl-catalyst/internal/pipeline"
	"github.com/electwix/dsdl-catalyst/internal/templates"
)

type discardWriter struct{}

func (discardWriter) WriteFile(string, []byte) error { return nil }

// writeProject lays out a project with n message types spread over a few
// nested namespaces.
func writeProject(b *testing.B, n int) string {
	b.Helper()
	dir := b.TempDir()
	files := map[string]string{
		"dsdl-catalyst.toml":            "target_language = \"py\"\nout = \"gen\"\nroot_namespaces = [\"dsdl/*\"]\n",
		"dsdl/bench/geo/Point.1.0.dsdl": "float32 x\nfloat32 y\nfloat32 z\n",
	}
	for i := range n {
		name := fmt.Sprintf("dsdl/bench/ns%d/Type%d.1.0.dsdl", i%8, i)
		files[name] = "uint8 MAX = 16\nbench.geo.Point.1.0[<=16] points\nvoid5\nbool class\nint32 if\n"
	}
	for name, contents := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			b.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(contents), 0o600); err != nil {
			b.Fatalf("write %s: %v", name, err)
		}
	}
	return filepath.Join(dir, "dsdl-catalyst.toml")
}

func benchmarkPipeline(b *testing.B, n int) {
	configPath := writeProject(b, n)
	logger := logging.New(logging.Options{Writer: io.Discard})
	pipe := pipeline.Pipeline{Env: pipeline.Environment{
		Logger:     logging.NewSlogAdapter(logger),
		FSResolver: fileset.NewOSResolver,
		Writer:     discardWriter{},
		Reader:     dsdl.NewReader(nil),
	}}
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := pipe.Run(ctx, pipeline.RunOptions{ConfigPath: configPath, DryRun: true}); err != nil {
			b.Fatalf("pipeline run: %v", err)
		}
	}
}

func BenchmarkPipelineSmall(b *testing.B) { benchmarkPipeline(b, 4) }

func BenchmarkPipeline(b *testing.B) { benchmarkPipeline(b, 200) }

func BenchmarkGenerate(b *testing.B) {
	types, err := dsdl.ReadNamespace(context.Background(), filepath.Join(filepath.Dir(writeProject(b, 64)), "dsdl", "bench"))
	if err != nil {
		b.Fatalf("read namespace: %v", err)
	}
	langCtx, err := lang.NewContext(lang.ContextOptions{TargetLanguage: py.LanguageName})
	if err != nil {
		b.Fatalf("language context: %v", err)
	}
	env, err := templates.New(templates.Options{Language: langCtx.TargetLanguage()})
	if err != nil {
		b.Fatalf("templates: %v", err)
	}
	gen, err := generator.New(langCtx, env, generator.Options{})
	if err != nil {
		b.Fatalf("generator: %v", err)
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := gen.Generate(context.Background(), types); err != nil {
			b.Fatalf("generate: %v", err)
		}
	}
}

func BenchmarkID(b *testing.B) {
	langCtx, err := lang.NewContext(lang.ContextOptions{TargetLanguage: py.LanguageName})
	if err != nil {
		b.Fatalf("language context: %v", err)
	}
	filters := py.New(langCtx.TargetLanguage())
	inputs := []string{"if", "I like python", "2Foo", "uavcan.node.Heartbeat", "héllo wörld"}

	b.ReportAllocs()
	for b.Loop() {
		for _, in := range inputs {
			_ = filters.ID(in)
		}
	}
}
