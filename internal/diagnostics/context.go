package diagnostics

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ContextExtractor reads the source lines around a diagnostic. File contents
// are cached by path.
type ContextExtractor struct {
	mu    sync.Mutex
	cache map[string][]string
}

// NewContextExtractor creates a new context extractor.
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{cache: make(map[string][]string)}
}

// ExtractContext returns up to contextLines lines either side of line.
func (e *ContextExtractor) ExtractContext(path string, line, column, contextLines int) (Context, error) {
	lines, err := e.lines(path)
	if err != nil {
		return Context{}, err
	}
	if line < 1 || line > len(lines) {
		return Context{}, fmt.Errorf("line %d out of range [1, %d]", line, len(lines))
	}

	start := max(line-contextLines, 1)
	end := min(line+contextLines, len(lines))
	return Context{
		Lines:       lines[start-1 : end],
		StartLine:   start,
		ErrorLine:   line,
		ErrorColumn: column,
	}, nil
}

func (e *ContextExtractor) lines(path string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if lines, ok := e.cache[path]; ok {
		return lines, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	lines := splitLines(content)
	if e.cache == nil {
		e.cache = make(map[string][]string)
	}
	e.cache[path] = lines
	return lines, nil
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// Context is a window of source lines around an error position.
type Context struct {
	Lines       []string
	StartLine   int
	ErrorLine   int
	ErrorColumn int
}

// IsEmpty returns true if the context has no lines.
func (c Context) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Format renders the lines with a gutter of line numbers, marks the error
// line with '>' and puts a caret under the error column.
func (c Context) Format() string {
	if c.IsEmpty() {
		return ""
	}

	var b strings.Builder
	width := len(fmt.Sprint(c.StartLine + len(c.Lines) - 1))
	for i, line := range c.Lines {
		num := c.StartLine + i
		marker := ' '
		if num == c.ErrorLine {
			marker = '>'
		}
		fmt.Fprintf(&b, "%c %*d | %s\n", marker, width, num, line)

		if num != c.ErrorLine || c.ErrorColumn <= 0 {
			continue
		}
		b.WriteString(strings.Repeat(" ", width+5))
		for j := 0; j < c.ErrorColumn-1 && j < len(line); j++ {
			if line[j] == '\t' {
				b.WriteByte('\t')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString("^\n")
	}
	return b.String()
}
