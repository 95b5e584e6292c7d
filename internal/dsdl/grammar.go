package dsdl

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// DefinitionLexer tokenizes DSDL definition files. Dotted type references
// such as uavcan.node.Heartbeat.1.0 are lexed as a single Name token.
//
//nolint:govet // Participle DSL uses unkeyed fields
var DefinitionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"Comment", `#[^\n]*`},
	{"EOL", `\n`},
	{"Whitespace", `[ \t\r]+`},
	{"Separator", `---`},
	{"Directive", `@[a-z_]+`},
	{"Name", `[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*(?:\.[0-9]+\.[0-9]+)?`},
	{"Int", `[0-9]+`},
	{"Punct", `<=|[\[\]=-]`},
})

//nolint:govet // Participle struct tags are DSL, not reflect tags
type definitionAST struct {
	Statements []*statementAST `( @@ | EOL )*`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type statementAST struct {
	Pos       lexer.Position
	Separator bool      `(  @Separator`
	Directive string    ` | @Directive`
	Field     *fieldAST ` | @@ ) EOL`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type fieldAST struct {
	Pos   lexer.Position
	Type  string    `@Name`
	Array *arrayAST `@@?`
	Name  string    `@Name?`
	Value *int64    `( "=" @("-"? Int) )?`
}

//nolint:govet // Participle struct tags are DSL, not reflect tags
type arrayAST struct {
	Variable bool `"[" @"<="?`
	Capacity int  `@Int "]"`
}

var definitionParser = participle.MustBuild[definitionAST](
	participle.Lexer(DefinitionLexer),
	participle.Elide("Comment", "Whitespace"),
)

// ParseError reports a problem in a definition file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

func parseDefinition(path string, src []byte) (*definitionAST, error) {
	if len(src) == 0 || src[len(src)-1] != '\n' {
		src = append(append(make([]byte, 0, len(src)+1), src...), '\n')
	}
	ast, err := definitionParser.ParseBytes(path, src)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			pos := perr.Position()
			return nil, &ParseError{Path: path, Line: pos.Line, Column: pos.Column, Message: perr.Message()}
		}
		return nil, &ParseError{Path: path, Line: 1, Column: 1, Message: err.Error()}
	}
	return ast, nil
}
