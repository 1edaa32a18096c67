package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	tree_sitter_markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

var (
	// ErrParseFailed is returned when a grammar cannot produce an error-free tree.
	ErrParseFailed = errors.New("parse failed")

	// ErrUnsupportedSyntax is returned for extensions without a grammar.
	ErrUnsupportedSyntax = errors.New("unsupported syntax")
)

// Grammar names a tree-sitter language used for ECMAScript sources.
type Grammar string

const (
	GrammarJavaScript Grammar = "javascript"
	GrammarTypeScript Grammar = "typescript"
	GrammarTSX        Grammar = "tsx"
)

// GrammarFor picks the ECMAScript grammar for a file extension.
func GrammarFor(path m.Path) (Grammar, bool) {
	switch strings.ToLower(path.Ext()) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return GrammarJavaScript, true
	case ".ts", ".mts", ".cts":
		return GrammarTypeScript, true
	case ".tsx":
		return GrammarTSX, true
	default:
		return "", false
	}
}

func (g Grammar) language() *sitter.Language {
	switch g {
	case GrammarTypeScript:
		return typescript.GetLanguage()
	case GrammarTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Syntax is a parsed source file. The concrete type is either
// *EcmaScriptSyntax or *MarkdownSyntax.
type Syntax interface {
	File() m.Path
	Close()
	syntax()
}

// ScriptBlock is one tree-sitter tree over ECMAScript text. StartLine is the
// 1-based line of the block's first byte in the original file.
type ScriptBlock struct {
	Source    []byte
	Root      *sitter.Node
	StartLine int

	tree *sitter.Tree
}

// Line converts a node position into a 1-based line of the original file.
func (b *ScriptBlock) Line(n *sitter.Node) int {
	return b.StartLine + int(n.StartPoint().Row)
}

// Text returns the source text covered by n.
func (b *ScriptBlock) Text(n *sitter.Node) string {
	return n.Content(b.Source)
}

func (b *ScriptBlock) close() {
	if b.tree != nil {
		b.tree.Close()
		b.tree = nil
	}
}

// EcmaScriptSyntax is a JavaScript or TypeScript module.
type EcmaScriptSyntax struct {
	Path    m.Path
	Grammar Grammar
	Script  *ScriptBlock
}

func (s *EcmaScriptSyntax) File() m.Path { return s.Path }
func (s *EcmaScriptSyntax) Close()       { s.Script.close() }
func (*EcmaScriptSyntax) syntax()        {}

// MarkdownSyntax is an MDX document. Blocks holds the top-level import and
// export paragraphs, each parsed as JavaScript.
type MarkdownSyntax struct {
	Path   m.Path
	Blocks []*ScriptBlock
}

func (s *MarkdownSyntax) File() m.Path { return s.Path }

func (s *MarkdownSyntax) Close() {
	for _, block := range s.Blocks {
		block.close()
	}
}

func (*MarkdownSyntax) syntax() {}

// SyntaxAdapter turns source files into syntax trees.
type SyntaxAdapter interface {
	Parse(ctx context.Context, file *m.FileDescriptor) (Syntax, error)
}

// LocalSyntaxAdapter parses with the tree-sitter grammars bundled in
// go-tree-sitter.
type LocalSyntaxAdapter struct{}

// NewLocalSyntaxAdapter constructs a LocalSyntaxAdapter.
func NewLocalSyntaxAdapter() *LocalSyntaxAdapter {
	return &LocalSyntaxAdapter{}
}

// Parse builds the syntax tree for file. The caller must Close the result.
func (a *LocalSyntaxAdapter) Parse(ctx context.Context, file *m.FileDescriptor) (Syntax, error) {
	if !utf8.Valid(file.Source) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrParseFailed, file.Path)
	}

	switch file.Kind {
	case m.SyntaxMarkdown:
		return a.parseMarkdown(ctx, file)
	case m.SyntaxEcmaScript:
		grammar, ok := GrammarFor(file.Path)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedSyntax, file.Path)
		}

		block, err := parseScript(ctx, grammar, file.Source, 1)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file.Path, err)
		}

		return &EcmaScriptSyntax{Path: file.Path, Grammar: grammar, Script: block}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSyntax, file.Kind)
	}
}

func parseScript(ctx context.Context, grammar Grammar, source []byte, startLine int) (*ScriptBlock, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(grammar.language())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		tree.Close()
		return nil, fmt.Errorf("%w: syntax error near line %d", ErrParseFailed, startLine+firstErrorRow(root))
	}

	return &ScriptBlock{Source: source, Root: root, StartLine: startLine, tree: tree}, nil
}

func firstErrorRow(root *sitter.Node) int {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsError() || n.IsMissing() {
			return int(n.StartPoint().Row)
		}

		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil && child.HasError() {
				stack = append(stack, child)
			}
		}
	}

	return int(root.StartPoint().Row)
}

const (
	mdNodeDocument  = "document"
	mdNodeSection   = "section"
	mdNodeParagraph = "paragraph"
)

func (a *LocalSyntaxAdapter) parseMarkdown(ctx context.Context, file *m.FileDescriptor) (*MarkdownSyntax, error) {
	body, offset := stripFrontMatter(file.Source)

	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(tree_sitter_markdown.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w: %w", file.Path, ErrParseFailed, err)
	}
	defer tree.Close()

	result := &MarkdownSyntax{Path: file.Path}

	for _, paragraph := range topLevelParagraphs(tree.RootNode()) {
		text := bytes.TrimRight([]byte(paragraph.Content(body)), " \t\r\n")
		if !isModuleStatement(text) {
			continue
		}

		startLine := offset + int(paragraph.StartPoint().Row) + 1

		block, err := parseScript(ctx, GrammarJavaScript, text, startLine)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("parse %s: %w", file.Path, err)
		}

		result.Blocks = append(result.Blocks, block)
	}

	return result, nil
}

// topLevelParagraphs returns paragraphs directly under the document or a
// heading section, in source order. Lists, quotes and code blocks are skipped.
func topLevelParagraphs(root *sitter.Node) []*sitter.Node {
	var paragraphs []*sitter.Node

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case mdNodeParagraph:
				paragraphs = append(paragraphs, child)
			case mdNodeSection, mdNodeDocument:
				visit(child)
			}
		}
	}

	visit(root)

	return paragraphs
}

func isModuleStatement(text []byte) bool {
	return bytes.HasPrefix(text, []byte("import ")) ||
		bytes.HasPrefix(text, []byte("import{")) ||
		bytes.HasPrefix(text, []byte("export "))
}

// stripFrontMatter removes a leading YAML front matter block and returns the
// remaining text with the number of lines removed.
func stripFrontMatter(source []byte) ([]byte, int) {
	const fence = "---"

	if !bytes.HasPrefix(source, []byte(fence+"\n")) && !bytes.HasPrefix(source, []byte(fence+"\r\n")) {
		return source, 0
	}

	lines := bytes.SplitAfter(source, []byte("\n"))
	for i := 1; i < len(lines); i++ {
		if string(bytes.TrimRight(lines[i], "\r\n")) == fence {
			return bytes.Join(lines[i+1:], nil), i + 1
		}
	}

	return source, 0
}
