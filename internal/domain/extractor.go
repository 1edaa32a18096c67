package domain

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"deadwood.dev/pkg/deadwood/internal/adapter"
	m "deadwood.dev/pkg/deadwood/internal/model"
)

// DefaultMaxDepth bounds the syntax tree depth the extractor descends into.
const DefaultMaxDepth = 2048

// Tree-sitter node types the extractor reacts to.
const (
	nodeImportStatement     = "import_statement"
	nodeImportRequireClause = "import_require_clause"
	nodeExportStatement     = "export_statement"
	nodeNamespaceExport     = "namespace_export"
	nodeCallExpression      = "call_expression"
	nodeImport              = "import"
	nodeIdentifier          = "identifier"
	nodeString              = "string"
	nodeTemplateString      = "template_string"
	nodeTemplateSubst       = "template_substitution"
	nodeComment             = "comment"
)

// Extractor lists the module references a source file makes.
type Extractor interface {
	Extract(ctx context.Context, file *m.FileDescriptor) ([]m.Reference, error)
}

type extractor struct {
	syntaxAdapter adapter.SyntaxAdapter
	maxDepth      int
}

// NewExtractor constructs an Extractor. A maxDepth of zero uses
// DefaultMaxDepth.
func NewExtractor(syntaxAdapter adapter.SyntaxAdapter, maxDepth int) Extractor {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &extractor{syntaxAdapter: syntaxAdapter, maxDepth: maxDepth}
}

// Extract parses file and returns its references in source order. A single
// non-literal require or import() fails the whole file.
func (e *extractor) Extract(ctx context.Context, file *m.FileDescriptor) ([]m.Reference, error) {
	syntax, err := e.syntaxAdapter.Parse(ctx, file)
	if err != nil {
		return nil, err
	}
	defer syntax.Close()

	switch s := syntax.(type) {
	case *adapter.EcmaScriptSyntax:
		return e.walk(file.Path, s.Script)
	case *adapter.MarkdownSyntax:
		var refs []m.Reference

		for _, block := range s.Blocks {
			refs = append(refs, topLevelImports(block)...)
		}

		return refs, nil
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedSyntax, syntax)
	}
}

type frame struct {
	node  *sitter.Node
	depth int
}

// walk visits every node depth first with an explicit stack.
func (e *extractor) walk(path m.Path, block *adapter.ScriptBlock) ([]m.Reference, error) {
	var refs []m.Reference

	stack := []frame{{node: block.Root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth > e.maxDepth {
			return nil, fmt.Errorf("%s: %w (limit %d)", path, ErrNestingTooDeep, e.maxDepth)
		}

		n := top.node

		switch n.Type() {
		case nodeImportStatement:
			if ref, ok := importReference(block, n); ok {
				refs = append(refs, ref)
			}

			continue
		case nodeExportStatement:
			if ref, ok := reExportReference(block, n); ok {
				refs = append(refs, ref)
				continue
			}
		case nodeCallExpression:
			ref, ok, err := callReference(path, block, n)
			if err != nil {
				return nil, err
			}

			if ok {
				refs = append(refs, ref)
			}
		}

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if child := n.NamedChild(i); child != nil {
				stack = append(stack, frame{node: child, depth: top.depth + 1})
			}
		}
	}

	return refs, nil
}

// topLevelImports returns the import declarations of an embedded script
// block.
func topLevelImports(block *adapter.ScriptBlock) []m.Reference {
	var refs []m.Reference

	for i := 0; i < int(block.Root.NamedChildCount()); i++ {
		child := block.Root.NamedChild(i)
		if child.Type() != nodeImportStatement {
			continue
		}

		if ref, ok := importReference(block, child); ok {
			refs = append(refs, ref)
		}
	}

	return refs
}

func importReference(block *adapter.ScriptBlock, n *sitter.Node) (m.Reference, bool) {
	if source := n.ChildByFieldName("source"); source != nil {
		if spec, ok := literalText(block, source); ok {
			return m.Reference{Specifier: spec, Kind: m.RefImport, Line: block.Line(n)}, true
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != nodeImportRequireClause {
			continue
		}

		if source := requireClauseSource(clause); source != nil {
			if spec, ok := literalText(block, source); ok {
				return m.Reference{Specifier: spec, Kind: m.RefImportEquals, Line: block.Line(n)}, true
			}
		}
	}

	return m.Reference{}, false
}

// requireClauseSource finds the string of `import x = require("...")`. Older
// grammar revisions do not name the field.
func requireClauseSource(clause *sitter.Node) *sitter.Node {
	if source := clause.ChildByFieldName("source"); source != nil {
		return source
	}

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		if child := clause.NamedChild(i); child.Type() == nodeString {
			return child
		}
	}

	return nil
}

func reExportReference(block *adapter.ScriptBlock, n *sitter.Node) (m.Reference, bool) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return m.Reference{}, false
	}

	spec, ok := literalText(block, source)
	if !ok {
		return m.Reference{}, false
	}

	kind := m.RefReExport

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "*" || child.Type() == nodeNamespaceExport {
			kind = m.RefReExportAll
			break
		}
	}

	return m.Reference{Specifier: spec, Kind: kind, Line: block.Line(n)}, true
}

// callReference handles require(...) and import(...). Calls to anything else
// yield no reference.
func callReference(path m.Path, block *adapter.ScriptBlock, n *sitter.Node) (m.Reference, bool, error) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return m.Reference{}, false, nil
	}

	var kind m.ReferenceKind

	switch {
	case fn.Type() == nodeImport:
		kind = m.RefDynamicImport
	case fn.Type() == nodeIdentifier && block.Text(fn) == "require":
		kind = m.RefRequire
	default:
		return m.Reference{}, false, nil
	}

	line := block.Line(n)
	args := callArguments(n)

	switch {
	case kind == m.RefRequire && len(args) != 1, kind == m.RefDynamicImport && len(args) == 0:
		return m.Reference{}, false, &DynamicReferenceError{Path: path, Line: line, Kind: kind, Malformed: true}
	}

	spec, ok := literalText(block, args[0])
	if !ok {
		return m.Reference{}, false, &DynamicReferenceError{Path: path, Line: line, Kind: kind}
	}

	return m.Reference{Specifier: spec, Kind: kind, Line: line}, true, nil
}

func callArguments(call *sitter.Node) []*sitter.Node {
	argsNode := call.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}

	var args []*sitter.Node

	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		arg := argsNode.NamedChild(i)
		if arg.Type() != nodeComment {
			args = append(args, arg)
		}
	}

	return args
}

// literalText returns the value of a string literal or of a template literal
// without substitutions.
func literalText(block *adapter.ScriptBlock, n *sitter.Node) (string, bool) {
	switch n.Type() {
	case nodeString:
		return unquote(block.Text(n)), true
	case nodeTemplateString:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == nodeTemplateSubst {
				return "", false
			}
		}

		return unquote(block.Text(n)), true
	default:
		return "", false
	}
}

func unquote(text string) string {
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}

	return text
}
