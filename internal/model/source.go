// Package model defines the data structures for unused-file analysis.
package model

import (
	"path/filepath"
	"strings"
)

// Path represents an absolute file system path.
type Path string

// Dir returns the directory containing the path.
func (p Path) Dir() Path {
	return Path(filepath.Dir(string(p)))
}

// Ext returns the file extension, including the leading dot.
func (p Path) Ext() string {
	return filepath.Ext(string(p))
}

// Join appends elements to the path.
func (p Path) Join(elem ...string) Path {
	return Path(filepath.Join(append([]string{string(p)}, elem...)...))
}

// Within reports whether p is dir itself or lies below it.
func (p Path) Within(dir Path) bool {
	if p == dir {
		return true
	}

	prefix := string(dir)
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return strings.HasPrefix(string(p), prefix)
}

// SyntaxKind identifies how a source file has to be parsed.
type SyntaxKind string

const (
	// SyntaxEcmaScript covers JavaScript, TypeScript and their JSX dialects.
	SyntaxEcmaScript SyntaxKind = "ecmascript"
	// SyntaxMarkdown is markdown with embedded script blocks (MDX).
	SyntaxMarkdown SyntaxKind = "markdown"
)

// SyntaxKindFor returns the syntax kind for a file extension.
func SyntaxKindFor(path Path) SyntaxKind {
	if strings.EqualFold(path.Ext(), ".mdx") {
		return SyntaxMarkdown
	}

	return SyntaxEcmaScript
}

// FileDescriptor represents one source file owned by exactly one package.
type FileDescriptor struct {
	Path   Path
	Kind   SyntaxKind
	Source []byte
}

// Size returns the length of the source text in bytes.
func (f *FileDescriptor) Size() int64 {
	return int64(len(f.Source))
}
