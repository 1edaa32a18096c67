package model

import (
	"sort"
	"sync"
)

// Package is one manifest-bearing directory together with the source files it
// owns and the reference marks collected for them during a run.
type Package struct {
	Root            Path
	Name            string
	Mode            ModuleMode
	Manifest        *Manifest
	SubPackageGlobs []string
	Files           map[Path]*FileDescriptor
	Parent          *Package
	Children        []*Package

	mu    sync.RWMutex
	marks map[Path]bool
}

// NewPackage creates a package rooted at root. The parent link is set when
// parent is non-nil; the caller appends the package to parent.Children.
func NewPackage(root Path, manifest *Manifest, parent *Package) *Package {
	return &Package{
		Root:            root,
		Name:            manifest.Name,
		Mode:            manifest.Mode(),
		Manifest:        manifest,
		SubPackageGlobs: append([]string(nil), manifest.Workspaces...),
		Files:           make(map[Path]*FileDescriptor),
		Parent:          parent,
		marks:           make(map[Path]bool),
	}
}

// AddFile records f as owned by the package.
func (p *Package) AddFile(f *FileDescriptor) {
	p.Files[f.Path] = f
}

// Owns reports whether path is one of the package's files.
func (p *Package) Owns(path Path) bool {
	_, ok := p.Files[path]
	return ok
}

// Mark records path as referenced. Paths the package does not own are
// ignored. It returns true when the mark is new.
func (p *Package) Mark(path Path) bool {
	if !p.Owns(path) {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.marks[path] {
		return false
	}

	p.marks[path] = true

	return true
}

// IsMarked reports whether path has been referenced.
func (p *Package) IsMarked(path Path) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.marks[path]
}

// MarkedCount returns the number of referenced files.
func (p *Package) MarkedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.marks)
}

// ResetMarks drops every reference mark so the package can be analyzed again.
func (p *Package) ResetMarks() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.marks = make(map[Path]bool)
}

// OwnedPaths returns the owned file paths in lexical order.
func (p *Package) OwnedPaths() []Path {
	paths := make([]Path, 0, len(p.Files))
	for path := range p.Files {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i] < paths[j]
	})

	return paths
}

// Unused returns owned files that carry no reference mark, in lexical order.
func (p *Package) Unused() []Path {
	var unused []Path

	for _, path := range p.OwnedPaths() {
		if !p.IsMarked(path) {
			unused = append(unused, path)
		}
	}

	return unused
}

// HasDependency reports whether the package itself declares name.
func (p *Package) HasDependency(name string) bool {
	return p.Manifest.HasDependency(name)
}

// DependsOn reports whether the package or one of its ancestors declares
// name. Workspace roots commonly hoist tooling dependencies.
func (p *Package) DependsOn(name string) bool {
	for pkg := p; pkg != nil; pkg = pkg.Parent {
		if pkg.HasDependency(name) {
			return true
		}
	}

	return false
}

// Ancestors returns the package followed by its parents up to the root.
func (p *Package) Ancestors() []*Package {
	var chain []*Package
	for pkg := p; pkg != nil; pkg = pkg.Parent {
		chain = append(chain, pkg)
	}

	return chain
}

// Walk calls fn for the package and then each descendant, depth first.
func (p *Package) Walk(fn func(*Package)) {
	fn(p)

	for _, child := range p.Children {
		child.Walk(fn)
	}
}

// All returns the package and all its descendants, parents before children.
func (p *Package) All() []*Package {
	all := []*Package{p}
	for _, child := range p.Children {
		all = append(all, child.All()...)
	}

	return all
}

// Find returns the package named name within the tree rooted at p.
func (p *Package) Find(name string) (*Package, bool) {
	for _, pkg := range p.All() {
		if pkg.Name == name {
			return pkg, true
		}
	}

	return nil, false
}

// Owner returns the innermost package of the tree that owns path, or nil when
// no package owns it (ignored, external or non-source files).
func (p *Package) Owner(path Path) *Package {
	if !path.Within(p.Root) {
		return nil
	}

	for _, child := range p.Children {
		if owner := child.Owner(path); owner != nil {
			return owner
		}
	}

	if p.Owns(path) {
		return p
	}

	return nil
}

// Script is one entry of the manifest's scripts map.
type Script struct {
	Name    string
	Command string
}

// Scripts returns the manifest scripts ordered by name.
func (p *Package) Scripts() []Script {
	scripts := make([]Script, 0, len(p.Manifest.Scripts))
	for name, command := range p.Manifest.Scripts {
		scripts = append(scripts, Script{Name: name, Command: command})
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})

	return scripts
}
