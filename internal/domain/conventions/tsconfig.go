package conventions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tailscale/hujson"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

const maxExtendsDepth = 8

// TSConfigPaths resolves compilerOptions.paths and baseUrl imports declared
// in tsconfig.json or jsconfig.json.
type TSConfigPaths struct{}

func (TSConfigPaths) Name() string { return "tsconfig-paths" }

func (TSConfigPaths) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	for _, name := range []string{"tsconfig.json", "jsconfig.json"} {
		path := pkg.Root.Join(name)
		if !env.Exists(path) {
			continue
		}

		options, err := loadCompilerOptions(env, path, 0)
		if err != nil {
			return nil, err
		}

		if options.baseURL == "" && len(options.paths) == 0 {
			return nil, nil
		}

		return newPathAliases(env, options), nil
	}

	return nil, nil
}

type compilerOptions struct {
	baseURL  m.Path
	paths    map[string][]string
	pathsDir m.Path
}

type tsconfigFile struct {
	Extends         any `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// loadCompilerOptions reads path and the relative configs it extends. Options
// of the extending file win.
func loadCompilerOptions(env Env, path m.Path, depth int) (compilerOptions, error) {
	var options compilerOptions

	if depth > maxExtendsDepth {
		return options, fmt.Errorf("%s: extends chain too deep", path)
	}

	data, err := env.ReadFile(path)
	if err != nil {
		return options, fmt.Errorf("read %s: %w", path, err)
	}

	data, err = hujson.Standardize(data)
	if err != nil {
		return options, fmt.Errorf("parse %s: %w", path, err)
	}

	var file tsconfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return options, fmt.Errorf("decode %s: %w", path, err)
	}

	dir := path.Dir()

	for _, parent := range asStrings(file.Extends) {
		if !strings.HasPrefix(parent, ".") {
			continue
		}

		parentPath := dir.Join(parent)
		if !strings.HasSuffix(parent, ".json") && !env.Exists(parentPath) {
			parentPath += ".json"
		}

		inherited, err := loadCompilerOptions(env, parentPath, depth+1)
		if err != nil {
			return options, err
		}

		if inherited.baseURL != "" {
			options.baseURL = inherited.baseURL
		}

		if inherited.paths != nil {
			options.paths, options.pathsDir = inherited.paths, inherited.pathsDir
		}
	}

	if file.CompilerOptions.BaseURL != nil {
		options.baseURL = dir.Join(*file.CompilerOptions.BaseURL)
	}

	if file.CompilerOptions.Paths != nil {
		options.paths, options.pathsDir = file.CompilerOptions.Paths, dir
	}

	return options, nil
}

type pathAliases struct {
	env      Env
	options  compilerOptions
	patterns []string
}

func newPathAliases(env Env, options compilerOptions) *pathAliases {
	patterns := make([]string, 0, len(options.paths))
	for pattern := range options.paths {
		patterns = append(patterns, pattern)
	}

	// Longest prefix first, as the TypeScript compiler matches.
	sort.Slice(patterns, func(i, j int) bool {
		pi, _, _ := strings.Cut(patterns[i], "*")
		pj, _, _ := strings.Cut(patterns[j], "*")

		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}

		return patterns[i] < patterns[j]
	})

	return &pathAliases{env: env, options: options, patterns: patterns}
}

func (p *pathAliases) IsConventionallyOwned(m.Path) bool { return false }

func (p *pathAliases) ResolveAlias(specifier string, _ m.Path) (m.Path, bool) {
	if strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return "", false
	}

	base := p.options.baseURL
	if base == "" {
		base = p.options.pathsDir
	}

	for _, pattern := range p.patterns {
		matched, ok := matchPathPattern(pattern, specifier)
		if !ok {
			continue
		}

		for _, target := range p.options.paths[pattern] {
			candidate := base.Join(strings.Replace(target, "*", matched, 1))
			if path, ok := p.locate(candidate); ok {
				return path, true
			}
		}
	}

	if p.options.baseURL != "" {
		return p.locate(p.options.baseURL.Join(specifier))
	}

	return "", false
}

func (p *pathAliases) locate(candidate m.Path) (m.Path, bool) {
	if p.env.Exists(candidate) {
		return candidate, true
	}

	return p.env.Infer(candidate)
}

// matchPathPattern matches specifier against a paths key with at most one
// wildcard and returns the text the wildcard captured.
func matchPathPattern(pattern, specifier string) (string, bool) {
	prefix, suffix, wildcard := strings.Cut(pattern, "*")
	if !wildcard {
		return "", pattern == specifier
	}

	if len(specifier) < len(prefix)+len(suffix) ||
		!strings.HasPrefix(specifier, prefix) || !strings.HasSuffix(specifier, suffix) {
		return "", false
	}

	return specifier[len(prefix) : len(specifier)-len(suffix)], true
}
