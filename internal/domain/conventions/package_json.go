package conventions

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// PackageJSON marks the entry points a manifest declares: main, types,
// typings, module, bin and every target of the exports map.
type PackageJSON struct{}

func (PackageJSON) Name() string { return "package-json" }

func (PackageJSON) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	manifest := pkg.Manifest

	entries := []string{manifest.Main, manifest.Types, manifest.Typings, manifest.Module}
	entries = append(entries, binTargets(manifest.Bin)...)
	entries = append(entries, exportTargets(manifest.Exports)...)

	for _, entry := range entries {
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "*") {
			markPattern(env, pkg.Root, entry)
			continue
		}

		if !markEntry(env, pkg.Root.Join(entry)) {
			slog.Debug("Manifest entry point not found", "package", pkg.Name, "entry", entry)
		}
	}

	if manifest.Main == "" && manifest.Exports == nil {
		// Node falls back to index.js.
		markExisting(env, pkg.Root, "index.js")
	}

	return nil, nil
}

func binTargets(bin any) []string {
	if obj, ok := bin.(map[string]any); ok {
		keys := sortedKeys(obj)
		targets := make([]string, 0, len(keys))

		for _, key := range keys {
			if s, ok := obj[key].(string); ok {
				targets = append(targets, s)
			}
		}

		return targets
	}

	return asStrings(bin)
}

// exportTargets flattens an exports value into its file targets.
func exportTargets(value any) []string {
	switch t := value.(type) {
	case string:
		return []string{t}
	case []any:
		var targets []string
		for _, item := range t {
			targets = append(targets, exportTargets(item)...)
		}

		return targets
	case map[string]any:
		var targets []string
		for _, key := range sortedKeys(t) {
			targets = append(targets, exportTargets(t[key])...)
		}

		return targets
	default:
		return nil
	}
}

// preferredConditions orders export conditions when one target is needed.
// Source-oriented conditions come first so workspace imports land on files
// that exist before a build.
var preferredConditions = []string{"source", "development", "import", "module", "require", "node", "default", "browser", "types"}

// exportCandidates returns the targets of a conditions value in preference
// order.
func exportCandidates(value any) []string {
	switch t := value.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, exportCandidates(item)...)
		}

		return out
	case map[string]any:
		var out []string

		seen := map[string]bool{}
		for _, condition := range preferredConditions {
			if v, ok := t[condition]; ok {
				seen[condition] = true
				out = append(out, exportCandidates(v)...)
			}
		}

		for _, key := range sortedKeys(t) {
			if !seen[key] {
				out = append(out, exportCandidates(t[key])...)
			}
		}

		return out
	default:
		return nil
	}
}

// subpathExports returns the exports entry for subpath ("." or "./x"), or
// false when the manifest does not export it.
func subpathExports(exports any, subpath string) (any, bool) {
	obj, ok := exports.(map[string]any)
	if !ok || !hasSubpathKeys(obj) {
		if subpath == "." && exports != nil {
			return exports, true
		}

		return nil, false
	}

	if v, ok := obj[subpath]; ok {
		return v, true
	}

	for _, key := range sortedKeys(obj) {
		prefix, suffix, wildcard := strings.Cut(key, "*")
		if !wildcard || !strings.HasPrefix(subpath, prefix) || !strings.HasSuffix(subpath, suffix) {
			continue
		}

		matched := strings.TrimSuffix(strings.TrimPrefix(subpath, prefix), suffix)

		return substitute(obj[key], matched), true
	}

	return nil, false
}

func hasSubpathKeys(obj map[string]any) bool {
	for key := range obj {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}

	return false
}

func substitute(value any, matched string) any {
	switch t := value.(type) {
	case string:
		return strings.ReplaceAll(t, "*", matched)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = substitute(item, matched)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = substitute(v, matched)
		}

		return out
	default:
		return value
	}
}

// markPattern marks files matched by an exports pattern target such as
// "./src/features/*.js".
func markPattern(env Env, root m.Path, target string) {
	pattern := strings.Replace(strings.TrimPrefix(target, "./"), "*", "**/*", 1)

	matches, err := env.Glob(root, pattern)
	if err != nil {
		slog.Debug("Ignoring exports pattern", "root", root, "pattern", target, "error", err)
		return
	}

	for _, match := range matches {
		if env.Exists(match) {
			env.Mark(match)
		}
	}
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
