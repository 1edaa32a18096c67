package conventions

import (
	"context"
	"log/slog"
	"strings"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// scriptRunners execute the file given as their first positional argument.
var scriptRunners = map[string]bool{
	"node":    true,
	"ts-node": true,
	"tsx":     true,
}

// NodeScripts marks files run directly by manifest scripts, such as
// `node scripts/build.js`.
type NodeScripts struct{}

func (NodeScripts) Name() string { return "node-scripts" }

func (NodeScripts) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	for _, script := range pkg.Scripts() {
		for _, command := range splitCommands(script.Command) {
			if len(command) < 2 || !scriptRunners[command[0]] {
				continue
			}

			target := firstPositional(command[1:])
			if target == "" {
				continue
			}

			if !markEntry(env, pkg.Root.Join(target)) {
				slog.Debug("Script target not found", "package", pkg.Name, "script", script.Name, "target", target)
			}
		}
	}

	return nil, nil
}

// Rollup marks the configuration file passed with -c or --config.
type Rollup struct{}

func (Rollup) Name() string { return "rollup" }

var rollupDefaultConfigs = []string{"rollup.config.js", "rollup.config.mjs", "rollup.config.cjs", "rollup.config.ts"}

func (Rollup) ContributeRoots(_ context.Context, pkg *m.Package, env Env) (Claim, error) {
	if !pkg.DependsOn("rollup") {
		return nil, nil
	}

	for _, script := range pkg.Scripts() {
		for _, command := range splitCommands(script.Command) {
			if len(command) == 0 || command[0] != "rollup" {
				continue
			}

			config, ok := flagValue(command[1:], "-c", "--config")
			if !ok {
				continue
			}

			if config == "" {
				markExisting(env, pkg.Root, rollupDefaultConfigs...)
				continue
			}

			markEntry(env, pkg.Root.Join(config))
		}
	}

	return nil, nil
}

// splitCommands breaks a script into commands joined by shell operators and
// drops leading environment assignments and npx.
func splitCommands(script string) [][]string {
	var (
		commands [][]string
		current  []string
	)

	flush := func() {
		if len(current) > 0 {
			commands = append(commands, current)
		}

		current = nil
	}

	for _, field := range strings.Fields(script) {
		switch field {
		case "&&", "||", ";", "|", "&":
			flush()
			continue
		}

		if rest, ok := strings.CutSuffix(field, ";"); ok {
			current = appendToken(current, rest)
			flush()

			continue
		}

		current = appendToken(current, field)
	}

	flush()

	return commands
}

func appendToken(command []string, token string) []string {
	if len(command) == 0 && (token == "npx" || (strings.Contains(token, "=") && !strings.HasPrefix(token, "-"))) {
		return command
	}

	if token == "" {
		return command
	}

	return append(command, strings.Trim(token, `"'`))
}

func firstPositional(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}

	return ""
}

// flagValue returns the value following any of names. The second result is
// true when the flag is present; the value is empty when none follows.
func flagValue(args []string, names ...string) (string, bool) {
	for i, arg := range args {
		for _, name := range names {
			if value, ok := strings.CutPrefix(arg, name+"="); ok {
				return value, true
			}

			if arg != name {
				continue
			}

			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				return args[i+1], true
			}

			return "", true
		}
	}

	return "", false
}
