package conventions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	names := map[string]bool{}

	for _, collaborator := range Default() {
		assert.False(t, names[collaborator.Name()], "duplicate collaborator %s", collaborator.Name())
		names[collaborator.Name()] = true
	}

	assert.True(t, names["package-json"])
	assert.True(t, names["tsconfig-paths"])
	assert.True(t, names["next"])
}

func TestMatchPathPattern(t *testing.T) {
	tests := []struct {
		pattern   string
		specifier string
		captured  string
		ok        bool
	}{
		{pattern: "@/*", specifier: "@/components/Foo", captured: "components/Foo", ok: true},
		{pattern: "@/*", specifier: "@", ok: false},
		{pattern: "~lib", specifier: "~lib", ok: true},
		{pattern: "~lib", specifier: "~lib/x", ok: false},
		{pattern: "*.css", specifier: "theme.css", captured: "theme", ok: true},
		{pattern: "@app/*/index", specifier: "@app/a/b/index", captured: "a/b", ok: true},
		{pattern: "@app/*/index", specifier: "@app/a/b", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.specifier, func(t *testing.T) {
			captured, ok := matchPathPattern(tt.pattern, tt.specifier)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.captured, captured)
		})
	}
}

func TestSplitCommands(t *testing.T) {
	tests := []struct {
		script string
		want   [][]string
	}{
		{script: "next dev demo", want: [][]string{{"next", "dev", "demo"}}},
		{
			script: "NODE_ENV=test node ./scripts/a.js && npx tsx b.ts",
			want:   [][]string{{"node", "./scripts/a.js"}, {"tsx", "b.ts"}},
		},
		{script: "node a.js; node b.js", want: [][]string{{"node", "a.js"}, {"node", "b.js"}}},
		{script: `node "./quoted.js" | tee log`, want: [][]string{{"node", "./quoted.js"}, {"tee", "log"}}},
		{script: "node --inspect=9229 server.js", want: [][]string{{"node", "--inspect=9229", "server.js"}}},
		{script: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCommands(tt.script))
		})
	}
}

func TestFlagValue(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		value string
		ok    bool
	}{
		{name: "separate value", args: []string{"-c", "rollup.config.ts"}, value: "rollup.config.ts", ok: true},
		{name: "inline value", args: []string{"--config=build/rollup.js"}, value: "build/rollup.js", ok: true},
		{name: "bare flag", args: []string{"-c"}, ok: true},
		{name: "followed by a flag", args: []string{"-c", "--watch"}, ok: true},
		{name: "absent", args: []string{"-w"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := flagValue(tt.args, "-c", "--config")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.value, value)
		})
	}

	assert.Equal(t, "server.js", firstPositional([]string{"--inspect", "server.js", "extra"}))
	assert.Empty(t, firstPositional([]string{"--version"}))
}

func TestExports(t *testing.T) {
	exports := map[string]any{
		".":         "./index.js",
		"./utils/*": map[string]any{"import": "./src/utils/*.ts"},
	}

	value, ok := subpathExports(exports, "./utils/date")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"import": "./src/utils/date.ts"}, value)

	_, ok = subpathExports(exports, "./missing")
	assert.False(t, ok)

	value, ok = subpathExports("./index.js", ".")
	require.True(t, ok)
	assert.Equal(t, "./index.js", value)

	_, ok = subpathExports(nil, ".")
	assert.False(t, ok)

	assert.Equal(t, []string{"./src/a.ts", "./a.js", "./a.d.ts"}, exportCandidates(map[string]any{
		"types":   "./a.d.ts",
		"default": "./a.js",
		"source":  "./src/a.ts",
	}))

	assert.ElementsMatch(t, []string{"./index.js", "./src/utils/*.ts"}, exportTargets(exports))
}

func TestPackageJSON_ContributeRoots(t *testing.T) {
	t.Run("entry points", func(t *testing.T) {
		env := newFakeEnv(map[string]string{
			"src/main.ts":            "",
			"lib/types.d.ts":         "",
			"bin/cli.js":             "",
			"bin/cli.d.ts":           "",
			"src/features/a.js":      "",
			"src/features/deep/b.js": "",
			"src/other.js":           "",
			"index.js":               "",
		})
		pkg := testPackage(t, "", nil, map[string]any{
			"name":    "pkg",
			"main":    "src/main",
			"types":   "lib/types.d.ts",
			"bin":     map[string]any{"cli": "./bin/cli.js"},
			"exports": map[string]any{
				".":            map[string]any{"import": "./src/main.ts"},
				"./features/*": "./src/features/*.js",
			},
		})

		claim, err := PackageJSON{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)
		assert.Nil(t, claim)

		assert.Equal(t, []string{
			"bin/cli.d.ts",
			"bin/cli.js",
			"lib/types.d.ts",
			"src/features/a.js",
			"src/features/deep/b.js",
			"src/main.ts",
		}, env.markedFiles())
	})

	t.Run("index.js default", func(t *testing.T) {
		env := newFakeEnv(map[string]string{"index.js": "", "bin.js": ""})
		pkg := testPackage(t, "", nil, map[string]any{"name": "pkg", "bin": "bin.js"})

		_, err := PackageJSON{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)
		assert.Equal(t, []string{"bin.js", "index.js"}, env.markedFiles())
	})
}

func TestWorkspaces_ResolveAlias(t *testing.T) {
	env := newFakeEnv(map[string]string{
		"packages/ui/src/index.ts":   "",
		"packages/ui/src/button.tsx": "",
		"packages/utils/index.ts":    "",
		"packages/utils/src/date.ts": "",
	})

	root := testPackage(t, "", nil, map[string]any{"name": "root"})
	ui := testPackage(t, "packages/ui", root, map[string]any{
		"name":    "@scope/ui",
		"exports": map[string]any{
			".":        map[string]any{"source": "./src/index.ts", "default": "./dist/index.js"},
			"./button": "./src/button.tsx",
		},
	})
	testPackage(t, "packages/utils", root, map[string]any{"name": "utils", "main": "lib/index.js"})

	claim, err := Workspaces{}.ContributeRoots(context.Background(), ui, env)
	require.NoError(t, err)
	assert.Nil(t, claim)

	claim, err = Workspaces{}.ContributeRoots(context.Background(), root, env)
	require.NoError(t, err)

	aliases, ok := claim.(AliasResolver)
	require.True(t, ok)
	assert.False(t, claim.IsConventionallyOwned(at("packages/ui/src/index.ts")))

	tests := []struct {
		specifier string
		want      string
	}{
		{specifier: "@scope/ui", want: "packages/ui/src/index.ts"},
		{specifier: "@scope/ui/button", want: "packages/ui/src/button.tsx"},
		{specifier: "utils/src/date", want: "packages/utils/src/date.ts"},
		{specifier: "utils", want: "packages/utils/index.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			got, ok := aliases.ResolveAlias(tt.specifier, testRoot)
			require.True(t, ok)
			assert.Equal(t, at(tt.want), got)
		})
	}

	_, ok = aliases.ResolveAlias("react", testRoot)
	assert.False(t, ok)

	_, ok = aliases.ResolveAlias("@scope/ui/missing", testRoot)
	assert.False(t, ok)
}

func TestTSConfigPaths(t *testing.T) {
	t.Run("extends chain and longest prefix", func(t *testing.T) {
		env := newFakeEnv(map[string]string{
			"tsconfig.base.json": `{
  // shared options
  "compilerOptions": {
    "baseUrl": "./src",
    "paths": { "#lib/*": ["lib/*"], },
  },
}`,
			"tsconfig.json":             `{"extends": "./tsconfig.base", "compilerOptions": {"paths": {"@/*": ["app/*"], "@/shared/*": ["shared/*"]}}}`,
			"src/app/page.ts":           "",
			"src/app/shared/util.ts":    "",
			"src/shared/util.ts":        "",
			"src/components/Button.tsx": "",
			"src/lib/x.ts":              "",
		})
		pkg := testPackage(t, "", nil, map[string]any{"name": "app"})

		claim, err := TSConfigPaths{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)

		aliases, ok := claim.(AliasResolver)
		require.True(t, ok)

		got, ok := aliases.ResolveAlias("@/page", testRoot)
		require.True(t, ok)
		assert.Equal(t, at("src/app/page.ts"), got)

		got, ok = aliases.ResolveAlias("@/shared/util", testRoot)
		require.True(t, ok)
		assert.Equal(t, at("src/shared/util.ts"), got)

		got, ok = aliases.ResolveAlias("components/Button", testRoot)
		require.True(t, ok)
		assert.Equal(t, at("src/components/Button.tsx"), got)

		// paths of the extending file replace the inherited ones.
		_, ok = aliases.ResolveAlias("#lib/x", testRoot)
		assert.False(t, ok)

		_, ok = aliases.ResolveAlias("./page", testRoot)
		assert.False(t, ok)
	})

	t.Run("jsconfig paths without baseUrl", func(t *testing.T) {
		env := newFakeEnv(map[string]string{
			"web/jsconfig.json":         `{"compilerOptions": {"paths": {"~/*": ["./src/*"]}}}`,
			"web/src/components/Nav.js": "",
		})
		pkg := testPackage(t, "web", nil, map[string]any{"name": "web"})

		claim, err := TSConfigPaths{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)

		got, ok := claim.(AliasResolver).ResolveAlias("~/components/Nav", pkg.Root)
		require.True(t, ok)
		assert.Equal(t, at("web/src/components/Nav.js"), got)

		_, ok = claim.(AliasResolver).ResolveAlias("components/Nav", pkg.Root)
		assert.False(t, ok)
	})

	t.Run("no aliases", func(t *testing.T) {
		env := newFakeEnv(map[string]string{"tsconfig.json": `{"compilerOptions": {"strict": true}}`})

		claim, err := TSConfigPaths{}.ContributeRoots(context.Background(), testPackage(t, "", nil, map[string]any{"name": "app"}), env)
		require.NoError(t, err)
		assert.Nil(t, claim)
	})

	t.Run("invalid file", func(t *testing.T) {
		env := newFakeEnv(map[string]string{"tsconfig.json": `{"compilerOptions": `})

		_, err := TSConfigPaths{}.ContributeRoots(context.Background(), testPackage(t, "", nil, map[string]any{"name": "app"}), env)
		assert.Error(t, err)
	})

	t.Run("extends cycle", func(t *testing.T) {
		env := newFakeEnv(map[string]string{
			"a.json":        `{"extends": "./b.json"}`,
			"b.json":        `{"extends": "./a.json"}`,
			"tsconfig.json": `{"extends": "./a.json"}`,
		})

		_, err := TSConfigPaths{}.ContributeRoots(context.Background(), testPackage(t, "", nil, map[string]any{"name": "app"}), env)
		assert.ErrorContains(t, err, "extends chain too deep")
	})
}

func TestJest(t *testing.T) {
	t.Run("inline configuration", func(t *testing.T) {
		env := newFakeEnv(map[string]string{
			"src/setup.ts":        "",
			"src/a.check.ts":      "",
			"src/a.test.ts":       "",
			"src/__mocks__/fs.ts": "",
		})
		pkg := testPackage(t, "", nil, map[string]any{
			"name":            "app",
			"devDependencies": map[string]any{"jest": "^29.0.0"},
			"jest":            map[string]any{
				"rootDir":    "src",
				"setupFiles": []any{"<rootDir>/setup.ts"},
				"testMatch":  []any{"**/*.check.ts"},
			},
		})

		claim, err := Jest{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)

		assert.Equal(t, []string{"src/setup.ts"}, env.markedFiles())
		assert.True(t, claim.IsConventionallyOwned(at("src/a.check.ts")))
		assert.False(t, claim.IsConventionallyOwned(at("src/a.test.ts")))
		assert.True(t, claim.IsConventionallyOwned(at("src/__mocks__/fs.ts")))
		assert.Empty(t, env.evaluated)
	})

	t.Run("config module", func(t *testing.T) {
		env := newFakeEnv(map[string]string{
			"jest.config.js": "",
			"jest.setup.js":  "",
		})
		env.values["jest.config.js"] = map[string]any{
			"default": map[string]any{"setupFilesAfterEnv": []any{"./jest.setup.js"}},
		}
		pkg := testPackage(t, "", nil, map[string]any{"name": "app", "devDependencies": map[string]any{"jest": "^29.0.0"}})

		claim, err := Jest{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)

		assert.Equal(t, []string{"jest.config.js", "jest.setup.js"}, env.markedFiles())
		assert.True(t, claim.IsConventionallyOwned(at("src/__tests__/x.js")))
		assert.True(t, claim.IsConventionallyOwned(at("src/a.spec.tsx")))
		assert.False(t, claim.IsConventionallyOwned(at("src/util.ts")))
	})

	t.Run("evaluation failure keeps the default claim", func(t *testing.T) {
		env := newFakeEnv(map[string]string{"jest.config.ts": ""})
		env.values["jest.config.ts"] = errEvaluation
		pkg := testPackage(t, "", nil, map[string]any{"name": "app", "devDependencies": map[string]any{"jest": "^29.0.0"}})

		claim, err := Jest{}.ContributeRoots(context.Background(), pkg, env)
		require.ErrorIs(t, err, errEvaluation)
		require.NotNil(t, claim)
		assert.True(t, claim.IsConventionallyOwned(at("a.test.ts")))
		assert.Equal(t, []string{"jest.config.ts"}, env.markedFiles())
	})

	t.Run("not a dependency", func(t *testing.T) {
		env := newFakeEnv(map[string]string{"jest.config.js": ""})

		claim, err := Jest{}.ContributeRoots(context.Background(), testPackage(t, "", nil, map[string]any{"name": "app"}), env)
		require.NoError(t, err)
		assert.Nil(t, claim)
		assert.Empty(t, env.markedFiles())
	})
}

func TestNext(t *testing.T) {
	env := newFakeEnv(map[string]string{
		"web/next.config.mjs":   "",
		"web/postcss.config.js": "",
		"web/tw.config.js":      "",
		"web/src/middleware.ts": "",
		"web/pages/index.mdx":   "",
		"web/pages/about.tsx":   "",
		"web/app/layout.tsx":    "",
		"web/app/helpers.ts":    "",
		"web/app/page.js":       "",
	})
	env.values["web/next.config.mjs"] = map[string]any{
		"default": map[string]any{"pageExtensions": []any{"mdx", "tsx"}},
	}
	env.values["web/postcss.config.js"] = map[string]any{
		"plugins": map[string]any{"tailwindcss": map[string]any{"config": "./tw.config.js"}},
	}

	pkg := testPackage(t, "", nil, map[string]any{
		"name":         "site",
		"dependencies": map[string]any{"next": "^14.0.0"},
		"scripts":      map[string]any{"dev": "next dev web", "build": "next build web"},
	})

	claim, err := Next{}.ContributeRoots(context.Background(), pkg, env)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"web/next.config.mjs",
		"web/postcss.config.js",
		"web/src/middleware.ts",
		"web/tw.config.js",
	}, env.markedFiles())
	assert.Contains(t, env.evaluated, at("web/next.config.mjs"))

	assert.True(t, claim.IsConventionallyOwned(at("web/pages/index.mdx")))
	assert.True(t, claim.IsConventionallyOwned(at("web/pages/about.tsx")))
	assert.True(t, claim.IsConventionallyOwned(at("web/app/layout.tsx")))
	assert.False(t, claim.IsConventionallyOwned(at("web/app/helpers.ts")))
	assert.False(t, claim.IsConventionallyOwned(at("web/app/page.js")))
	assert.False(t, claim.IsConventionallyOwned(at("pages/index.tsx")))
}

func TestNext_EvaluationFailure(t *testing.T) {
	env := newFakeEnv(map[string]string{"next.config.js": "", "pages/index.js": ""})
	env.values["next.config.js"] = errEvaluation

	pkg := testPackage(t, "", nil, map[string]any{"name": "site", "devDependencies": map[string]any{"next": "^14.0.0"}})

	claim, err := Next{}.ContributeRoots(context.Background(), pkg, env)
	require.ErrorIs(t, err, errEvaluation)
	assert.True(t, claim.IsConventionallyOwned(at("pages/index.js")))
	assert.Equal(t, []string{"next.config.js"}, env.markedFiles())
}

func TestConfigFiles(t *testing.T) {
	env := newFakeEnv(map[string]string{
		"packages/a/eslint.config.js":   "",
		"packages/a/tailwind.config.js": "",
	})

	root := testPackage(t, "", nil, map[string]any{
		"name":            "root",
		"devDependencies": map[string]any{"eslint": "^9.0.0", "tailwindcss": "^3.0.0"},
	})
	child := testPackage(t, "packages/a", root, map[string]any{"name": "a"})

	for _, collaborator := range []Collaborator{ESLint(), TailwindCSS()} {
		claim, err := collaborator.ContributeRoots(context.Background(), child, env)
		require.NoError(t, err)
		assert.Nil(t, claim)
	}

	assert.Equal(t, []string{"packages/a/eslint.config.js"}, env.markedFiles())
}

func TestNodeScripts(t *testing.T) {
	env := newFakeEnv(map[string]string{
		"scripts/build.mjs": "",
		"tools/gen.ts":      "",
		"server.js":         "",
	})
	pkg := testPackage(t, "", nil, map[string]any{
		"name":    "app",
		"scripts": map[string]any{
			"build": "NODE_ENV=production node --max-old-space-size=4096 scripts/build.mjs && tsx ./tools/gen",
			"lint":  "eslint .",
			"start": "node missing.js",
		},
	})

	_, err := NodeScripts{}.ContributeRoots(context.Background(), pkg, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/build.mjs", "tools/gen.ts"}, env.markedFiles())
}

func TestRollup(t *testing.T) {
	env := newFakeEnv(map[string]string{
		"build/rollup.config.ts": "",
		"rollup.config.mjs":      "",
	})
	pkg := testPackage(t, "", nil, map[string]any{
		"name":            "lib",
		"devDependencies": map[string]any{"rollup": "^4.0.0"},
		"scripts":         map[string]any{"build": "rollup -c build/rollup.config.ts", "dev": "rollup --config --watch"},
	})

	_, err := Rollup{}.ContributeRoots(context.Background(), pkg, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"build/rollup.config.ts", "rollup.config.mjs"}, env.markedFiles())
}

func TestVitest(t *testing.T) {
	env := newFakeEnv(map[string]string{
		"vitest.config.ts": "",
		"test/setup.ts":    "",
	})
	env.values["vitest.config.ts"] = map[string]any{
		"test": map[string]any{"setupFiles": "./test/setup.ts", "include": []any{"e2e/**/*.e2e.ts"}},
	}
	pkg := testPackage(t, "", nil, map[string]any{"name": "app", "devDependencies": map[string]any{"vitest": "^1.0.0"}})

	claim, err := Vitest{}.ContributeRoots(context.Background(), pkg, env)
	require.NoError(t, err)

	assert.Equal(t, []string{"test/setup.ts", "vitest.config.ts"}, env.markedFiles())
	assert.True(t, claim.IsConventionallyOwned(at("e2e/login.e2e.ts")))
	assert.True(t, claim.IsConventionallyOwned(at("src/a.spec.ts")))
	assert.False(t, claim.IsConventionallyOwned(at("src/a.ts")))
}

func TestTestRunners(t *testing.T) {
	t.Run("mocha", func(t *testing.T) {
		env := newFakeEnv(map[string]string{".mocharc.js": ""})
		pkg := testPackage(t, "", nil, map[string]any{"name": "app", "devDependencies": map[string]any{"mocha": "^10.0.0"}})

		claim, err := Mocha{}.ContributeRoots(context.Background(), pkg, env)
		require.NoError(t, err)

		assert.Equal(t, []string{".mocharc.js"}, env.markedFiles())
		assert.True(t, claim.IsConventionallyOwned(at("test/a.js")))
		assert.True(t, claim.IsConventionallyOwned(at("src/tests/b.js")))
		assert.False(t, claim.IsConventionallyOwned(at("src/b.js")))
		assert.False(t, claim.IsConventionallyOwned(at("testing.js")))
	})

	t.Run("better-node-test", func(t *testing.T) {
		pkg := testPackage(t, "", nil, map[string]any{"name": "app", "dependencies": map[string]any{"better-node-test": "0.0.0"}})

		claim, err := BetterNodeTest{}.ContributeRoots(context.Background(), pkg, newFakeEnv(nil))
		require.NoError(t, err)

		assert.True(t, claim.IsConventionallyOwned(at("a.test.mjs")))
		assert.True(t, claim.IsConventionallyOwned(at("a.test.ts")))
		assert.False(t, claim.IsConventionallyOwned(at("a.test.tsx")))
	})
}

func TestValueHelpers(t *testing.T) {
	value := map[string]any{"default": map[string]any{"default": map[string]any{"a": []any{"x", 1, "y"}}}}

	unwrapped := unwrapModule(value)
	assert.Equal(t, []string{"x", "y"}, stringsAt(unwrapped, "a"))
	assert.Nil(t, stringsAt(unwrapped, "a", "b"))

	s, ok := stringAt(map[string]any{"a": map[string]any{"b": "c"}}, "a", "b")
	assert.True(t, ok)
	assert.Equal(t, "c", s)

	_, ok = objectAt(unwrapped, "a")
	assert.False(t, ok)

	assert.Equal(t, "plain", unwrapModule("plain"))
}
