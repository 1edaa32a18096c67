package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/singleflight"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// ErrEvaluationDisabled is returned by every call when evaluation is off.
var ErrEvaluationDisabled = errors.New("module evaluation disabled")

// EvaluationError reports a configuration module that could not be loaded.
type EvaluationError struct {
	Path m.Path
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Path, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ModuleEvaluator loads a JavaScript or TypeScript module and returns its
// default export as plain Go values (maps, slices, strings, numbers,
// booleans). mode is the module system of the package owning path.
type ModuleEvaluator interface {
	Evaluate(ctx context.Context, path m.Path, mode m.ModuleMode) (any, error)
}

// EvaluateMode selects which evaluator handles a module.
type EvaluateMode string

const (
	EvaluateAuto     EvaluateMode = "auto"
	EvaluateCommonJS EvaluateMode = "commonjs"
	EvaluateModule   EvaluateMode = "module"
	EvaluateOff      EvaluateMode = "off"
)

// ParseEvaluateMode validates a configured mode name.
func ParseEvaluateMode(s string) (EvaluateMode, error) {
	switch mode := EvaluateMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case EvaluateAuto, EvaluateCommonJS, EvaluateModule, EvaluateOff:
		return mode, nil
	case "":
		return EvaluateAuto, nil
	default:
		return "", fmt.Errorf("unknown evaluate mode %q", s)
	}
}

// EvaluatorConfig configures NewModuleEvaluator.
type EvaluatorConfig struct {
	Mode        EvaluateMode
	NodeCommand []string
	Timeout     time.Duration
}

// NewModuleEvaluator builds the evaluator for cfg, memoized for the run.
// EvaluateCommonJS and EvaluateModule override the module mode packages
// declare.
func NewModuleEvaluator(cfg EvaluatorConfig) *CachedEvaluator {
	if cfg.Mode == EvaluateOff {
		return NewCachedEvaluator(disabledEvaluator{})
	}

	selecting := &SelectingEvaluator{
		CommonJS: NewCommonJSEvaluator(cfg.Timeout),
		ESModule: NewESModuleEvaluator(cfg.NodeCommand, cfg.Timeout),
	}

	switch cfg.Mode {
	case EvaluateCommonJS:
		selecting.Mode = m.ModeCommonJS
	case EvaluateModule:
		selecting.Mode = m.ModeModule
	}

	return NewCachedEvaluator(selecting)
}

type disabledEvaluator struct{}

func (disabledEvaluator) Evaluate(_ context.Context, path m.Path, _ m.ModuleMode) (any, error) {
	return nil, &EvaluationError{Path: path, Err: ErrEvaluationDisabled}
}

// SelectingEvaluator picks an evaluator the way node picks a loader: .cjs is
// CommonJS, .mjs is an ES module and .js follows the module mode. TypeScript
// is transpiled into the CommonJS runtime whatever the mode. A CommonJS .js
// file that turns out to contain module syntax is handed to the ES module
// evaluator. Mode, when set, replaces the mode of every call.
type SelectingEvaluator struct {
	CommonJS ModuleEvaluator
	ESModule ModuleEvaluator
	Mode     m.ModuleMode
}

// Evaluate dispatches path to the matching evaluator.
func (s *SelectingEvaluator) Evaluate(ctx context.Context, path m.Path, mode m.ModuleMode) (any, error) {
	if s.Mode != "" {
		mode = s.Mode
	}

	switch strings.ToLower(path.Ext()) {
	case ".ts", ".mts", ".cts", ".cjs", ".json":
		return s.CommonJS.Evaluate(ctx, path, mode)
	case ".mjs":
		return s.ESModule.Evaluate(ctx, path, mode)
	}

	if mode == m.ModeModule {
		return s.ESModule.Evaluate(ctx, path, mode)
	}

	value, err := s.CommonJS.Evaluate(ctx, path, mode)

	var syntaxErr *goja.CompilerSyntaxError
	if err != nil && errors.As(err, &syntaxErr) {
		return s.ESModule.Evaluate(ctx, path, mode)
	}

	return value, err
}

// CachedEvaluator collapses concurrent evaluations of the same file and
// remembers results until Invalidate.
type CachedEvaluator struct {
	next  ModuleEvaluator
	group singleflight.Group

	mu      sync.Mutex
	results map[evaluationKey]evaluation
}

type evaluationKey struct {
	path m.Path
	mode m.ModuleMode
}

type evaluation struct {
	value any
	err   error
}

// NewCachedEvaluator wraps next.
func NewCachedEvaluator(next ModuleEvaluator) *CachedEvaluator {
	return &CachedEvaluator{next: next, results: make(map[evaluationKey]evaluation)}
}

// Evaluate returns the memoized result for path under mode, evaluating it
// once.
func (c *CachedEvaluator) Evaluate(ctx context.Context, path m.Path, mode m.ModuleMode) (any, error) {
	key := evaluationKey{path: path, mode: mode}

	c.mu.Lock()
	if r, ok := c.results[key]; ok {
		c.mu.Unlock()
		return r.value, r.err
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(string(mode)+"\x00"+string(path), func() (any, error) {
		value, err := c.next.Evaluate(ctx, path, mode)
		if err != nil && ctx.Err() != nil {
			// Cancellation is not a property of the file.
			return value, err
		}

		c.mu.Lock()
		c.results[key] = evaluation{value: value, err: err}
		c.mu.Unlock()

		return value, err
	})

	return v, err
}

// Invalidate forgets all memoized results.
func (c *CachedEvaluator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results = make(map[evaluationKey]evaluation)
}

// CommonJSEvaluator runs CommonJS modules in an embedded goja runtime.
// TypeScript sources are transpiled to CommonJS with esbuild first. Relative
// requires and JSON files are loaded; bare package requires receive an
// identity function stub so wrapper helpers (withX(config), defineConfig)
// keep working.
type CommonJSEvaluator struct {
	timeout time.Duration
}

// NewCommonJSEvaluator constructs a CommonJSEvaluator.
func NewCommonJSEvaluator(timeout time.Duration) *CommonJSEvaluator {
	return &CommonJSEvaluator{timeout: timeout}
}

// Evaluate runs the module at path and exports module.exports. mode is not
// consulted; the file is always loaded as CommonJS.
func (e *CommonJSEvaluator) Evaluate(ctx context.Context, path m.Path, _ m.ModuleMode) (any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)

		defer cancel()
	}

	vm := goja.New()

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	installGlobals(vm)

	loader, err := newCJSLoader(vm)
	if err != nil {
		return nil, &EvaluationError{Path: path, Err: err}
	}

	exports, err := loader.load(string(path))
	if err != nil {
		return nil, &EvaluationError{Path: path, Err: err}
	}

	if obj, ok := exports.(*goja.Object); ok {
		if esm := obj.Get("__esModule"); esm != nil && esm.ToBoolean() {
			if def := obj.Get("default"); def != nil {
				exports = def
			}
		}
	}

	return unwrapDefault(exports.Export()), nil
}

func installGlobals(vm *goja.Runtime) {
	process := vm.NewObject()
	env := vm.NewObject()

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			_ = env.Set(k, v)
		}
	}

	_ = process.Set("env", env)
	_ = process.Set("cwd", func() string {
		wd, _ := os.Getwd()
		return wd
	})
	_ = vm.Set("process", process)
}

// packageStubSource builds the stand-in for package requires: an identity
// function whose unknown members are identity functions as well.
const packageStubSource = `(function () {
	var identity = function (value) { return value; };
	var members = new Proxy(Function.prototype, {
		get: function (target, key) {
			if (key in target || key === "__esModule" || key === "then") {
				return target[key];
			}
			return identity;
		}
	});
	return function () {
		var stub = function (value) { return value; };
		Object.setPrototypeOf(stub, members);
		return stub;
	};
})()`

// transpiledLoaders are the esbuild loaders for sources goja cannot run as
// written.
var transpiledLoaders = map[string]api.Loader{
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".mjs": api.LoaderJS,
}

type cjsLoader struct {
	vm          *goja.Runtime
	modules     map[string]goja.Value
	packageStub goja.Callable
}

func newCJSLoader(vm *goja.Runtime) (*cjsLoader, error) {
	factory, err := vm.RunString(packageStubSource)
	if err != nil {
		return nil, fmt.Errorf("install package stub: %w", err)
	}

	stub, ok := goja.AssertFunction(factory)
	if !ok {
		return nil, errors.New("install package stub: factory is not callable")
	}

	return &cjsLoader{vm: vm, modules: map[string]goja.Value{}, packageStub: stub}, nil
}

// transpile compiles TypeScript and ES module syntax down to CommonJS.
func transpile(filename string, source []byte, loader api.Loader) (string, error) {
	result := api.Transform(string(source), api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatCommonJS,
		Target:     api.ES2015,
		Sourcefile: filename,
	})

	if len(result.Errors) > 0 {
		msg := result.Errors[0]
		if msg.Location != nil {
			return "", fmt.Errorf("transpile %s:%d: %s", filename, msg.Location.Line, msg.Text)
		}

		return "", fmt.Errorf("transpile %s: %s", filename, msg.Text)
	}

	return string(result.Code), nil
}

func (l *cjsLoader) load(filename string) (goja.Value, error) {
	if cached, ok := l.modules[filename]; ok {
		return cached, nil
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))

	if loader, ok := transpiledLoaders[ext]; ok {
		code, err := transpile(filename, source, loader)
		if err != nil {
			return nil, err
		}

		source = []byte(code)
	}

	if ext == ".json" {
		var data any
		if err := json.Unmarshal(source, &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filename, err)
		}

		value := l.vm.ToValue(data)
		l.modules[filename] = value

		return value, nil
	}

	wrapped := "(function (exports, require, module, __filename, __dirname) {" + string(source) + "\n})"

	program, err := goja.Compile(filename, wrapped, false)
	if err != nil {
		return nil, err
	}

	fnValue, err := l.vm.RunProgram(program)
	if err != nil {
		return nil, err
	}

	fn, ok := goja.AssertFunction(fnValue)
	if !ok {
		return nil, fmt.Errorf("%s: module wrapper is not callable", filename)
	}

	module := l.vm.NewObject()
	exports := l.vm.NewObject()
	_ = module.Set("exports", exports)
	l.modules[filename] = exports

	dir := filepath.Dir(filename)
	require := l.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return l.require(dir, call.Argument(0).String())
	})

	_, err = fn(goja.Undefined(), exports, require, module, l.vm.ToValue(filename), l.vm.ToValue(dir))
	if err != nil {
		return nil, err
	}

	result := module.Get("exports")
	l.modules[filename] = result

	return result, nil
}

func (l *cjsLoader) require(dir, specifier string) goja.Value {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") && !filepath.IsAbs(specifier) {
		key := "package:" + specifier
		if stub, ok := l.modules[key]; ok {
			return stub
		}

		stub, err := l.packageStub(goja.Undefined())
		if err != nil {
			panic(l.vm.NewGoError(err))
		}

		l.modules[key] = stub

		return stub
	}

	target := specifier
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, specifier)
	}

	candidates := []string{
		target,
		target + ".js", target + ".cjs", target + ".json",
		target + ".ts", target + ".cts", target + ".mts",
		filepath.Join(target, "index.js"), filepath.Join(target, "index.ts"),
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		value, err := l.load(candidate)
		if err != nil {
			panic(l.vm.NewGoError(err))
		}

		return value
	}

	panic(l.vm.NewGoError(fmt.Errorf("cannot find module %q from %s", specifier, dir)))
}

// ESModuleEvaluator imports a module in a node child process and reads its
// default export as JSON from stdout.
type ESModuleEvaluator struct {
	command []string
	timeout time.Duration
}

// DefaultNodeCommand is used when no command is configured.
var DefaultNodeCommand = []string{"node"}

const esmLoaderScript = `import { pathToFileURL } from "node:url";
const mod = await import(pathToFileURL(process.argv[1]).href);
let value = mod.default;
if (value && typeof value === "object" && "default" in value) value = value.default;
process.stdout.write(JSON.stringify(value === undefined ? null : value));
`

// NewESModuleEvaluator constructs an ESModuleEvaluator running command.
func NewESModuleEvaluator(command []string, timeout time.Duration) *ESModuleEvaluator {
	if len(command) == 0 {
		command = DefaultNodeCommand
	}

	return &ESModuleEvaluator{command: command, timeout: timeout}
}

// Evaluate imports path and decodes the printed default export. Node decides
// the module system from the file and its package, so mode is not passed on.
func (e *ESModuleEvaluator) Evaluate(ctx context.Context, path m.Path, _ m.ModuleMode) (any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)

		defer cancel()
	}

	args := append([]string{}, e.command[1:]...)
	args = append(args, "--input-type=module", "-e", esmLoaderScript, string(path))

	// #nosec G204 - the command comes from user configuration
	cmd := exec.CommandContext(ctx, e.command[0], args...)
	cmd.Dir = string(path.Dir())

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, firstLine(msg))
		}

		return nil, &EvaluationError{Path: path, Err: err}
	}

	var value any
	if err := json.Unmarshal(stdout.Bytes(), &value); err != nil {
		return nil, &EvaluationError{Path: path, Err: fmt.Errorf("decode output: %w", err)}
	}

	return value, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// unwrapDefault follows transpiled `exports.default` and double-default
// interop wrappers.
func unwrapDefault(value any) any {
	for range 2 {
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}

		inner, ok := obj["default"]
		if !ok {
			return value
		}

		if esm, _ := obj["__esModule"].(bool); !esm && len(obj) != 1 {
			return value
		}

		value = inner
	}

	return value
}
