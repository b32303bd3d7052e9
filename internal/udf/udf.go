// Package udf loads scalar user-defined functions written in Starlark.
//
// Every top-level function of a .star file whose name does not start with
// an underscore becomes a SQL function of the same name:
//
//	def slugify(s):
//	    return s.lower().replace(" ", "-")
//
// Arguments and results map onto executor values: None is NULL, lists are
// lists and dicts are records.
package udf

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/polysql/pkg/executor"
)

// DefaultMaxSteps bounds the Starlark steps of a single call.
const DefaultMaxSteps = 1_000_000

// Config configures a Loader.
type Config struct {
	// MaxSteps bounds each call; zero uses DefaultMaxSteps.
	MaxSteps uint64
	// PoolSize is the number of idle threads kept for reuse.
	PoolSize int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Loader executes .star files and collects their functions.
type Loader struct {
	pool   *threadPool
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(cfg Config) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	steps := cfg.MaxSteps
	if steps == 0 {
		steps = DefaultMaxSteps
	}
	return &Loader{pool: newThreadPool(cfg.PoolSize, steps, logger), logger: logger}
}

// Module is one loaded Starlark file.
type Module struct {
	// Path is the file the module was read from.
	Path string
	// Functions maps upper-cased SQL names to callables.
	Functions map[string]executor.Function
}

// Names returns the function names in order.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LoadFile reads and executes a .star file.
func (l *Loader) LoadFile(path string) (*Module, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the user on purpose
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return l.Load(path, src)
}

// Load executes Starlark source. name is used in error messages.
func (l *Loader) Load(name string, src []byte) (*Module, error) {
	thread := &starlark.Thread{
		Name:  "load:" + name,
		Print: func(_ *starlark.Thread, _ string) {},
	}

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, name, src, nil)
	if err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	m := &Module{Path: name, Functions: make(map[string]executor.Function)}
	for _, key := range globals.Keys() {
		fn, ok := globals[key].(*starlark.Function)
		if !ok || strings.HasPrefix(key, "_") {
			continue
		}
		m.Functions[strings.ToUpper(key)] = l.wrap(fn)
	}
	if len(m.Functions) == 0 {
		return nil, &LoadError{File: name, Message: "no functions defined"}
	}

	l.logger.Debug("loaded udf module", "path", name, "functions", m.Names())
	return m, nil
}

// LoadFiles loads several files and merges their functions. A name
// defined in two files is an error.
func (l *Loader) LoadFiles(paths ...string) (map[string]executor.Function, error) {
	funcs := make(map[string]executor.Function)
	owner := make(map[string]string)
	for _, path := range paths {
		m, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, name := range m.Names() {
			if prev, dup := owner[name]; dup {
				return nil, &LoadError{File: path, Message: fmt.Sprintf("function %s already defined in %s", name, filepath.Base(prev))}
			}
			owner[name] = path
			funcs[name] = m.Functions[name]
		}
	}
	return funcs, nil
}

// wrap adapts a Starlark function to the executor's calling convention.
func (l *Loader) wrap(fn *starlark.Function) executor.Function {
	return func(args []executor.Value) (executor.Value, error) {
		sargs := make(starlark.Tuple, len(args))
		for i, a := range args {
			sv, err := toStarlark(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			sargs[i] = sv
		}

		thread := l.pool.get(fn.Name())
		res, err := starlark.Call(thread, fn, sargs, nil)
		if err != nil {
			var evalErr *starlark.EvalError
			if errors.As(err, &evalErr) {
				return nil, fmt.Errorf("%s", evalErr.Msg)
			}
			return nil, err
		}
		l.pool.put(thread)

		return fromStarlark(res)
	}
}

// LoadError represents an error loading a UDF file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("udf %s: %s", filepath.Base(e.File), e.Message)
}
