// Package jsruntime wraps github.com/dop251/goja, an embeddable
// ECMAScript engine, behind a small "compile source → callable",
// "call with arguments", "register native callback" surface. The
// executor needs a runtime that lives in-process and is thread-affine
// (one instance per worker goroutine, never shared), with a native
// "emit" callback bound per map-function invocation — goja satisfies
// that directly, without a subprocess or IPC boundary.
package jsruntime

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dop251/goja"
)

// Callable is an opaque handle returned by Compile.
type Callable = goja.Callable

// Runtime is a single, non-thread-safe JS execution context. Callers
// must pin one Runtime per goroutine (see internal/pool).
type Runtime struct {
	vm       *goja.Runtime
	compiled map[string]Callable
}

// New creates a fresh runtime. Callers own its lifetime and must not
// share it across goroutines.
func New() *Runtime {
	return &Runtime{
		vm:       goja.New(),
		compiled: make(map[string]Callable),
	}
}

// Compile turns map/reduce function source into a Callable, caching by
// a hash of the source text so repeated calls with the same source
// avoid re-parsing it.
func (r *Runtime) Compile(source string) (Callable, error) {
	key := sourceHash(source)
	if fn, ok := r.compiled[key]; ok {
		return fn, nil
	}

	wrapped := "(function(){ return " + source + "; })()"
	v, err := r.vm.RunString(wrapped)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("compile: source did not evaluate to a function")
	}

	r.compiled[key] = fn
	return fn, nil
}

// Call invokes fn with the given arguments, converting them to JS
// values first.
func (r *Runtime) Call(fn Callable, args ...interface{}) (result interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic evaluating script: %v", rec)
		}
	}()

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = r.vm.ToValue(a)
	}

	v, callErr := fn(goja.Undefined(), jsArgs...)
	if callErr != nil {
		return nil, callErr
	}
	return v.Export(), nil
}

// DefineGlobalFunction registers a native Go function under name,
// callable from compiled script source. The native function receives
// already-exported Go values.
func (r *Runtime) DefineGlobalFunction(name string, fn func(args []interface{}) (interface{}, error)) {
	r.vm.Set(name, func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		result, err := fn(args)
		if err != nil {
			panic(r.vm.ToValue(err.Error()))
		}
		return r.vm.ToValue(result)
	})
}

// ToValue exposes the underlying engine's native-value conversion, used
// by the executor to bind the "current document" argument for each map
// invocation: the document is passed through the call argument, never
// a shared mutable slot.
func (r *Runtime) ToValue(v interface{}) goja.Value {
	return r.vm.ToValue(v)
}

func sourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
