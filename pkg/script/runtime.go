package script

import (
	"fmt"
	"os"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/events"
)

// Runtime is a goja runtime with require, console and the nativekit:events
// module enabled.
type Runtime struct {
	vm     *goja.Runtime
	logger *zap.Logger
}

// NewRuntime creates a runtime. console output goes to logger. opts apply
// to emitters created by scripts.
func NewRuntime(logger *zap.Logger, opts ...events.Option) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	vm := goja.New()
	// Struct payloads are visible through their json tags.
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	registry := require.NewRegistry()
	Register(registry, opts...)
	registry.Enable(vm)

	r := &Runtime{vm: vm, logger: logger}
	must(vm.Set("console", map[string]any{
		"log":   r.console(logger.Info),
		"info":  r.console(logger.Info),
		"debug": r.console(logger.Debug),
		"warn":  r.console(logger.Warn),
		"error": r.console(logger.Error),
	}))
	return r
}

func (r *Runtime) console(write func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, v := range call.Arguments {
			parts[i] = v.String()
		}
		write(strings.Join(parts, " "), zap.String("source", "script"))
		return goja.Undefined()
	}
}

// VM returns the underlying goja runtime.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Expose binds obj and stores it in the global name. The returned object
// can be extended with wrapper-specific methods.
func (r *Runtime) Expose(name string, obj Emitter) (*goja.Object, error) {
	bound := Bind(r.vm, obj)
	if err := r.vm.Set(name, bound); err != nil {
		return nil, err
	}
	return bound, nil
}

// RunString evaluates src. name is used in stack traces.
func (r *Runtime) RunString(name, src string) (goja.Value, error) {
	prg, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return r.vm.RunProgram(prg)
}

// RunFile evaluates the script at path.
func (r *Runtime) RunFile(path string) (goja.Value, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.RunString(path, string(src))
}
