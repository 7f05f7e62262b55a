package script

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/go-drift/nativekit/pkg/events"
)

// ModuleName is the name scripts require to get EventEmitter.
const ModuleName = "nativekit:events"

// anyEvent recognizes every event name. It backs script-created emitters,
// which have no native side to attach.
type anyEvent struct{}

func (anyEvent) Class() string { return "EventEmitter" }

func (anyEvent) Resolve(string) (events.Binding, bool) {
	return events.Binding{Class: "EventEmitter"}, true
}

func (anyEvent) Events() []string { return nil }

// Register installs the nativekit:events module in registry. opts apply to
// every EventEmitter scripts construct.
func Register(registry *require.Registry, opts ...events.Option) {
	registry.RegisterNativeModule(ModuleName, loader(opts))
}

func loader(opts []events.Option) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)
		must(exports.Set("EventEmitter", func(call goja.ConstructorCall, vm *goja.Runtime) *goja.Object {
			install(vm, call.This, events.Compose(anyEvent{}, opts...))
			return nil
		}))
	}
}
