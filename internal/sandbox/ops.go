package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// registerOps binds the op surface a script sees: a captured console, and
// the four ops (callMCPTool, callJsLocalTool, callLocalTool, fetch) that
// route through host. Each op spawns the actual Go-side call on its own
// goroutine and resolves/rejects the returned Promise once it completes,
// since host calls may block on network or subprocess I/O far longer than a
// single event-loop tick should.
func registerOps(vm *goja.Runtime, ctx context.Context, host Host, stdout, stderr *strings.Builder) {
	registerConsole(vm, stdout, stderr)

	vm.Set("callMCPTool", asyncOp(vm, func(args []goja.Value) (json.RawMessage, error) {
		namespace, tool, input, err := decodeCallArgs(vm, args)
		if err != nil {
			return nil, err
		}
		return host.CallMCPTool(ctx, namespace, tool, input)
	}))

	vm.Set("callJsLocalTool", asyncOp(vm, func(args []goja.Value) (json.RawMessage, error) {
		namespace, tool, input, err := decodeCallArgs(vm, args)
		if err != nil {
			return nil, err
		}
		return host.CallLocalJSTool(ctx, namespace, tool, input)
	}))

	vm.Set("callLocalTool", asyncOp(vm, func(args []goja.Value) (json.RawMessage, error) {
		namespace, tool, input, err := decodeCallArgs(vm, args)
		if err != nil {
			return nil, err
		}
		return host.CallLocalTool(ctx, namespace, tool, input)
	}))

	vm.Set("fetch", asyncOp(vm, func(args []goja.Value) (json.RawMessage, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("fetch: a url argument is required")
		}
		url := args[0].String()
		var init FetchInit
		if len(args) > 1 && !goja.IsUndefined(args[1]) {
			if err := vm.ExportTo(args[1], &init); err != nil {
				return nil, fmt.Errorf("fetch: invalid init argument: %w", err)
			}
		}
		resp, err := host.Fetch(ctx, url, init)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}))
}

// asyncOp wraps fn as a Promise-returning goja function, running fn on its
// own goroutine and settling the promise with the marshalled JSON result
// (parsed back into a JS value) or the error's message.
func asyncOp(vm *goja.Runtime, fn func(args []goja.Value) (json.RawMessage, error)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		args := call.Arguments

		go func() {
			out, err := fn(args)
			if err != nil {
				_ = reject(err.Error())
				return
			}
			var value any
			if len(out) > 0 {
				if jerr := json.Unmarshal(out, &value); jerr != nil {
					_ = reject(jerr.Error())
					return
				}
			}
			_ = resolve(value)
		}()

		return vm.ToValue(promise)
	}
}

// decodeCallArgs pulls (namespace, toolName, inputJSON) out of the three
// arguments every call*Tool op receives: namespace string, tool name
// string, and an arbitrary input value re-encoded as JSON for the Host
// layer, which works purely in terms of json.RawMessage.
func decodeCallArgs(vm *goja.Runtime, args []goja.Value) (namespace, tool string, input json.RawMessage, err error) {
	if len(args) < 2 {
		return "", "", nil, fmt.Errorf("expected (namespace, tool, input) arguments")
	}
	namespace = args[0].String()
	tool = args[1].String()
	if len(args) > 2 && !goja.IsUndefined(args[2]) {
		input, err = json.Marshal(args[2].Export())
		if err != nil {
			return "", "", nil, fmt.Errorf("invalid input argument: %w", err)
		}
	}
	return namespace, tool, input, nil
}

// registerConsole installs a console object whose log/info write to stdout
// and whose warn/error write to stderr, matching what the captured
// ExecutionResult reports back to the caller.
func registerConsole(vm *goja.Runtime, stdout, stderr *strings.Builder) {
	write := func(buf *strings.Builder) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			buf.WriteString(strings.Join(parts, " "))
			buf.WriteString("\n")
			return goja.Undefined()
		}
	}

	console := vm.NewObject()
	_ = console.Set("log", write(stdout))
	_ = console.Set("info", write(stdout))
	_ = console.Set("debug", write(stdout))
	_ = console.Set("warn", write(stderr))
	_ = console.Set("error", write(stderr))
	vm.Set("console", console)
}
