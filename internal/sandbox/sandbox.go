// Package sandbox runs one code-mode script to completion inside a fresh,
// disposable JavaScript runtime.
//
// Every call to [Run] gets its own [goja.Runtime] and event loop, bound to a
// fresh set of ops scoped to the Host passed in. Nothing persists between
// runs: there is no warm-runtime pool, no shared global object, and no
// carried-over console buffer, mirroring the "one execution, one
// interpreter" model the script host is specified to provide.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
)

// DefaultTimeout bounds how long a single Run is allowed to take before it
// is aborted and reported as a timeout failure.
const DefaultTimeout = 30 * time.Second

// Host is the set of operations a running script can reach through the
// callMCPTool/callJsLocalTool/callLocalTool/fetch ops. internal/codemode
// implements this by delegating callMCPTool to the MCP registry and both
// callJsLocalTool and callLocalTool to the callable-tool registry.
type Host interface {
	// CallMCPTool invokes toolName on the MCP server registered under
	// namespace.
	CallMCPTool(ctx context.Context, namespace, toolName string, args json.RawMessage) (json.RawMessage, error)

	// CallLocalJSTool backs the callJsLocalTool op (VariantLocalJS).
	CallLocalJSTool(ctx context.Context, namespace, toolName string, args json.RawMessage) (json.RawMessage, error)

	// CallLocalTool backs the callLocalTool op (VariantLocalHost).
	CallLocalTool(ctx context.Context, namespace, toolName string, args json.RawMessage) (json.RawMessage, error)

	// Fetch performs a gated HTTP request. Implementations must enforce the
	// host allow-list derived from registered MCP server URLs before
	// dialing out.
	Fetch(ctx context.Context, url string, init FetchInit) (FetchResponse, error)
}

// FetchInit mirrors the subset of the Fetch API's RequestInit a script may
// supply.
type FetchInit struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// FetchResponse mirrors the subset of the Fetch API's Response a script can
// observe.
type FetchResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// ExecutionResult is the outcome of running one script.
type ExecutionResult struct {
	Success bool
	Stdout  string
	Stderr  string
	Output  json.RawMessage
	Err     error
}

// Markdown renders the result the way a chat transcript would show it: a
// fenced output block, followed by captured stdio when present.
func (r ExecutionResult) Markdown() string {
	var b strings.Builder
	if r.Success {
		b.WriteString("Execution succeeded.\n")
	} else {
		fmt.Fprintf(&b, "Execution failed: %v\n", r.Err)
	}
	if r.Stdout != "" {
		fmt.Fprintf(&b, "\n```stdout\n%s\n```\n", r.Stdout)
	}
	if r.Stderr != "" {
		fmt.Fprintf(&b, "\n```stderr\n%s\n```\n", r.Stderr)
	}
	if len(r.Output) > 0 {
		fmt.Fprintf(&b, "\n```json\n%s\n```\n", r.Output)
	}
	return b.String()
}

// preamble is the JavaScript wrapper every user script runs inside. The
// script body must define an async function named "run" that returns the
// program's result; Run invokes it and resolves the outer promise with
// whatever it returns.
const preamble = `
(function(__pctx_run) {
  return new Promise(function(resolve, reject) {
    Promise.resolve().then(function() {
      return __pctx_run();
    }).then(resolve, reject);
  });
})
`

// Run transpiles code (see Transpile), evaluates it inside a fresh runtime
// bound to host's ops, and executes its "run" entry point. It blocks until
// the script settles or timeout elapses.
func Run(ctx context.Context, code string, host Host, timeout time.Duration) ExecutionResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	js, err := Transpile(code)
	if err != nil {
		return ExecutionResult{Success: false, Err: fmt.Errorf("sandbox: transpile: %w", err)}
	}

	loop := eventloop.NewEventLoop()

	var result ExecutionResult
	done := make(chan struct{})

	loop.Start()
	defer loop.Stop()

	loop.RunOnLoop(func(vm *goja.Runtime) {
		var stdout, stderr strings.Builder
		registerOps(vm, ctx, host, &stdout, &stderr)

		program, err := goja.Compile("code-mode.js", js+"\n;("+preamble+")(run)", false)
		if err != nil {
			result = ExecutionResult{Success: false, Err: fmt.Errorf("sandbox: compile: %w", err)}
			close(done)
			return
		}

		promiseVal, err := vm.RunProgram(program)
		if err != nil {
			result = ExecutionResult{Success: false, Stdout: stdout.String(), Stderr: stderr.String(), Err: fmt.Errorf("sandbox: run: %w", err)}
			close(done)
			return
		}

		promise, ok := promiseVal.Export().(*goja.Promise)
		if !ok {
			result = ExecutionResult{Success: false, Stdout: stdout.String(), Stderr: stderr.String(), Err: fmt.Errorf("sandbox: script did not return a promise")}
			close(done)
			return
		}

		awaitPromise(vm, promise, func(state goja.PromiseState, value goja.Value) {
			switch state {
			case goja.PromiseStateFulfilled:
				out, merr := json.Marshal(value.Export())
				if merr != nil {
					out = nil
				}
				result = ExecutionResult{Success: true, Stdout: stdout.String(), Stderr: stderr.String(), Output: out}
			default:
				result = ExecutionResult{Success: false, Stdout: stdout.String(), Stderr: stderr.String(), Err: fmt.Errorf("sandbox: script rejected: %v", value.Export())}
			}
			close(done)
		})
	})

	select {
	case <-done:
		return result
	case <-ctx.Done():
		return ExecutionResult{Success: false, Err: fmt.Errorf("sandbox: execution timed out after %s", timeout)}
	}
}

// awaitPromise reports a goja Promise's outcome to onSettled. A promise that
// has already settled is reported immediately; otherwise fulfilment and
// rejection handlers are attached with "then", so onSettled runs on the
// event loop when the promise settles.
func awaitPromise(vm *goja.Runtime, p *goja.Promise, onSettled func(goja.PromiseState, goja.Value)) {
	if p.State() != goja.PromiseStatePending {
		if p.State() == goja.PromiseStateFulfilled {
			onSettled(p.State(), p.Result())
		} else {
			onSettled(p.State(), p.Result())
		}
		return
	}
	// Still pending: attach handlers that report the eventual outcome.
	then, _ := goja.AssertFunction(vm.ToValue(p).ToObject(vm).Get("then"))
	_, _ = then(vm.ToValue(p), vm.ToValue(func(call goja.FunctionCall) goja.Value {
		onSettled(goja.PromiseStateFulfilled, call.Argument(0))
		return goja.Undefined()
	}), vm.ToValue(func(call goja.FunctionCall) goja.Value {
		onSettled(goja.PromiseStateRejected, call.Argument(0))
		return goja.Undefined()
	}))
}
