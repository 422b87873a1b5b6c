package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Runtime wraps a goja VM with isolation controls and the host bridge.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	emit EmitFunc

	console   []LogEntry
	consoleMu sync.Mutex

	// Registered via window.addEventListener, keyed by event name.
	listeners map[string][]goja.Callable

	// Rejected promises with no handler yet. Reconciled after the
	// script returns; survivors become unhandledrejection events.
	rejected map[*goja.Promise]goja.Value

	interrupt chan struct{}
}

// New creates an isolated runtime.
func New(config Config) (*Runtime, error) {
	vm := goja.New()

	r := &Runtime{
		vm:        vm,
		config:    config,
		console:   []LogEntry{},
		listeners: make(map[string][]goja.Callable),
		rejected:  make(map[*goja.Promise]goja.Value),
		interrupt: make(chan struct{}),
	}

	if config.MaxMemoryMB > 0 {
		vm.SetMaxCallStackSize(1024)
	}

	vm.SetPromiseRejectionTracker(func(p *goja.Promise, op goja.PromiseRejectionOperation) {
		switch op {
		case goja.PromiseRejectionReject:
			r.rejected[p] = p.Result()
		case goja.PromiseRejectionHandle:
			delete(r.rejected, p)
		}
	})

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	return r, nil
}

// SetEmit attaches the host hook behind window.parent.postMessage.
// Must be called before Execute.
func (r *Runtime) SetEmit(fn EmitFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emit = fn
}

// Execute runs a script with timeout and resource limits. Uncaught
// exceptions and unhandled rejections are dispatched to window listeners
// before the result is returned, so instrumented scripts can report them.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{
		Console: []LogEntry{},
	}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-r.interrupt:
			return
		}
	}()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(script)

	if err == nil {
		err = r.flushRejections()
	} else {
		var exc *goja.Exception
		if errors.As(err, &exc) {
			r.dispatch("error", map[string]interface{}{
				"message": exc.Error(),
				"error":   exc.Value(),
			})
		}
	}

	close(r.interrupt)
	r.interrupt = make(chan struct{})

	result.Duration = float64(time.Since(start)) / float64(time.Millisecond)

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Value = r.exportValue(val)
	return result, nil
}

// InjectDOM exposes a document proxy parsed from the preview markup.
func (r *Runtime) InjectDOM(dom *DOM) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.config.EnableDOM {
		return fmt.Errorf("dom disabled by config")
	}

	document := r.vm.NewObject()
	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return r.queryOne(dom, selectorArg(call))
	})
	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.queryAll(dom, selectorArg(call))
	})
	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return r.queryOne(dom, "#"+selectorArg(call))
	})
	document.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		return r.queryAll(dom, "."+selectorArg(call))
	})
	document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return r.queryAll(dom, selectorArg(call))
	})

	r.vm.Set("document", document)
	return nil
}

func selectorArg(call goja.FunctionCall) string {
	if len(call.Arguments) == 0 {
		return ""
	}
	return call.Arguments[0].String()
}

// Close releases resources.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	r.listeners = nil
	r.rejected = nil
	return nil
}

func (r *Runtime) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		console.Set("debug", r.makeConsoleFunc("debug"))
		r.vm.Set("console", console)
	}

	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	// window.parent.postMessage is the only channel back to the host.
	parent := r.vm.NewObject()
	parent.Set("postMessage", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		payload, ok := call.Arguments[0].Export().(map[string]interface{})
		if !ok {
			return goja.Undefined()
		}
		if fn := r.emit; fn != nil {
			fn(payload)
		}
		return goja.Undefined()
	})

	window := r.vm.NewObject()
	window.Set("parent", parent)
	window.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		name := call.Arguments[0].String()
		if fn, ok := goja.AssertFunction(call.Arguments[1]); ok {
			r.listeners[name] = append(r.listeners[name], fn)
		}
		return goja.Undefined()
	})
	r.vm.Set("window", window)

	return nil
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			args = append(args, arg.Export())
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:     level,
			Args:      args,
			Timestamp: time.Now().UnixMilli(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// dispatch calls window listeners for an event. Listener panics and errors
// are swallowed: a broken handler must not take down the run report.
func (r *Runtime) dispatch(name string, props map[string]interface{}) {
	for _, fn := range r.listeners[name] {
		ev := r.vm.NewObject()
		for k, v := range props {
			if gv, ok := v.(goja.Value); ok {
				ev.Set(k, gv)
			} else {
				ev.Set(k, r.vm.ToValue(v))
			}
		}
		func() {
			defer func() { recover() }()
			fn(goja.Undefined(), ev)
		}()
	}
}

func (r *Runtime) flushRejections() error {
	if len(r.rejected) == 0 {
		return nil
	}
	var first goja.Value
	for p, reason := range r.rejected {
		if first == nil {
			first = reason
		}
		r.dispatch("unhandledrejection", map[string]interface{}{
			"reason": reason,
		})
		delete(r.rejected, p)
	}
	return fmt.Errorf("unhandled promise rejection: %s", first.String())
}

func (r *Runtime) queryOne(dom *DOM, selector string) goja.Value {
	if dom == nil || selector == "" {
		return goja.Null()
	}
	elem := dom.QueryOne(selector)
	if elem == nil {
		return goja.Null()
	}
	return r.vm.ToValue(r.elementProxy(elem))
}

func (r *Runtime) queryAll(dom *DOM, selector string) goja.Value {
	if dom == nil || selector == "" {
		return r.vm.ToValue([]interface{}{})
	}
	elems := dom.Query(selector)
	proxies := make([]interface{}, 0, len(elems))
	for _, e := range elems {
		proxies = append(proxies, r.elementProxy(e))
	}
	return r.vm.ToValue(proxies)
}

func (r *Runtime) elementProxy(elem *Element) map[string]interface{} {
	return map[string]interface{}{
		"tagName":     elem.TagName,
		"id":          elem.ID,
		"className":   elem.ClassName,
		"textContent": elem.TextContent,
		"style":       map[string]interface{}{},
		"getAttribute": func(name string) string {
			return elem.GetAttribute(name)
		},
		"setAttribute": func(name, value string) {
			elem.SetAttribute(name, value)
		},
		"setText": func(text string) {
			elem.SetText(text)
		},
	}
}

func (r *Runtime) exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}
