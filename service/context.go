package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/cheewill/go-librpc/object"
	"github.com/cheewill/go-librpc/rpcerr"
	"github.com/cheewill/go-librpc/typing"
)

// Context is the Go counterpart of rpc_context_t: the object tree a set of
// connections dispatch calls against, plus the type Registry those calls'
// arguments are validated against. Unlike the source's process-global
// rpct_init/rpc_context_create pair, a Context is an ordinary value a
// caller constructs and owns (see typing.Registry's doc comment for the
// same divergence on the type-registry side).
type Context struct {
	registry *typing.Registry

	mu        sync.RWMutex
	root      *Instance
	instances map[string]*Instance
	preHook   Func
	postHook  Func
	auditor   AuditFunc
	results   *ResultCache
}

// SetResultCache installs cache as the Context's idempotency cache; a
// non-empty idempotencyKey passed to DispatchCallIdempotent is then looked up and
// remembered against it.
func (c *Context) SetResultCache(cache *ResultCache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = cache
}

// AuditFunc is invoked once a dispatched call reaches a terminal state, the
// hook HandleFrame uses to feed a call-history sink (see package
// service/audit) without this package depending on any particular audit
// backend.
type AuditFunc func(path, interfaceName, methodName string, creds Credentials, state State)

// SetAuditor installs fn as the Context's call-completion hook.
func (c *Context) SetAuditor(fn AuditFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auditor = fn
}

func (c *Context) runAuditor(path, interfaceName, methodName string, creds Credentials, state State) {
	c.mu.RLock()
	fn := c.auditor
	c.mu.RUnlock()
	if fn != nil {
		fn(path, interfaceName, methodName, creds, state)
	}
}

// NewContext is the Go counterpart of rpc_context_create.
func NewContext(registry *typing.Registry) *Context {
	if registry == nil {
		registry = typing.NewRegistry()
	}
	root := NewInstance("/", nil)
	return &Context{
		registry:  registry,
		root:      root,
		instances: map[string]*Instance{"/": root},
	}
}

// Registry returns the Context's type registry.
func (c *Context) Registry() *typing.Registry { return c.registry }

// Root is the Go counterpart of rpc_context_get_root.
func (c *Context) Root() *Instance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

// RegisterInstance is the Go counterpart of rpc_context_register_instance.
func (c *Context) RegisterInstance(path string, instance *Instance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.instances[path]; exists {
		return rpcerr.Invalid("service: instance %q already registered", path)
	}
	c.instances[path] = instance
	return nil
}

// UnregisterInstance is the Go counterpart of rpc_instance_unregister.
func (c *Context) UnregisterInstance(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == "/" {
		return rpcerr.Invalid("service: cannot unregister the root instance")
	}
	if _, exists := c.instances[path]; !exists {
		return rpcerr.NotFound("service: instance %q not registered", path)
	}
	delete(c.instances, path)
	return nil
}

// FindInstance is the Go counterpart of rpc_context_find_instance. An
// empty path resolves to the root instance.
func (c *Context) FindInstance(path string) *Instance {
	if path == "" {
		path = "/"
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instances[path]
}

// SetPreCallHook is the Go counterpart of rpc_context_set_pre_call_hook.
func (c *Context) SetPreCallHook(fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preHook = fn
}

// SetPostCallHook is the Go counterpart of rpc_context_set_post_call_hook.
func (c *Context) SetPostCallHook(fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postHook = fn
}

// DispatchCall is the Go counterpart of rpc_context_dispatch_call: it looks
// up path/interfaceName/methodName, validates args against the method's
// declared ArgsType (if any), and runs the method's Func on its own
// goroutine, returning the *Call immediately so the caller can await
// Call.Done(), stream Call.Fragments(), or request Call.Abort(). ctx
// cancellation is observed only up to the point the method starts running;
// a method body not cooperating with ShouldAbort runs to completion
// regardless, matching the C original having no analogous primitive.
func (c *Context) DispatchCall(ctx context.Context, path, interfaceName, methodName string, args *object.Value) (*Call, error) {
	instance := c.FindInstance(path)
	if instance == nil {
		return nil, rpcerr.NotFound("service: no instance registered at %q", path)
	}
	method := instance.FindMethod(interfaceName, methodName)
	if method == nil {
		return nil, rpcerr.NotFound("service: no method %q on interface %q at %q", methodName, interfaceName, path)
	}
	if method.ArgsType != nil {
		if errs, ok := typing.Validate(method.ArgsType, args); !ok {
			defer errs.Release()
			return nil, rpcerr.Invalid("service: invalid arguments for %s.%s: %s", interfaceName, methodName, errs.Describe())
		} else {
			errs.Release()
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	call := newCall(c, instance, interfaceName, methodName, args)

	c.mu.RLock()
	pre, post := c.preHook, c.postHook
	c.mu.RUnlock()

	if pre != nil {
		pre(call, args)
	}
	call.mu.Lock()
	call.state = StateRunning
	call.mu.Unlock()

	go c.run(call, method, post)
	return call, nil
}

// DispatchCallIdempotent is DispatchCall with duplicate suppression: if
// idempotencyKey is non-empty and the Context has a ResultCache installed
// (see SetResultCache), a prior Call dispatched under the same key is
// returned instead of running the method again.
func (c *Context) DispatchCallIdempotent(ctx context.Context, path, interfaceName, methodName string, args *object.Value, idempotencyKey string) (*Call, error) {
	c.mu.RLock()
	rc := c.results
	c.mu.RUnlock()

	if rc != nil && idempotencyKey != "" {
		if call, ok := rc.Lookup(idempotencyKey); ok {
			return call, nil
		}
	}
	call, err := c.DispatchCall(ctx, path, interfaceName, methodName, args)
	if err == nil && rc != nil && idempotencyKey != "" {
		rc.Remember(idempotencyKey, call)
	}
	return call, err
}

func (c *Context) run(call *Call, method *Method, post Func) {
	result, recovered := callFunc(method, call)
	if recovered != nil {
		call.Error(panicErrorCode, recovered.Error())
		return
	}
	if result == StillRunning {
		return
	}
	if post != nil {
		post(call, result)
	}
	if result != nil && result.Tag() == object.Error {
		call.ErrorEx(result)
		return
	}
	call.Respond(result)
}

// callFunc runs method.Func, recovering a panic into an error rather than
// taking the whole process down with it; this is a Go-idiomatic addition
// with no counterpart in the C original, which has no concept of a
// recoverable runtime panic.
func callFunc(method *Method, call *Call) (result *object.Value, recovered error) {
	defer func() {
		if r := recover(); r != nil {
			recovered = fmt.Errorf("service: panic in %s.%s: %v", call.Interface(), call.Name(), r)
		}
	}()
	result = method.Func(call, call.args)
	return result, nil
}
