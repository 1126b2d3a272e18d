// Package service implements the RPC dispatch core: the instance tree
// callers register methods against, the context that owns that tree plus
// the type registry, and the call-cookie contract a running method uses to
// reply, stream, or abort.
//
// Ported from the rpc_instance_t/rpc_context_t/rpc_function_* prototypes of
// include/rpc/service.h. The C API threads an opaque `void *cookie` through
// every rpc_function_* call; here that cookie is simply *Call, and the
// "cookie, args" argument pair rpc_function_t blocks receive becomes a
// (*Call, *object.Value) argument pair to Func.
package service

import (
	"fmt"
	"sync"

	"github.com/cheewill/go-librpc/object"
	"github.com/cheewill/go-librpc/rpcerr"
	"github.com/cheewill/go-librpc/typing"
)

// Func is the Go counterpart of rpc_function_t: the body of a registered
// RPC method. It may reply synchronously by returning a non-nil Value (an
// Error-tag Value is treated as an error response), or return StillRunning
// and finish the call later from a goroutine of its own choosing via the
// call's Respond/Error/ErrorEx/Yield/End methods.
type Func func(call *Call, args *object.Value) *object.Value

// StillRunning is the Go counterpart of RPC_FUNCTION_STILL_RUNNING: a Func
// returns this exact pointer to tell the dispatcher the call will be
// finished asynchronously, rather than from Func's own return value.
var StillRunning = &object.Value{}

// Method is the Go counterpart of struct rpc_method.
type Method struct {
	Name        string
	Interface   string
	Description string
	ArgsType    *typing.Instance // optional; when set, args are validated before Func runs
	Func        Func
}

func methodKey(interfaceName, name string) string {
	return interfaceName + "." + name
}

// Instance is the Go counterpart of rpc_instance_t: a named node in a
// Context's object tree, exposing a set of interface methods and able to
// emit events to subscribers (rpc_instance_emit_event).
type Instance struct {
	mu          sync.RWMutex
	path        string
	arg         any
	methods     map[string]*Method
	subscribers map[string]map[chan *object.Value]struct{}
}

// NewInstance is the Go counterpart of rpc_instance_new.
func NewInstance(path string, arg any) *Instance {
	return &Instance{
		path:        path,
		arg:         arg,
		methods:     map[string]*Method{},
		subscribers: map[string]map[chan *object.Value]struct{}{},
	}
}

// Path is the Go counterpart of rpc_instance_get_path.
func (i *Instance) Path() string { return i.path }

// Arg is the Go counterpart of rpc_instance_get_arg.
func (i *Instance) Arg() any { return i.arg }

// RegisterMethod is the Go counterpart of rpc_instance_register_method.
func (i *Instance) RegisterMethod(m *Method) error {
	if m.Name == "" {
		return rpcerr.Invalid("service: method name must not be empty")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	key := methodKey(m.Interface, m.Name)
	if _, exists := i.methods[key]; exists {
		return rpcerr.Invalid("service: method %s already registered on %s", key, i.path)
	}
	i.methods[key] = m
	return nil
}

// UnregisterMethod is the Go counterpart of rpc_instance_unregister_method.
func (i *Instance) UnregisterMethod(interfaceName, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	key := methodKey(interfaceName, name)
	if _, exists := i.methods[key]; !exists {
		return rpcerr.NotFound("service: method %s not registered on %s", key, i.path)
	}
	delete(i.methods, key)
	return nil
}

// FindMethod is the Go counterpart of rpc_instance_find_method.
func (i *Instance) FindMethod(interfaceName, name string) *Method {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.methods[methodKey(interfaceName, name)]
}

// Methods returns every method registered on the instance, in no
// particular order.
func (i *Instance) Methods() []*Method {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]*Method, 0, len(i.methods))
	for _, m := range i.methods {
		out = append(out, m)
	}
	return out
}

// Subscribe registers interest in events emitted under interfaceName.Name,
// returning a channel that receives each event payload and an unsubscribe
// function. The channel is buffered; an event that finds it full is
// dropped for this subscriber (which stays subscribed) rather than
// stalling the emitter.
func (i *Instance) Subscribe(interfaceName, name string) (<-chan *object.Value, func()) {
	key := methodKey(interfaceName, name)
	ch := make(chan *object.Value, 16)
	i.mu.Lock()
	if i.subscribers[key] == nil {
		i.subscribers[key] = map[chan *object.Value]struct{}{}
	}
	i.subscribers[key][ch] = struct{}{}
	i.mu.Unlock()
	unsubscribe := func() {
		i.mu.Lock()
		if subs := i.subscribers[key]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(i.subscribers, key)
			}
		}
		i.mu.Unlock()
	}
	return ch, unsubscribe
}

// EmitEvent is the Go counterpart of rpc_instance_emit_event: it fans a
// retained copy of payload out to every current subscriber of
// interfaceName.name. Full subscriber channels are skipped rather than
// blocking the emitter.
func (i *Instance) EmitEvent(interfaceName, name string, payload *object.Value) {
	key := methodKey(interfaceName, name)
	i.mu.RLock()
	subs := make([]chan *object.Value, 0, len(i.subscribers[key]))
	for ch := range i.subscribers[key] {
		subs = append(subs, ch)
	}
	i.mu.RUnlock()
	for _, ch := range subs {
		cp := payload.Retain()
		select {
		case ch <- cp:
		default:
			cp.Release()
		}
	}
}

func (i *Instance) String() string {
	return fmt.Sprintf("instance(%s)", i.path)
}
