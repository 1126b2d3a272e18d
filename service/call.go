package service

import (
	"sync"
	"sync/atomic"

	"github.com/cheewill/go-librpc/object"
)

// State is the lifecycle of a Call: INIT -> RUNNING -> a terminal state.
// Streaming calls pass through STREAMING before STREAM_ENDED. Abort can
// land a call in ABORTED from any non-terminal state.
type State int32

const (
	StateInit State = iota
	StateRunning
	StateReplied
	StateErrored
	StateStreaming
	StateStreamEnded
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateReplied:
		return "replied"
	case StateErrored:
		return "errored"
	case StateStreaming:
		return "streaming"
	case StateStreamEnded:
		return "stream_ended"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	switch s {
	case StateReplied, StateErrored, StateStreamEnded, StateAborted:
		return true
	default:
		return false
	}
}

// Call is the Go counterpart of the opaque cookie passed to every
// rpc_function_* call: the running state of a single dispatched method
// invocation. Exactly one of Respond/Error/ErrorEx/End may ever move a Call
// into its terminal state; later calls to any of them are ignored without
// panicking and without any report (only Yield returns an error once the
// call is terminal).
type Call struct {
	context   *Context
	instance  *Instance
	name      string
	path      string
	interfac  string
	args      *object.Value

	mu        sync.Mutex
	state     State
	result    *object.Value
	errValue  *object.Value
	fragments chan *object.Value
	done      chan struct{}
	aborted   atomic.Bool
}

func newCall(ctx *Context, inst *Instance, interfaceName, name string, args *object.Value) *Call {
	return &Call{
		context:   ctx,
		instance:  inst,
		name:      name,
		path:      inst.Path(),
		interfac:  interfaceName,
		args:      args,
		state:     StateInit,
		fragments: make(chan *object.Value, 16),
		done:      make(chan struct{}),
	}
}

// Context is the Go counterpart of rpc_function_get_context.
func (c *Call) Context() *Context { return c.context }

// Name is the Go counterpart of rpc_function_get_name.
func (c *Call) Name() string { return c.name }

// Path is the Go counterpart of rpc_function_get_path.
func (c *Call) Path() string { return c.path }

// Interface is the Go counterpart of rpc_function_get_interface.
func (c *Call) Interface() string { return c.interfac }

// Arg is the Go counterpart of rpc_function_get_arg: the instance's opaque
// argument registered via NewInstance.
func (c *Call) Arg() any { return c.instance.Arg() }

// State returns the call's current lifecycle state.
func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done returns a channel closed once the call has reached a terminal
// state, analogous to context.Context.Done.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the final response value once Done is closed; it is nil
// for calls that ended in error, were aborted, or have not yet finished.
// Ownership passes to the single intended caller (the frame delivery path
// in frame.go, or a local caller awaiting the call directly) along with the
// reference Respond was given; call it at most once per Call.
func (c *Call) Result() *object.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Err returns the Error-tag object.Value the call finished with, or nil.
// Same single-reader ownership contract as Result.
func (c *Call) Err() *object.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errValue
}

// Fragments returns the channel streaming Yield fragments, closed once End
// is called or the call reaches a terminal state by any other path.
func (c *Call) Fragments() <-chan *object.Value { return c.fragments }

// Respond is the Go counterpart of rpc_function_respond: it may be called
// only once during a call's lifetime.
func (c *Call) Respond(result *object.Value) {
	c.finish(StateReplied, result, nil)
}

// Error is the Go counterpart of rpc_function_error.
func (c *Call) Error(code int, message string) {
	c.finish(StateErrored, nil, object.NewError(code, message, nil))
}

// ErrorEx is the Go counterpart of rpc_function_error_ex.
func (c *Call) ErrorEx(exception *object.Value) {
	c.finish(StateErrored, nil, exception)
}

// Yield is the Go counterpart of rpc_function_yield: it appends fragment to
// the call's stream. It returns an error (the "Status" the source
// documents, success being 0) if the call has been aborted, has already
// reached a terminal state, or the fragment buffer is full.
func (c *Call) Yield(fragment *object.Value) error {
	if c.aborted.Load() {
		return errCallAborted
	}
	c.mu.Lock()
	if c.state.terminal() {
		c.mu.Unlock()
		return callClosedError(c.state)
	}
	c.state = StateStreaming
	c.mu.Unlock()

	select {
	case c.fragments <- fragment:
		return nil
	default:
		return errFragmentBufferFull
	}
}

// End is the Go counterpart of rpc_function_end: it stops the streaming
// response. No further Yield/Respond/Error/ErrorEx call is accepted once
// End has run.
func (c *Call) End() {
	c.mu.Lock()
	if c.state.terminal() {
		c.mu.Unlock()
		return
	}
	c.state = StateStreamEnded
	c.mu.Unlock()
	close(c.fragments)
	close(c.done)
}

// ShouldAbort is the Go counterpart of rpc_function_should_abort.
func (c *Call) ShouldAbort() bool {
	return c.aborted.Load()
}

// Abort requests that the running method stop, the Go counterpart of the
// client-side cancellation rpc_function_should_abort lets a method observe.
// Setting the flag makes subsequent Yield calls fail immediately; Abort also
// drives the call itself into the terminal StateAborted state, so a method
// that never calls ShouldAbort still sees its Call finish instead of hanging
// other goroutines on Done forever.
func (c *Call) Abort() {
	c.aborted.Store(true)
	c.finish(StateAborted, nil, object.NewError(abortedErrorCode, errCallAborted.Error(), nil))
}

func (c *Call) finish(state State, result, errValue *object.Value) {
	c.mu.Lock()
	if c.state.terminal() {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.result = result
	c.errValue = errValue
	c.mu.Unlock()
	close(c.fragments)
	close(c.done)
}
