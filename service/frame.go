package service

import (
	"context"

	"github.com/cheewill/go-librpc/codec"
	"github.com/cheewill/go-librpc/object"
	"github.com/cheewill/go-librpc/rpcerr"
)

// Credentials carries the peer identity a transport accepted alongside a
// connection, the Go counterpart of the SO_PEERCRED-derived fields
// socket.c's rco_get_fd callers read off an accepted connection.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// FrameSender is the minimal surface HandleFrame needs from a connection to
// deliver a response or streamed fragments back to its caller. It is
// satisfied structurally by transport.Connection without this package
// importing package transport, keeping service ignorant of any one
// transport's wire details.
type FrameSender interface {
	Send(payload []byte, fds []int) error
	Abort() error
}

const (
	envelopeID        = "id"
	envelopePath      = "path"
	envelopeInterface = "interface"
	envelopeMethod    = "method"
	envelopeArgs      = "args"
	envelopeResult    = "result"
	envelopeError     = "error"
	envelopeFragment  = "fragment"
	envelopeEnd       = "end"
	envelopeIdemKey   = "idempotencyKey"
)

// HandleFrame decodes a single request frame, dispatches it against the
// Context's instance tree, and delivers the response (or, for a streaming
// method, a fragment per Yield plus a terminating end frame) back over
// conn. It is the Go counterpart of the delivery path
// rco_recv_msg/rco_send_msg implement in src/transport/socket.c, adapted
// to Go's channel-based Call rather than the C library's callback style.
func (c *Context) HandleFrame(conn FrameSender, payload []byte, fds []int, creds Credentials) error {
	req, err := codec.DecodeFrame(payload, fds)
	if err != nil {
		return rpcerr.Protocol("service: decoding frame: %v", err)
	}
	defer req.Release()

	id := req.DictGetUint64(envelopeID)
	path := req.DictGetString(envelopePath)
	interfaceName := req.DictGetString(envelopeInterface)
	method := req.DictGetString(envelopeMethod)
	args := req.DictGet(envelopeArgs)
	idemKey := req.DictGetString(envelopeIdemKey)

	call, err := c.DispatchCallIdempotent(context.Background(), path, interfaceName, method, args, idemKey)
	if err != nil {
		dispatchErr := object.NewError(0, err.Error(), nil)
		defer dispatchErr.Release()
		return sendEnvelope(conn, id, nil, dispatchErr, false)
	}
	go pumpCall(c, conn, id, path, interfaceName, method, creds, call)
	return nil
}

// pumpCall forwards a dispatched call's fragments and terminal value over
// conn. It takes over ownership of every Value it reads off call (fragments
// from the channel, and the terminal Result/Err), releasing each once the
// corresponding envelope has been encoded. Once the call reaches a terminal
// state it reports it to the owning Context's auditor, if one is set.
func pumpCall(c *Context, conn FrameSender, id uint64, path, interfaceName, method string, creds Credentials, call *Call) {
	for fragment := range call.Fragments() {
		err := sendFragment(conn, id, fragment)
		fragment.Release()
		if err != nil {
			return
		}
	}
	<-call.Done()
	defer c.runAuditor(path, interfaceName, method, creds, call.State())
	if errValue := call.Err(); errValue != nil {
		_ = sendEnvelope(conn, id, nil, errValue, false)
		errValue.Release()
		return
	}
	result := call.Result()
	_ = sendEnvelope(conn, id, result, nil, call.State() == StateStreamEnded)
	if result != nil {
		result.Release()
	}
}

func sendFragment(conn FrameSender, id uint64, fragment *object.Value) error {
	env := object.NewDict()
	defer env.Release()
	env.DictSetUint64(envelopeID, id)
	env.DictSet(envelopeFragment, fragment)
	bytes, outFds, err := codec.EncodeFrame(env)
	if err != nil {
		return err
	}
	return conn.Send(bytes, outFds)
}

func sendEnvelope(conn FrameSender, id uint64, result, errValue *object.Value, end bool) error {
	env := object.NewDict()
	defer env.Release()
	env.DictSetUint64(envelopeID, id)
	if errValue != nil {
		env.DictSet(envelopeError, errValue)
	} else if result != nil {
		env.DictSet(envelopeResult, result)
	}
	if end {
		env.DictSetBool(envelopeEnd, true)
	}
	bytes, outFds, err := codec.EncodeFrame(env)
	if err != nil {
		return err
	}
	return conn.Send(bytes, outFds)
}

