// Package transport defines the contract a concrete stream adapter (see
// transport/stream) implements: connecting to or listening on a URI,
// sending framed payloads with out-of-band file descriptors, and
// delivering received frames upward. Ported from the rco_* function
// pointer table (struct rpc_connection) and the rpc_transport_t
// Connect/Listen pair in src/transport/socket.c.
package transport

import (
	"context"

	"github.com/cheewill/go-librpc/object"
)

// Credentials carries the peer identity accepted alongside a connection,
// populated from the SCM_CREDENTIALS ancillary data a unix-domain socket
// delivers with each frame once SO_PASSCRED is enabled on it (struct
// rpc_credentials / rcc_pid/rcc_uid/rcc_gid in socket_recv_msg). A tcp://
// peer carries no such identity; Transport implementations report the
// zero value for it.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

// Connection is the Go counterpart of struct rpc_connection's rco_*
// function pointers: a single open stream, able to send a framed payload
// (with ancillary file descriptors) and to be aborted.
type Connection interface {
	// Send frames and writes payload, passing fds as ancillary data
	// alongside it (SCM_RIGHTS on a unix socket; ignored, and an error if
	// non-empty, on a transport that cannot carry descriptors).
	Send(payload []byte, fds []int) error

	// Abort tears the connection down, the counterpart of rco_abort.
	Abort() error

	// Fd returns the underlying socket descriptor, the counterpart of
	// rco_get_fd.
	Fd() int
}

// Handler is invoked once per frame a Listen'd or Connect'd connection
// receives. It is the upward-delivery half of the contract; a typical
// caller wires it to (*service.Context).HandleFrame.
type Handler func(conn Connection, payload []byte, fds []int, creds Credentials) error

// Transport is the Go counterpart of the librpc transport vtable
// (rpc_transport_t): schemes it accepts, a Connect (client) side and a
// Listen (server) side.
type Transport interface {
	// Connect dials uri and returns the resulting Connection. Frames the
	// peer sends back are delivered to handler from a reader goroutine the
	// implementation starts; Connect returns once the dial (not the
	// lifetime of that goroutine) completes.
	Connect(ctx context.Context, uri string, args *object.Value, handler Handler) (Connection, error)

	// Listen accepts connections on uri until ctx is cancelled, dispatching
	// each accepted connection's frames to handler from its own reader
	// goroutine. It always returns a Go error (nil on a clean shutdown via
	// ctx), unlike socket_listen in the source, which is declared to return
	// int but falls off the end of the function without a return statement
	// on its success path, leaving the return value undefined.
	Listen(ctx context.Context, uri string, args *object.Value, handler Handler) error
}
