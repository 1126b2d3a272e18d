// Package stream implements transport.Transport over local-domain sockets
// and TCP, the two schemes spec.md names ("local-domain sockets, TCP"),
// matching socket_transport.schemas = {"unix", "tcp", NULL} in
// src/transport/socket.c. Framing and ancillary fd/credential passing are
// done with golang.org/x/sys/unix directly on the connection's raw
// descriptor, since net.Conn exposes no way to send or receive SCM_RIGHTS/
// SCM_CREDENTIALS ancillary data.
package stream

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/cheewill/go-librpc/object"
	"github.com/cheewill/go-librpc/rpcerr"
	"github.com/cheewill/go-librpc/transport"
)

// Stream implements transport.Transport for "unix://" and "tcp://" URIs.
type Stream struct{}

// New returns a ready-to-use Stream transport.
func New() *Stream { return &Stream{} }

func parseAddr(uri string) (network, address string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", rpcerr.Invalid("transport: parsing uri %q: %v", uri, err)
	}
	switch u.Scheme {
	case "unix":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return "unix", path, nil
	case "tcp":
		return "tcp", u.Host, nil
	default:
		return "", "", rpcerr.Invalid("transport: unsupported scheme %q (want unix or tcp)", u.Scheme)
	}
}

// Connect is the Go counterpart of a transport's Connect entry point
// (socket_connect in socket.c).
func (s *Stream) Connect(ctx context.Context, uri string, args *object.Value, handler transport.Handler) (transport.Connection, error) {
	network, address, err := parseAddr(uri)
	if err != nil {
		return nil, err
	}
	var d net.Dialer
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, rpcerr.Transport("transport: dialing %q: %v", uri, err)
	}
	conn, err := newConn(nc)
	if err != nil {
		return nil, err
	}
	go conn.readLoop(handler)
	return conn, nil
}

// Listen is the Go counterpart of socket_listen, fixed to always return a
// Go error instead of falling off the end of the function (see
// transport.Transport.Listen's doc comment).
func (s *Stream) Listen(ctx context.Context, uri string, args *object.Value, handler transport.Handler) error {
	network, address, err := parseAddr(uri)
	if err != nil {
		return err
	}
	if network == "unix" {
		_ = unix.Unlink(address)
	}
	ln, err := net.Listen(network, address)
	if err != nil {
		return rpcerr.Transport("transport: listening on %q: %v", uri, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return rpcerr.Transport("transport: accepting on %q: %v", uri, err)
			}
		}
		conn, err := newConn(nc)
		if err != nil {
			nc.Close()
			continue
		}
		go conn.readLoop(handler)
	}
}

// fileConner is implemented by *net.UnixConn and *net.TCPConn: both expose
// the underlying descriptor via a duplicated *os.File.
type fileConner interface {
	File() (*os.File, error)
}

// conn is the Go counterpart of struct socket_connection: a single framed
// stream plus the raw descriptor used for ancillary-data sendmsg/recvmsg.
type conn struct {
	nc     net.Conn
	file   *os.File
	fd     int
	isUnix bool

	mu        sync.Mutex
	closeOnce sync.Once
}

func newConn(nc net.Conn) (*conn, error) {
	fc, ok := nc.(fileConner)
	if !ok {
		nc.Close()
		return nil, rpcerr.Transport("transport: connection type %T exposes no raw descriptor", nc)
	}
	file, err := fc.File()
	if err != nil {
		nc.Close()
		return nil, rpcerr.Transport("transport: obtaining raw descriptor: %v", err)
	}
	_, isUnix := nc.(*net.UnixConn)
	fd := int(file.Fd())
	if isUnix {
		// SO_PASSCRED makes the kernel attach the sender's SCM_CREDENTIALS
		// to every message read off this socket, which readLoop parses.
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_PASSCRED, 1); err != nil {
			file.Close()
			nc.Close()
			return nil, rpcerr.Transport("transport: enabling SO_PASSCRED: %v", err)
		}
	}
	return &conn{nc: nc, file: file, fd: fd, isUnix: isUnix}, nil
}

// Fd is the Go counterpart of rco_get_fd.
func (c *conn) Fd() int { return c.fd }

// Abort is the Go counterpart of rco_abort.
func (c *conn) Abort() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		err1 := c.file.Close()
		err2 := c.nc.Close()
		if err1 != nil {
			err = err1
		} else {
			err = err2
		}
	})
	return err
}

// Send is the Go counterpart of socket_send_msg: it writes the 16-byte
// frame header, the payload, and (on a unix socket) passes fds as
// SCM_RIGHTS ancillary data alongside the header.
func (c *conn) Send(payload []byte, fds []int) error {
	if len(fds) > 0 && !c.isUnix {
		return rpcerr.Invalid("transport: %d fd(s) given but connection is not a unix socket", len(fds))
	}
	header := transport.EncodeHeader(uint32(len(payload)))

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(fds) > 0 {
		oob := unix.UnixRights(fds...)
		if err := unix.Sendmsg(c.fd, header[:], oob, nil, 0); err != nil {
			return rpcerr.Transport("transport: sendmsg header: %v", err)
		}
	} else if _, err := c.file.Write(header[:]); err != nil {
		return rpcerr.Transport("transport: writing header: %v", err)
	}
	if _, err := c.file.Write(payload); err != nil {
		return rpcerr.Transport("transport: writing payload: %v", err)
	}
	return nil
}

// readLoop reads frames off the connection until it closes or a short read
// or bad header is encountered, delivering each to handler. Matches the
// per-connection reader goroutine socket_reader spawns in socket.c, and
// the short-read handling spec.md §9 calls out: any fds already parsed
// from a frame's ancillary data are closed before bailing, so a truncated
// frame never leaks descriptors.
func (c *conn) readLoop(handler transport.Handler) {
	defer c.Abort()
	for {
		header := make([]byte, transport.HeaderSize)
		oob := make([]byte, unix.CmsgSpace(64*4)) // room for a handful of fds + credentials

		n, oobn, _, _, err := unix.Recvmsg(c.fd, header, oob, 0)
		if err != nil || n == 0 {
			return
		}
		fds, creds := parseAncillary(oob[:oobn])
		if n < transport.HeaderSize {
			closeAll(fds)
			return
		}
		length, err := transport.DecodeHeader(header[:transport.HeaderSize])
		if err != nil {
			closeAll(fds)
			return
		}

		payload := make([]byte, length)
		if length > 0 {
			if _, err := readFull(c.file, payload); err != nil {
				closeAll(fds)
				return
			}
		}

		if err := handler(c, payload, fds, creds); err != nil {
			closeAll(fds)
			return
		}
	}
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("transport: short read")
		}
	}
	return total, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}

func parseAncillary(oob []byte) (fds []int, creds transport.Credentials) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, creds
	}
	for _, msg := range msgs {
		if rights, err := unix.ParseUnixRights(&msg); err == nil {
			fds = append(fds, rights...)
			continue
		}
		if cred, err := unix.ParseUnixCredentials(&msg); err == nil {
			creds = transport.Credentials{PID: cred.Pid, UID: cred.Uid, GID: cred.Gid}
		}
	}
	return fds, creds
}
