// Package reactor implements the single-threaded, epoll-driven event loop:
// one goroutine, non-blocking sockets, and the listening-socket/timer-
// descriptor/client-socket triad the reference epoll server (see
// DESIGN.md) demonstrates with raw syscalls, ported here onto
// golang.org/x/sys/unix for timerfd support.
package reactor

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"reactorkv/internal/buffer"
	"reactorkv/internal/engine"
	"reactorkv/internal/resp"
	"reactorkv/internal/stats"
	"reactorkv/internal/timer"
)

// maxEvents is the default size of the EpollWait readiness batch.
const maxEvents = 128

// pollTimeoutMs bounds each EpollWait so that Run notices a Shutdown made
// from another goroutine within that many milliseconds, even when no
// descriptor becomes ready.
const pollTimeoutMs = 100

// Option configures a Reactor at construction, following the teacher's
// functional-options constructor pattern.
type Option func(*Reactor)

// WithMaxEvents overrides the default EpollWait batch size.
func WithMaxEvents(n int) Option {
	return func(r *Reactor) { r.maxEvents = n }
}

// Reactor owns the epoll instance, the listening socket, and every open
// client connection. All of its methods run on the single goroutine that
// calls Run.
type Reactor struct {
	epfd     int
	listenFd int

	engine *engine.Engine
	wheel  *timer.Wheel
	stats  *stats.Stats

	conns map[int]*connection

	maxEvents int
	stopped   bool
}

// New creates the listening socket and the epoll instance, registering both
// the listener and the timer wheel's descriptor, but does not yet accept
// connections — call Run to enter the event loop.
func New(addr string, eng *engine.Engine, wheel *timer.Wheel, counters *stats.Stats, opts ...Option) (*Reactor, error) {
	r := &Reactor{
		engine:    eng,
		wheel:     wheel,
		stats:     counters,
		conns:     make(map[int]*connection),
		maxEvents: maxEvents,
	}
	for _, opt := range opts {
		opt(r)
	}

	listenFd, err := listenTCP(addr)
	if err != nil {
		return nil, err
	}
	r.listenFd = listenFd

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(listenFd)
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	r.epfd = epfd

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listenFd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLET,
		Fd:     int32(listenFd),
	}); err != nil {
		r.closeFDs()
		return nil, fmt.Errorf("reactor: register listener: %w", err)
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wheel.Fd(), &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wheel.Fd()),
	}); err != nil {
		r.closeFDs()
		return nil, fmt.Errorf("reactor: register timer: %w", err)
	}

	return r, nil
}

// listenTCP binds addr ("host:port" or ":port"), sets SO_REUSEADDR, marks
// the socket non-blocking, and starts listening with the platform maximum
// backlog.
func listenTCP(addr string) (int, error) {
	sa, err := resolveTCPAddr(addr)
	if err != nil {
		return -1, fmt.Errorf("reactor: resolve %s: %w", addr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("reactor: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: bind: %w", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("reactor: set non-blocking: %w", err)
	}
	return fd, nil
}

// Addr returns the address the listening socket is actually bound to,
// useful when New was called with a ":0" port and the caller (tests,
// mainly) needs to discover the kernel-assigned port.
func (r *Reactor) Addr() (string, error) {
	sa, err := unix.Getsockname(r.listenFd)
	if err != nil {
		return "", err
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", fmt.Errorf("reactor: unexpected sockaddr type %T", sa)
	}
	return fmt.Sprintf("127.0.0.1:%d", in4.Port), nil
}

// Run blocks, servicing readiness events until Shutdown is called from
// another invocation path (e.g. a signal handler run before Run returns
// control — Bootstrap is expected to call Shutdown from a separate
// goroutine and wait for Run to return).
func (r *Reactor) Run() error {
	events := make([]unix.EpollEvent, r.maxEvents)
	for {
		n, err := unix.EpollWait(r.epfd, events, pollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if r.stopped {
				return nil
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}
		if r.stopped {
			return nil
		}
		for i := 0; i < n; i++ {
			r.handleEvent(events[i])
		}
	}
}

func (r *Reactor) handleEvent(ev unix.EpollEvent) {
	fd := int(ev.Fd)
	switch {
	case fd == r.listenFd:
		r.acceptLoop()
	case fd == r.wheel.Fd():
		r.wheel.ProcessReady()
	default:
		conn, ok := r.conns[fd]
		if !ok {
			return
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			r.flushWrite(conn)
		}
		if r.conns[fd] == nil {
			return // the write flush above may have closed the connection
		}
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0 {
			r.handleReadable(conn)
		}
	}
}

// acceptLoop accepts every pending connection until the kernel reports no
// more are queued, required because the listener is registered
// edge-triggered.
func (r *Reactor) acceptLoop() {
	for {
		connFd, _, err := unix.Accept(r.listenFd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			return
		}
		if err := unix.SetNonblock(connFd, true); err != nil {
			unix.Close(connFd)
			continue
		}
		if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, connFd, &unix.EpollEvent{
			Events: unix.EPOLLIN | unix.EPOLLET | unix.EPOLLRDHUP,
			Fd:     int32(connFd),
		}); err != nil {
			unix.Close(connFd)
			continue
		}
		r.conns[connFd] = newConnection(connFd)
		r.stats.ClientConnected()
	}
}

// handleReadable drains the socket into the connection's buffer and then
// drives the per-connection parse loop (§4.8).
func (r *Reactor) handleReadable(conn *connection) {
	for {
		n, err := conn.in.ReadFrom(conn.fd)
		if err != nil {
			if errors.Is(err, buffer.ErrWouldBlock) {
				break
			}
			r.closeConnection(conn)
			return
		}
		if n == 0 {
			r.closeConnection(conn)
			return
		}
	}
	r.drainRequests(conn)
}

// drainRequests parses and executes as many complete requests as the
// connection's buffer currently holds, writing each reply before moving to
// the next (replies are assumed small enough to fit the kernel send buffer
// per §5; a short write spills into conn.out and registers EPOLLOUT).
func (r *Reactor) drainRequests(conn *connection) {
	for {
		v, consumed, perr := resp.Parse(conn.in.Bytes())
		if perr != nil {
			if resp.IsIncomplete(perr) {
				return
			}
			r.writeNow(conn, resp.Serialize(resp.NewError(fmt.Sprintf("ERR Protocol error: %v", perr))))
			r.closeConnection(conn)
			return
		}
		conn.in.Retrieve(consumed)
		reply := r.dispatchFramed(conn, v)
		r.writeNow(conn, reply)
		if conn.closing {
			return
		}
	}
}

// dispatchFramed implements the MULTI/EXEC/DISCARD state machine layered
// on top of engine.Execute/ExecuteTransaction.
func (r *Reactor) dispatchFramed(conn *connection, v resp.Value) []byte {
	name, _, ok := v.AsCommand()
	upper := ""
	if ok {
		upper = strings.ToUpper(name)
	}

	switch upper {
	case "MULTI":
		if conn.state == inTransactionState {
			return resp.Serialize(resp.NewError("ERR MULTI calls can not be nested"))
		}
		conn.state = inTransactionState
		conn.queue = nil
		return resp.Serialize(resp.NewSimpleString("OK"))

	case "EXEC":
		if conn.state != inTransactionState {
			return resp.Serialize(resp.NewError("ERR EXEC without MULTI"))
		}
		reply := r.engine.ExecuteTransaction(conn.queue)
		conn.state = normalState
		conn.queue = nil
		return reply

	case "DISCARD":
		if conn.state != inTransactionState {
			return resp.Serialize(resp.NewError("ERR DISCARD without MULTI"))
		}
		conn.state = normalState
		conn.queue = nil
		return resp.Serialize(resp.NewSimpleString("OK"))

	default:
		if conn.state == inTransactionState {
			conn.queue = append(conn.queue, v)
			return resp.Serialize(resp.NewSimpleString("QUEUED"))
		}
		return r.engine.Execute(v, false)
	}
}

// writeNow attempts to write data immediately; on EAGAIN (or a short
// write) the remainder is buffered and the connection is registered for
// EPOLLOUT. Any other write error closes the connection.
func (r *Reactor) writeNow(conn *connection, data []byte) {
	if len(conn.out) > 0 {
		conn.out = append(conn.out, data...)
		return
	}
	n, err := unix.Write(conn.fd, data)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			n = 0
		} else {
			r.closeConnection(conn)
			return
		}
	}
	if n < len(data) {
		conn.out = append([]byte(nil), data[n:]...)
		r.registerWritable(conn)
	}
}

func (r *Reactor) flushWrite(conn *connection) {
	if len(conn.out) == 0 {
		return
	}
	n, err := unix.Write(conn.fd, conn.out)
	if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		r.closeConnection(conn)
		return
	}
	conn.out = conn.out[n:]
	if len(conn.out) == 0 {
		r.unregisterWritable(conn)
		if conn.closing {
			r.closeConnection(conn)
		}
	}
}

func (r *Reactor) registerWritable(conn *connection) {
	if conn.wantWrite {
		return
	}
	conn.wantWrite = true
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, conn.fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLET | unix.EPOLLRDHUP,
		Fd:     int32(conn.fd),
	})
}

func (r *Reactor) unregisterWritable(conn *connection) {
	if !conn.wantWrite {
		return
	}
	conn.wantWrite = false
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, conn.fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLET | unix.EPOLLRDHUP,
		Fd:     int32(conn.fd),
	})
}

// closeConnection tears down one client connection: if output is still
// pending it defers the actual close until flushWrite drains it, matching
// "best-effort" reply delivery ahead of a requested close.
func (r *Reactor) closeConnection(conn *connection) {
	if len(conn.out) > 0 && !conn.closing {
		conn.closing = true
		return
	}
	delete(r.conns, conn.fd)
	unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, conn.fd, nil)
	unix.Close(conn.fd)
	r.stats.ClientDisconnected()
}

// Shutdown closes every client socket, the listening socket, and the epoll
// instance. The Timer Wheel and the durability log are owned by Bootstrap
// and are closed separately, then their errors combined with this one via
// go.uber.org/multierr.
func (r *Reactor) Shutdown() error {
	r.stopped = true
	for _, conn := range r.conns {
		unix.Close(conn.fd)
	}
	r.conns = make(map[int]*connection)
	return r.closeFDs()
}

func (r *Reactor) closeFDs() error {
	var firstErr error
	if r.listenFd != 0 {
		if err := unix.Close(r.listenFd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.epfd != 0 {
		if err := unix.Close(r.epfd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
