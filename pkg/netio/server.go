// Package netio provides a message-oriented TCP server and client built
// on the wire framing layer. Socket goroutines hand decoded messages to
// application code through deques: reader goroutines push inbound
// messages, Update drains them on the caller's goroutine, and writer
// goroutines drain per-connection outbound deques.
package netio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ajrodado/workcrew/pkg/deque"
	"github.com/ajrodado/workcrew/pkg/objpool"
	"github.com/ajrodado/workcrew/pkg/wire"
)

// Predefined errors
var (
	// ErrAlreadyStarted indicates Start was called twice
	ErrAlreadyStarted = errors.New("netio: server already started")

	// ErrNotStarted indicates the server has not been started
	ErrNotStarted = errors.New("netio: server not started")

	// ErrUnknownClient indicates a send to an unknown or gone client
	ErrUnknownClient = errors.New("netio: unknown client")

	// ErrAlreadyConnected indicates Connect was called on a live client
	ErrAlreadyConnected = errors.New("netio: client already connected")

	// ErrNotConnected indicates the client has no live connection
	ErrNotConnected = errors.New("netio: client not connected")
)

// ClientID identifies one accepted connection for the lifetime of the
// server. IDs are assigned monotonically and never reused.
type ClientID int64

// ServerAction handles one inbound message on the Update goroutine.
type ServerAction func(id ClientID, msg *wire.Message)

// serverInbound pairs a decoded message with its origin
type serverInbound struct {
	id  ClientID
	msg *wire.Message
}

// serverConn is one accepted connection with its outbound deque
type serverConn struct {
	id       ClientID
	conn     net.Conn
	outbound *deque.Deque[*wire.Message]
	limiter  *rate.Limiter

	closeOnce sync.Once
}

// teardown closes the outbound deque and the socket, waking the writer
// goroutine and failing the reader. Idempotent.
func (c *serverConn) teardown() {
	c.closeOnce.Do(func() {
		c.outbound.Close()
		c.conn.Close()
	})
}

// Server accepts TCP connections and exchanges framed messages with any
// number of clients. Inbound messages accumulate on a shared deque until
// the application drains them via Update; outbound messages are queued
// per connection and written by dedicated goroutines.
type Server struct {
	opts options

	actionsMu sync.RWMutex
	actions   map[int32]ServerAction

	connsMu sync.RWMutex
	conns   map[ClientID]*serverConn
	nextID  int64

	listener net.Listener
	inbound  *deque.Deque[serverInbound]

	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	started  int32
	stopOnce sync.Once

	framePool *objpool.Pool[*[]byte]
}

// NewServer creates an unstarted server.
func NewServer(opts ...Option) *Server {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Server{
		opts:      o,
		actions:   make(map[int32]ServerAction),
		conns:     make(map[ClientID]*serverConn),
		inbound:   deque.New[serverInbound](),
		framePool: newFramePool(),
	}
}

func newFramePool() *objpool.Pool[*[]byte] {
	return objpool.New(
		func() *[]byte {
			b := make([]byte, 0, 4096)
			return &b
		},
		func(b *[]byte) { *b = (*b)[:0] },
	)
}

// Start begins listening on addr and accepting connections. Returns
// ErrAlreadyStarted on a second call.
func (s *Server) Start(addr string) error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		atomic.StoreInt32(&s.started, 0)
		return fmt.Errorf("netio: listen %s: %w", addr, err)
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.group.Go(s.acceptLoop)

	s.opts.logger.Info("server listening", slog.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, nil before Start.
func (s *Server) Addr() net.Addr {
	if atomic.LoadInt32(&s.started) == 0 || s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// DefineAction registers the handler for one message type, replacing any
// previous handler. Messages of unregistered types are dropped by Update.
func (s *Server) DefineAction(msgType int32, fn ServerAction) {
	s.actionsMu.Lock()
	s.actions[msgType] = fn
	s.actionsMu.Unlock()
}

// SendTo queues msg for delivery to one client. Returns ErrUnknownClient
// for unknown or disconnected clients.
func (s *Server) SendTo(msg *wire.Message, id ClientID) error {
	s.connsMu.RLock()
	c, ok := s.conns[id]
	s.connsMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownClient, id)
	}
	if err := c.outbound.PushBack(msg); err != nil {
		// Connection tore down between lookup and push.
		return fmt.Errorf("%w: %d", ErrUnknownClient, id)
	}
	return nil
}

// SendToMany queues msg for each listed client, best effort. The returned
// error aggregates every failed recipient.
func (s *Server) SendToMany(msg *wire.Message, ids []ClientID) error {
	var errs []error
	for _, id := range ids {
		if err := s.SendTo(msg, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcast queues msg for every currently connected client.
func (s *Server) Broadcast(msg *wire.Message) {
	s.connsMu.RLock()
	conns := make([]*serverConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	for _, c := range conns {
		// Best effort; a closing connection just misses the broadcast.
		_ = c.outbound.PushBack(msg)
	}
}

// Update drains the inbound deque on the calling goroutine, dispatching
// each message to its registered action. Returns ErrNotStarted before
// Start; after Stop it drains whatever remains and returns nil.
func (s *Server) Update() error {
	if atomic.LoadInt32(&s.started) == 0 {
		return ErrNotStarted
	}

	for {
		in, err := s.inbound.PopFront()
		if err != nil {
			return nil
		}

		s.actionsMu.RLock()
		fn := s.actions[in.msg.Type()]
		s.actionsMu.RUnlock()

		if fn != nil {
			fn(in.id, in.msg)
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Stop closes the listener and every connection and joins all server
// goroutines. Idempotent; always returns nil after the first completed
// call.
func (s *Server) Stop() error {
	if atomic.LoadInt32(&s.started) == 0 {
		return ErrNotStarted
	}

	s.stopOnce.Do(func() {
		s.cancel()
		s.listener.Close()
		s.inbound.Close()

		s.connsMu.Lock()
		conns := make([]*serverConn, 0, len(s.conns))
		for _, c := range s.conns {
			conns = append(conns, c)
		}
		s.connsMu.Unlock()

		for _, c := range conns {
			c.teardown()
		}
	})

	// Reader/writer goroutines only exit with nil.
	_ = s.group.Wait()
	return nil
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Listener closed by Stop, or a fatal accept failure.
			// Either way the server stops accepting.
			if s.ctx.Err() == nil {
				s.opts.logger.Error("accept failed", slog.Any("error", err))
			}
			return nil
		}

		c := &serverConn{
			id:       ClientID(atomic.AddInt64(&s.nextID, 1)),
			conn:     conn,
			outbound: deque.New[*wire.Message](),
		}
		if s.opts.inboundLimit > 0 {
			c.limiter = rate.NewLimiter(s.opts.inboundLimit, s.opts.inboundBurst)
		}

		// Stop cancels the context before snapshotting s.conns, so checking
		// it under the same lock closes the race: either Stop's snapshot
		// already includes this connection, or the check below sees the
		// cancellation and tears it down here.
		s.connsMu.Lock()
		s.conns[c.id] = c
		stopping := s.ctx.Err() != nil
		if stopping {
			delete(s.conns, c.id)
		}
		s.connsMu.Unlock()

		if stopping {
			c.teardown()
			return nil
		}

		s.opts.logger.Info("client connected",
			slog.Int64("client", int64(c.id)),
			slog.String("remote", conn.RemoteAddr().String()))

		s.group.Go(func() error { return s.readLoop(c) })
		s.group.Go(func() error { return s.writeLoop(c) })
	}
}

func (s *Server) readLoop(c *serverConn) error {
	defer s.dropClient(c)

	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(s.ctx); err != nil {
				return nil
			}
		}

		data, err := wire.ReadFrame(c.conn, s.opts.maxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.opts.logger.Warn("read failed",
					slog.Int64("client", int64(c.id)),
					slog.Any("error", err))
			}
			return nil
		}

		msg, err := s.opts.codec.Decode(data)
		if err != nil {
			s.opts.logger.Warn("decode failed",
				slog.Int64("client", int64(c.id)),
				slog.Any("error", err))
			continue
		}

		if err := s.inbound.PushBack(serverInbound{id: c.id, msg: msg}); err != nil {
			// Server stopping.
			return nil
		}
	}
}

func (s *Server) writeLoop(c *serverConn) error {
	defer s.dropClient(c)

	for {
		msg, err := c.outbound.WaitPopFront()
		if err != nil {
			return nil
		}

		data, err := s.opts.codec.Encode(msg)
		if err != nil {
			s.opts.logger.Warn("encode failed",
				slog.Int64("client", int64(c.id)),
				slog.Any("error", err))
			continue
		}

		buf := s.framePool.Get()
		*buf = wire.AppendFrame((*buf)[:0], data)
		_, werr := c.conn.Write(*buf)
		s.framePool.Put(buf)

		if werr != nil {
			if !errors.Is(werr, net.ErrClosed) {
				s.opts.logger.Warn("write failed",
					slog.Int64("client", int64(c.id)),
					slog.Any("error", werr))
			}
			return nil
		}
	}
}

// dropClient unregisters the connection and tears it down. Pending
// outbound messages for a gone client are dropped with the deque.
func (s *Server) dropClient(c *serverConn) {
	s.connsMu.Lock()
	_, present := s.conns[c.id]
	delete(s.conns, c.id)
	s.connsMu.Unlock()

	c.teardown()

	if present && s.ctx.Err() == nil {
		s.opts.logger.Info("client disconnected", slog.Int64("client", int64(c.id)))
	}
}
