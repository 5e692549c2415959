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

	"github.com/ajrodado/workcrew/pkg/deque"
	"github.com/ajrodado/workcrew/pkg/objpool"
	"github.com/ajrodado/workcrew/pkg/retry"
	"github.com/ajrodado/workcrew/pkg/wire"
)

// ClientAction handles one inbound message on the Update goroutine.
type ClientAction func(msg *wire.Message)

// clientSession is one live connection with its handoff deques
type clientSession struct {
	conn     net.Conn
	inbound  *deque.Deque[*wire.Message]
	outbound *deque.Deque[*wire.Message]
	group    errgroup.Group

	closeOnce sync.Once
}

// teardown closes the socket and both deques: the writer wakes on its
// closed outbound deque, the reader fails on the closed socket, and
// Update finds the inbound deque closed once drained. Idempotent.
func (s *clientSession) teardown() {
	s.closeOnce.Do(func() {
		s.conn.Close()
		s.outbound.Close()
		s.inbound.Close()
	})
}

// Client exchanges framed messages with one server. A reader goroutine
// pushes decoded messages onto the inbound deque; Update drains it and
// dispatches registered actions; Send queues onto the outbound deque
// drained by a writer goroutine.
//
// A client can reconnect: Disconnect followed by Connect starts a fresh
// session with empty deques.
type Client struct {
	opts options

	actionsMu sync.RWMutex
	actions   map[int32]ClientAction

	mu        sync.Mutex // guards session lifecycle
	session   *clientSession
	connected int32

	framePool *objpool.Pool[*[]byte]
}

// NewClient creates an unconnected client.
func NewClient(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		opts:      o,
		actions:   make(map[int32]ClientAction),
		framePool: newFramePool(),
	}
}

// Connect dials the server and starts the reader and writer goroutines.
// Returns ErrAlreadyConnected while a session is live.
func (c *Client) Connect(addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && atomic.LoadInt32(&c.connected) == 1 {
		return ErrAlreadyConnected
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("netio: connect %s: %w", addr, err)
	}

	s := &clientSession{
		conn:     conn,
		inbound:  deque.New[*wire.Message](),
		outbound: deque.New[*wire.Message](),
	}
	c.session = s
	atomic.StoreInt32(&c.connected, 1)

	s.group.Go(func() error { return c.readLoop(s) })
	s.group.Go(func() error { return c.writeLoop(s) })

	c.opts.logger.Info("connected", slog.String("addr", addr))
	return nil
}

// ConnectWithRetry dials the server, retrying failed attempts per the
// given policy. An already connected client fails immediately.
func (c *Client) ConnectWithRetry(ctx context.Context, addr string, policy retry.Policy) error {
	return retry.Do(ctx, c.opts.clock, policy, func(ctx context.Context) error {
		err := c.Connect(addr)
		if errors.Is(err, ErrAlreadyConnected) {
			return retry.Permanent(err)
		}
		return err
	})
}

// IsConnected reports whether a session is live.
func (c *Client) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// DefineAction registers the handler for one message type, replacing any
// previous handler. Messages of unregistered types are dropped by Update.
func (c *Client) DefineAction(msgType int32, fn ClientAction) {
	c.actionsMu.Lock()
	c.actions[msgType] = fn
	c.actionsMu.Unlock()
}

// Send queues msg for delivery to the server. Returns ErrNotConnected
// without a live session.
func (c *Client) Send(msg *wire.Message) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil || atomic.LoadInt32(&c.connected) == 0 {
		return ErrNotConnected
	}
	if err := s.outbound.PushBack(msg); err != nil {
		return ErrNotConnected
	}
	return nil
}

// Update drains the inbound deque on the calling goroutine, dispatching
// each message to its registered action. Returns ErrNotConnected before
// the first Connect; after a disconnect it drains whatever remains and
// returns nil.
func (c *Client) Update() error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return ErrNotConnected
	}

	for {
		msg, err := s.inbound.PopFront()
		if err != nil {
			return nil
		}

		c.actionsMu.RLock()
		fn := c.actions[msg.Type()]
		c.actionsMu.RUnlock()

		if fn != nil {
			fn(msg)
		}
	}
}

// Disconnect tears the session down and joins its goroutines. Idempotent;
// pending outbound messages are dropped.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	atomic.StoreInt32(&c.connected, 0)
	s.teardown()

	// Reader/writer goroutines only exit with nil.
	_ = s.group.Wait()
	return nil
}

func (c *Client) readLoop(s *clientSession) error {
	defer c.dropSession(s)

	for {
		data, err := wire.ReadFrame(s.conn, c.opts.maxFrameSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.opts.logger.Warn("read failed", slog.Any("error", err))
			}
			return nil
		}

		msg, err := c.opts.codec.Decode(data)
		if err != nil {
			c.opts.logger.Warn("decode failed", slog.Any("error", err))
			continue
		}

		if err := s.inbound.PushBack(msg); err != nil {
			return nil
		}
	}
}

func (c *Client) writeLoop(s *clientSession) error {
	defer c.dropSession(s)

	for {
		msg, err := s.outbound.WaitPopFront()
		if err != nil {
			return nil
		}

		data, err := c.opts.codec.Encode(msg)
		if err != nil {
			c.opts.logger.Warn("encode failed", slog.Any("error", err))
			continue
		}

		buf := c.framePool.Get()
		*buf = wire.AppendFrame((*buf)[:0], data)
		_, werr := s.conn.Write(*buf)
		c.framePool.Put(buf)

		if werr != nil {
			if !errors.Is(werr, net.ErrClosed) {
				c.opts.logger.Warn("write failed", slog.Any("error", werr))
			}
			return nil
		}
	}
}

// dropSession marks the client disconnected and tears the session down.
// Called by both loops so either side failing ends the session.
func (c *Client) dropSession(s *clientSession) {
	c.mu.Lock()
	if c.session == s {
		atomic.StoreInt32(&c.connected, 0)
	}
	c.mu.Unlock()

	s.teardown()
}
