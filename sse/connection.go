package sse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ReadyState is the observable state of a connection.
type ReadyState int32

const (
	// StateConnecting means the network call has not produced a readable
	// stream yet.
	StateConnecting ReadyState = iota
	// StateOpen means events are being read.
	StateOpen
	// StateClosed is terminal, whether reached by stream end, error, or an
	// explicit Close.
	StateClosed
)

// String returns the state name.
func (s ReadyState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a connection. OnMessage is mandatory; the other
// callbacks are optional. Callbacks run on the connection's read goroutine
// and may call Close.
type Options struct {
	// Headers are extra request headers. The connection forces
	// Accept: text/event-stream and Cache-Control: no-cache over them.
	Headers map[string]string
	// OnMessage receives each parsed event in arrival order.
	OnMessage func(*Event)
	// OnOpen fires once when the stream becomes readable.
	OnOpen func()
	// OnError receives connect and read failures. The connection closes
	// right after.
	OnError func(error)
	// OnClose fires exactly once when the connection reaches StateClosed.
	OnClose func()
}

// DialFunc performs the streaming network call and returns the response
// body. The connection owns the returned reader exclusively.
type DialFunc func(ctx context.Context) (io.ReadCloser, error)

// Connection is a live SSE connection handle. Close is idempotent and safe
// to call from callbacks or other goroutines.
type Connection struct {
	state  atomic.Int32
	once   sync.Once
	cancel context.CancelFunc
	opts   Options

	mu   sync.Mutex
	body io.ReadCloser
}

// Connect starts a connection. It returns a live handle immediately; the
// network call and read loop run on a background goroutine. Failures after
// this point are delivered through OnError, never returned.
func Connect(ctx context.Context, opts Options, dial DialFunc) (*Connection, error) {
	if opts.OnMessage == nil {
		return nil, errors.New("sse: OnMessage is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Connection{cancel: cancel, opts: opts}
	c.state.Store(int32(StateConnecting))
	go c.run(ctx, dial)
	return c, nil
}

// ReadyState reports the current connection state.
func (c *Connection) ReadyState() ReadyState {
	return ReadyState(c.state.Load())
}

// Close transitions the connection to StateClosed, cancels the underlying
// reader and fires OnClose. Repeat calls are no-ops.
func (c *Connection) Close() {
	c.once.Do(func() {
		c.state.Store(int32(StateClosed))
		c.cancel()
		c.mu.Lock()
		if c.body != nil {
			// Cancellation is best effort.
			_ = c.body.Close()
			c.body = nil
		}
		c.mu.Unlock()
		if c.opts.OnClose != nil {
			c.opts.OnClose()
		}
	})
}

// run performs the dial and drives the read loop.
func (c *Connection) run(ctx context.Context, dial DialFunc) {
	body, err := dial(ctx)
	if err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.ReadyState() == StateClosed {
		// Closed while dialing; release the stream and stop.
		c.mu.Unlock()
		_ = body.Close()
		return
	}
	c.body = body
	c.mu.Unlock()

	if c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		if c.opts.OnOpen != nil {
			c.opts.OnOpen()
		}
	}

	c.readLoop(body)
}

// readLoop accumulates raw bytes and dispatches every complete
// blank-line-delimited frame. Buffering happens at the byte level, so a
// chunk boundary inside a multi-byte character cannot corrupt the decoded
// text: only complete frames are converted to strings.
func (c *Connection) readLoop(body io.ReadCloser) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			c.dispatch(&buf)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || c.ReadyState() == StateClosed {
				c.Close()
				return
			}
			c.fail(err)
			return
		}
	}
}

// dispatch parses and delivers every complete frame in the buffer, leaving
// the trailing partial frame for the next read.
func (c *Connection) dispatch(buf *bytes.Buffer) {
	for {
		i := bytes.Index(buf.Bytes(), []byte("\n\n"))
		if i < 0 {
			return
		}
		block := string(buf.Next(i + 2)[:i])
		if c.ReadyState() == StateClosed {
			return
		}
		if ev, ok := parseEvent(block); ok {
			c.opts.OnMessage(ev)
		}
	}
}

// fail routes an error to OnError and closes, unless already closed.
func (c *Connection) fail(err error) {
	if c.ReadyState() == StateClosed {
		return
	}
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
	c.Close()
}
