package sse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	ErrStreamUnsupported = errors.New("response writer does not support flushing")
	errStreamClosed      = errors.New("stream closed")
	errBufferFull        = errors.New("stream buffer full")
)

// Conn is one server-sent-events stream. Pushes go through a buffered out
// channel consumed by a single write loop on the handler goroutine, so frames
// never interleave. A full buffer drops the frame rather than blocking the
// producer.
type Conn struct {
	ctx       context.Context
	cancel    context.CancelFunc
	w         http.ResponseWriter
	flusher   http.Flusher
	out       chan []byte
	heartbeat time.Duration
	once      sync.Once
}

func NewConn(parent context.Context, w http.ResponseWriter, buffer int, heartbeat time.Duration) (*Conn, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamUnsupported
	}
	if buffer < 1 {
		buffer = 64
	}
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	return &Conn{
		ctx:       ctx,
		cancel:    cancel,
		w:         w,
		flusher:   flusher,
		out:       make(chan []byte, buffer),
		heartbeat: heartbeat,
	}, nil
}

// Write enqueues one serialized envelope. Never blocks.
func (c *Conn) Write(data []byte) error {
	select {
	case <-c.ctx.Done():
		return errStreamClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	default:
		return errBufferFull
	}
}

func (c *Conn) Close() {
	c.once.Do(func() {
		c.cancel()
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Serve owns the response writer until the client disconnects: emits the
// initial connected event, then notification frames and keep-alive comments.
// Must run on the handler goroutine.
func (c *Conn) Serve() {
	defer c.Close()

	h := c.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.w.WriteHeader(http.StatusOK)

	fmt.Fprint(c.w, "event: connected\ndata: {}\n\n")
	c.flusher.Flush()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if _, err := fmt.Fprintf(c.w, "event: dispatch_notification\ndata: %s\n\n", data); err != nil {
				return
			}
			c.flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(c.w, ":ping\n\n"); err != nil {
				return
			}
			c.flusher.Flush()
		}
	}
}
