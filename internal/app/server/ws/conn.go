package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	errSocketClosed = errors.New("socket closed")
	errBufferFull   = errors.New("socket buffer full")
)

// Conn carries the notification feed over a websocket for clients behind
// SSE-hostile proxies. Same contract as the SSE stream: buffered out channel,
// single write loop, drop on backpressure.
type Conn struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *websocket.Conn
	out    chan []byte
	once   sync.Once
}

func NewConn(parent context.Context, ws *websocket.Conn, buffer int) *Conn {
	if buffer < 1 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Conn{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		out:    make(chan []byte, buffer),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) Write(data []byte) error {
	select {
	case <-c.ctx.Done():
		return errSocketClosed
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
		_ = c.ws.Close()
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Conn) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// ReadLoop drains inbound frames until the peer goes away. The feed is
// one-way; reads exist only to detect disconnects and answer pings.
func (c *Conn) ReadLoop() {
	defer c.Close()
	c.ws.SetReadLimit(32 * 1024)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
