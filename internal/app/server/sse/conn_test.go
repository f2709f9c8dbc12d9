package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noFlushWriter exposes only the base ResponseWriter surface so the flusher
// type assertion fails.
type noFlushWriter struct {
	rec *httptest.ResponseRecorder
}

func (w noFlushWriter) Header() http.Header         { return w.rec.Header() }
func (w noFlushWriter) Write(b []byte) (int, error) { return w.rec.Write(b) }
func (w noFlushWriter) WriteHeader(code int)        { w.rec.WriteHeader(code) }

func TestNewConnRequiresFlusher(t *testing.T) {
	t.Parallel()
	_, err := NewConn(context.Background(), noFlushWriter{httptest.NewRecorder()}, 8, time.Second)
	assert.ErrorIs(t, err, ErrStreamUnsupported)
}

func TestServeEmitsConnectedThenFrames(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := NewConn(ctx, rec, 8, time.Hour)
	require.NoError(t, err)

	require.NoError(t, conn.Write([]byte(`{"type":"NEW_MESSAGE"}`)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn.Serve()
	}()

	// Give the serve loop a moment to drain, then end the stream.
	time.Sleep(50 * time.Millisecond)
	conn.Close()
	wg.Wait()

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, body, "event: connected\ndata: {}\n\n")
	assert.Contains(t, body, "event: dispatch_notification\ndata: {\"type\":\"NEW_MESSAGE\"}\n\n")
}

func TestServeHeartbeat(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	conn, err := NewConn(context.Background(), rec, 8, 20*time.Millisecond)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn.Serve()
	}()

	time.Sleep(80 * time.Millisecond)
	conn.Close()
	wg.Wait()

	assert.Contains(t, rec.Body.String(), ":ping\n\n")
}

func TestWriteAfterCloseFails(t *testing.T) {
	t.Parallel()
	conn, err := NewConn(context.Background(), httptest.NewRecorder(), 8, time.Second)
	require.NoError(t, err)
	conn.Close()
	assert.Error(t, conn.Write([]byte("late")))
}

func TestWriteDropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	conn, err := NewConn(context.Background(), httptest.NewRecorder(), 2, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Write([]byte("a")))
	require.NoError(t, conn.Write([]byte("b")))
	// Nothing is draining; the third write must drop, not block.
	assert.Error(t, conn.Write([]byte("c")))
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	conn, err := NewConn(context.Background(), httptest.NewRecorder(), 2, time.Second)
	require.NoError(t, err)
	conn.Close()
	conn.Close()
	select {
	case <-conn.Done():
	default:
		t.Fatal("Done should be closed after Close")
	}
}

func TestNewConnDefaultsHeartbeatAndBuffer(t *testing.T) {
	t.Parallel()
	conn, err := NewConn(context.Background(), httptest.NewRecorder(), 0, 0)
	require.NoError(t, err)
	defer conn.Close()
	// A zero heartbeat would panic the ticker in Serve.
	assert.Equal(t, 25*time.Second, conn.heartbeat)
	assert.Equal(t, 64, cap(conn.out))
}
