package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"opsdeck/internal/app/registry"
	"opsdeck/internal/app/server/sse"
	"opsdeck/internal/app/server/ws"
	"opsdeck/internal/config"
	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
	"opsdeck/pkg/logging"
	"opsdeck/pkg/middleware"
)

// StreamHandler terminates both live feeds: the SSE endpoint browsers attach
// to via EventSource and the WebSocket alternative for clients that want a
// bidirectional socket. Both feed the same registry.
type StreamHandler struct {
	hub      *registry.Registry
	presence contracts.PresenceStore
	cfg      *config.StreamConfig
}

func NewStreamHandler(hub *registry.Registry, presence contracts.PresenceStore, cfg *config.StreamConfig) *StreamHandler {
	return &StreamHandler{
		hub:      hub,
		presence: presence,
		cfg:      cfg,
	}
}

// ventureFor resolves the optional venture_id query parameter against the
// caller's scope. Zero means the client opted out of venture broadcasts.
func ventureFor(r *http.Request, user domain.SessionUser) (int64, bool) {
	ventureID := queryInt64(r, "venture_id")
	if ventureID == 0 {
		return 0, true
	}
	return ventureID, domain.ScopeFor(user).CanAccessVenture(ventureID)
}

func (h *StreamHandler) SSE(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	ventureID, allowed := ventureFor(r, user)
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := sse.NewConn(r.Context(), w, h.cfg.Buffer, h.cfg.Heartbeat)
	if err != nil {
		log.ErrorContext(r.Context(), "stream handler - sse - streaming unsupported", logging.UserID(user.ID))
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := h.hub.Register(user.ID, ventureID, conn)
	defer h.hub.Unregister(client)
	log.InfoContext(r.Context(), "stream handler - sse - connected",
		logging.UserID(user.ID), logging.VentureID(ventureID), logging.ConnectionID(client.ID().String()))

	go h.keepPresence(r.Context(), conn.Done(), ventureID, user.ID)

	// Blocks until the client goes away or the server shuts down.
	conn.Serve()
	log.InfoContext(r.Context(), "stream handler - sse - disconnected",
		logging.UserID(user.ID), logging.ConnectionID(client.ID().String()))
}

func (h *StreamHandler) WS(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int64("user.id", user.ID))

	ventureID, allowed := ventureFor(r, user)
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	// The socket outlives the HTTP exchange; detach from the request's
	// cancellation but keep its values (logger, trace).
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "stream handler - ws - upgrade failed", "err", err)
		return
	}
	defer wsConn.Close()
	wsConn.SetCloseHandler(func(code int, text string) error {
		cancel()
		return nil
	})

	conn := ws.NewConn(ctx, wsConn, h.cfg.Buffer)
	client := h.hub.Register(user.ID, ventureID, conn)
	defer h.hub.Unregister(client)
	log.InfoContext(ctx, "stream handler - ws - connected",
		logging.UserID(user.ID), logging.VentureID(ventureID), logging.ConnectionID(client.ID().String()))

	go h.keepPresence(ctx, conn.Done(), ventureID, user.ID)

	// Blocks until the peer closes or errors; inbound frames are discarded,
	// the socket is push-only.
	conn.ReadLoop()
	conn.Close()
	log.InfoContext(ctx, "stream handler - ws - disconnected", logging.UserID(user.ID))
}

// keepPresence refreshes the dispatcher presence set for as long as the
// connection lives, then removes the entry on clean disconnect. Presence is
// advisory; failures are logged and never tear the stream down.
func (h *StreamHandler) keepPresence(ctx context.Context, done <-chan struct{}, ventureID, userID int64) {
	if ventureID == 0 {
		return
	}
	log := logging.FromContext(ctx)
	ttl := h.cfg.PresenceTTL
	if err := h.presence.MarkOnline(ctx, ventureID, userID, ttl); err != nil {
		log.WarnContext(ctx, "stream handler - presence - mark online failed", logging.UserID(userID), "err", err)
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			if err := h.presence.MarkOffline(offCtx, ventureID, userID); err != nil {
				log.WarnContext(offCtx, "stream handler - presence - mark offline failed", logging.UserID(userID), "err", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := h.presence.MarkOnline(ctx, ventureID, userID, ttl); err != nil {
				log.WarnContext(ctx, "stream handler - presence - refresh failed", logging.UserID(userID), "err", err)
			}
		}
	}
}
