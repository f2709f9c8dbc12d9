package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"opsdeck/internal/app/registry"
	"opsdeck/internal/app/server/handlers"
	"opsdeck/internal/config"
	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/middleware"
)

type Server struct {
	mux  *http.ServeMux
	addr string
	log  *slog.Logger
	srv  *http.Server

	tokenSvc *services.TokenService

	authHandler         *handlers.AuthHandler
	streamHandler       *handlers.StreamHandler
	dispatchHandler     *handlers.DispatchHandler
	notificationHandler *handlers.NotificationHandler
	adminHandler        *handlers.AdminHandler
	loadHandler         *handlers.LoadHandler
	incidentHandler     *handlers.IncidentHandler
	incentiveHandler    *handlers.IncentiveHandler
	intelHandler        *handlers.IntelligenceHandler
}

type Services struct {
	Users         *services.UserService
	Token         *services.TokenService
	Dispatch      *services.DispatchService
	Notifications *services.NotificationService
	Admin         *services.AdminService
	Loads         *services.LoadService
	Incidents     *services.IncidentService
	Incentives    *services.IncentiveService
	Intelligence  *services.IntelligenceService
	Drafting      *services.DraftingService
}

func NewServer(
	cfg *config.Config,
	log *slog.Logger,
	svcs Services,
	hub *registry.Registry,
	presence contracts.PresenceStore,
) *Server {
	s := &Server{
		mux:                 http.NewServeMux(),
		addr:                cfg.Service.Addr,
		log:                 log,
		tokenSvc:            svcs.Token,
		authHandler:         handlers.NewAuthHandler(svcs.Users, svcs.Token),
		streamHandler:       handlers.NewStreamHandler(hub, presence, cfg.Stream),
		dispatchHandler:     handlers.NewDispatchHandler(svcs.Dispatch, presence),
		notificationHandler: handlers.NewNotificationHandler(svcs.Notifications),
		adminHandler:        handlers.NewAdminHandler(svcs.Admin),
		loadHandler:         handlers.NewLoadHandler(svcs.Loads),
		incidentHandler:     handlers.NewIncidentHandler(svcs.Incidents),
		incentiveHandler:    handlers.NewIncentiveHandler(svcs.Incentives),
		intelHandler:        handlers.NewIntelligenceHandler(svcs.Intelligence, svcs.Drafting),
	}
	s.routes(cfg.Service.Name)
	return s
}

func (s *Server) routes(app string) {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	logMW := middleware.RequestLogger(s.log)
	trace := middleware.TracerMiddleware(app)

	public := func(h http.HandlerFunc) http.Handler {
		return trace(logMW(h))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return trace(logMW(auth(h)))
	}

	s.mux.Handle("GET /healthz", public(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	s.mux.Handle("POST /api/v1/auth/login", public(s.authHandler.Login))
	s.mux.Handle("POST /api/v1/webhooks/messages", public(s.dispatchHandler.InboundWebhook))

	s.mux.Handle("GET /api/v1/auth/me", protected(s.authHandler.Me))

	// Live feeds
	s.mux.Handle("GET /api/v1/dispatch/stream", protected(s.streamHandler.SSE))
	s.mux.Handle("GET /api/v1/dispatch/ws", protected(s.streamHandler.WS))

	// Dispatch inbox
	s.mux.Handle("GET /api/v1/conversations", protected(s.dispatchHandler.ListInbox))
	s.mux.Handle("GET /api/v1/conversations/{id}", protected(s.dispatchHandler.GetConversation))
	s.mux.Handle("POST /api/v1/conversations/{id}/claim", protected(s.dispatchHandler.Claim))
	s.mux.Handle("POST /api/v1/conversations/{id}/release", protected(s.dispatchHandler.Release))
	s.mux.Handle("POST /api/v1/conversations/{id}/messages", protected(s.dispatchHandler.SendMessage))
	s.mux.Handle("GET /api/v1/dispatch/presence", protected(s.dispatchHandler.Presence))

	// Notifications
	s.mux.Handle("GET /api/v1/notifications", protected(s.notificationHandler.List))
	s.mux.Handle("GET /api/v1/notifications/unread-count", protected(s.notificationHandler.UnreadCount))
	s.mux.Handle("POST /api/v1/notifications/{id}/read", protected(s.notificationHandler.MarkRead))
	s.mux.Handle("POST /api/v1/notifications/read-all", protected(s.notificationHandler.MarkAllRead))

	// Org structure
	s.mux.Handle("GET /api/v1/ventures", protected(s.adminHandler.ListVentures))
	s.mux.Handle("GET /api/v1/ventures/{id}", protected(s.adminHandler.GetVenture))
	s.mux.Handle("POST /api/v1/ventures", protected(s.adminHandler.CreateVenture))
	s.mux.Handle("PUT /api/v1/ventures/{id}", protected(s.adminHandler.UpdateVenture))
	s.mux.Handle("DELETE /api/v1/ventures/{id}", protected(s.adminHandler.DeleteVenture))
	s.mux.Handle("GET /api/v1/offices", protected(s.adminHandler.ListOffices))
	s.mux.Handle("GET /api/v1/offices/{id}", protected(s.adminHandler.GetOffice))
	s.mux.Handle("POST /api/v1/offices", protected(s.adminHandler.CreateOffice))
	s.mux.Handle("PUT /api/v1/offices/{id}", protected(s.adminHandler.UpdateOffice))
	s.mux.Handle("DELETE /api/v1/offices/{id}", protected(s.adminHandler.DeleteOffice))
	s.mux.Handle("GET /api/v1/carriers", protected(s.adminHandler.ListCarriers))
	s.mux.Handle("GET /api/v1/carriers/{id}", protected(s.adminHandler.GetCarrier))
	s.mux.Handle("POST /api/v1/carriers", protected(s.adminHandler.CreateCarrier))
	s.mux.Handle("PUT /api/v1/carriers/{id}", protected(s.adminHandler.UpdateCarrier))
	s.mux.Handle("DELETE /api/v1/carriers/{id}", protected(s.adminHandler.DeleteCarrier))
	s.mux.Handle("GET /api/v1/audit", protected(s.adminHandler.AuditTrail))

	// Loads
	s.mux.Handle("GET /api/v1/loads", protected(s.loadHandler.List))
	s.mux.Handle("GET /api/v1/loads/{id}", protected(s.loadHandler.Get))
	s.mux.Handle("POST /api/v1/loads", protected(s.loadHandler.Create))
	s.mux.Handle("PUT /api/v1/loads/{id}", protected(s.loadHandler.Update))

	// Incidents
	s.mux.Handle("GET /api/v1/incidents", protected(s.incidentHandler.List))
	s.mux.Handle("GET /api/v1/incidents/{id}", protected(s.incidentHandler.Get))
	s.mux.Handle("POST /api/v1/incidents", protected(s.incidentHandler.Create))
	s.mux.Handle("PUT /api/v1/incidents/{id}", protected(s.incidentHandler.Update))

	// Incentives
	s.mux.Handle("GET /api/v1/incentives/preview", protected(s.incentiveHandler.Preview))
	s.mux.Handle("POST /api/v1/incentives/commit", protected(s.incentiveHandler.Commit))
	s.mux.Handle("GET /api/v1/incentives", protected(s.incentiveHandler.AwardsForDay))
	s.mux.Handle("GET /api/v1/incentives/mine", protected(s.incentiveHandler.MyAwards))

	// Freight intelligence and drafting
	s.mux.Handle("GET /api/v1/intelligence/ventures/{id}", protected(s.intelHandler.Report))
	s.mux.Handle("GET /api/v1/intelligence/shippers/{id}", protected(s.intelHandler.ShipperSnapshot))
	s.mux.Handle("POST /api/v1/drafts/summary", protected(s.intelHandler.DraftSummary))
	s.mux.Handle("POST /api/v1/drafts/outreach", protected(s.intelHandler.DraftOutreach))
}

func (s *Server) Start() error {
	// WriteTimeout stays zero: the SSE endpoint holds its response open for
	// the life of the client. Read side is still bounded.
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info("server - start - listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
