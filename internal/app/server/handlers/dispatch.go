package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/logging"
	"opsdeck/pkg/middleware"
)

type DispatchHandler struct {
	dispatchSvc *services.DispatchService
	presence    contracts.PresenceStore
}

func NewDispatchHandler(d *services.DispatchService, p contracts.PresenceStore) *DispatchHandler {
	return &DispatchHandler{dispatchSvc: d, presence: p}
}

func (h *DispatchHandler) ListInbox(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	f := domain.ConversationFilter{
		Status:   r.URL.Query().Get("status"),
		Channel:  domain.Channel(r.URL.Query().Get("channel")),
		Search:   r.URL.Query().Get("q"),
		Page:     queryInt(r, "page"),
		PageSize: queryInt(r, "pageSize"),
	}
	convs, total, err := h.dispatchSvc.ListInbox(r.Context(), user, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": convs,
		"total":         total,
	})
}

func (h *DispatchHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	conv, msgs, err := h.dispatchSvc.GetConversation(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     msgs,
	})
}

func (h *DispatchHandler) Claim(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	if err := h.dispatchSvc.Claim(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

func (h *DispatchHandler) Release(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	if err := h.dispatchSvc.Release(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

func (h *DispatchHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == "" {
		http.Error(w, "message body required", http.StatusBadRequest)
		return
	}
	msg, err := h.dispatchSvc.SendMessage(r.Context(), user, id, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Presence lists the dispatchers currently online for a venture.
func (h *DispatchHandler) Presence(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	ventureID := queryInt64(r, "venture_id")
	if ventureID <= 0 {
		http.Error(w, "venture_id required", http.StatusBadRequest)
		return
	}
	if !domain.ScopeFor(user).CanAccessVenture(ventureID) {
		writeError(w, r, domain.ErrForbidden)
		return
	}
	ids, err := h.presence.OnlineDispatchers(r.Context(), ventureID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"online": ids})
}

// InboundWebhook receives carrier-side messages from the upstream messaging
// provider. It always answers 200 on accepted payloads, including duplicate
// redeliveries, so the provider stops retrying.
func (h *DispatchHandler) InboundWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	var req struct {
		VentureID  int64  `json:"ventureId"`
		Channel    string `json:"channel"`
		From       string `json:"from"`
		To         string `json:"to"`
		Body       string `json:"body"`
		ExternalID string `json:"externalId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.VentureID <= 0 || req.From == "" || req.ExternalID == "" {
		http.Error(w, "ventureId, from and externalId are required", http.StatusBadRequest)
		return
	}
	in := services.InboundMessage{
		VentureID:   req.VentureID,
		Channel:     domain.Channel(req.Channel),
		FromAddress: req.From,
		ToAddress:   req.To,
		Body:        req.Body,
		ExternalID:  req.ExternalID,
	}
	if err := h.dispatchSvc.HandleInbound(r.Context(), in); err != nil {
		log.ErrorContext(r.Context(), "dispatch handler - inbound webhook - failed", "external_id", req.ExternalID, "err", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
