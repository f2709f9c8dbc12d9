package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/middleware"
)

type LoadHandler struct {
	loadSvc *services.LoadService
}

func NewLoadHandler(l *services.LoadService) *LoadHandler {
	return &LoadHandler{loadSvc: l}
}

func (h *LoadHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	f := domain.LoadFilter{
		VentureID: queryInt64(r, "venture_id"),
		OfficeID:  queryInt64(r, "office_id"),
		Status:    domain.LoadStatus(r.URL.Query().Get("status")),
		Query:     r.URL.Query().Get("q"),
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "pageSize"),
	}
	loads, total, err := h.loadSvc.List(r.Context(), user, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loads": loads,
		"total": total,
	})
}

func (h *LoadHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid load id", http.StatusBadRequest)
		return
	}
	l, err := h.loadSvc.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *LoadHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var l domain.Load
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, err := h.loadSvc.Create(r.Context(), user, &l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *LoadHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid load id", http.StatusBadRequest)
		return
	}
	var l domain.Load
	if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	l.ID = id
	if err := h.loadSvc.Update(r.Context(), user, &l); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
