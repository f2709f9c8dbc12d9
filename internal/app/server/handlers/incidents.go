package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/middleware"
)

type IncidentHandler struct {
	incidentSvc *services.IncidentService
}

func NewIncidentHandler(i *services.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidentSvc: i}
}

func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	incidents, err := h.incidentSvc.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid incident id", http.StatusBadRequest)
		return
	}
	incident, err := h.incidentSvc.Get(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var in domain.Incident
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, err := h.incidentSvc.Create(r.Context(), user, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *IncidentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid incident id", http.StatusBadRequest)
		return
	}
	var in domain.Incident
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	in.ID = id
	if err := h.incidentSvc.Update(r.Context(), user, &in); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
