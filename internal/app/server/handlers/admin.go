package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/middleware"
)

// AdminHandler exposes the org-structure CRUD: ventures, offices, carriers,
// plus the audit trail view.
type AdminHandler struct {
	adminSvc *services.AdminService
}

func NewAdminHandler(a *services.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: a}
}

func (h *AdminHandler) ListVentures(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	ventures, err := h.adminSvc.ListVentures(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ventures": ventures})
}

func (h *AdminHandler) GetVenture(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid venture id", http.StatusBadRequest)
		return
	}
	v, err := h.adminSvc.GetVenture(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *AdminHandler) CreateVenture(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var v domain.Venture
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, err := h.adminSvc.CreateVenture(r.Context(), user, &v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandler) UpdateVenture(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid venture id", http.StatusBadRequest)
		return
	}
	var v domain.Venture
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	v.ID = id
	if err := h.adminSvc.UpdateVenture(r.Context(), user, &v); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) DeleteVenture(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid venture id", http.StatusBadRequest)
		return
	}
	if err := h.adminSvc.DeleteVenture(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ListOffices(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	offices, err := h.adminSvc.ListOffices(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offices": offices})
}

func (h *AdminHandler) GetOffice(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid office id", http.StatusBadRequest)
		return
	}
	o, err := h.adminSvc.GetOffice(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) CreateOffice(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var o domain.Office
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, err := h.adminSvc.CreateOffice(r.Context(), user, &o)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandler) UpdateOffice(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid office id", http.StatusBadRequest)
		return
	}
	var o domain.Office
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	o.ID = id
	if err := h.adminSvc.UpdateOffice(r.Context(), user, &o); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) DeleteOffice(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid office id", http.StatusBadRequest)
		return
	}
	if err := h.adminSvc.DeleteOffice(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	carriers, err := h.adminSvc.ListCarriers(r.Context(), user, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"carriers": carriers})
}

func (h *AdminHandler) GetCarrier(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid carrier id", http.StatusBadRequest)
		return
	}
	c, err := h.adminSvc.GetCarrier(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *AdminHandler) CreateCarrier(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var c domain.Carrier
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	id, err := h.adminSvc.CreateCarrier(r.Context(), user, &c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *AdminHandler) UpdateCarrier(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid carrier id", http.StatusBadRequest)
		return
	}
	var c domain.Carrier
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	c.ID = id
	if err := h.adminSvc.UpdateCarrier(r.Context(), user, &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminHandler) DeleteCarrier(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid carrier id", http.StatusBadRequest)
		return
	}
	if err := h.adminSvc.DeleteCarrier(r.Context(), user, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	events, err := h.adminSvc.AuditTrail(r.Context(), user, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
