package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/services"
	"opsdeck/pkg/middleware"
)

type IntelligenceHandler struct {
	intelSvc *services.IntelligenceService
	draftSvc *services.DraftingService
}

func NewIntelligenceHandler(i *services.IntelligenceService, d *services.DraftingService) *IntelligenceHandler {
	return &IntelligenceHandler{intelSvc: i, draftSvc: d}
}

// Report produces the venture-wide freight intelligence rollup: lane risk,
// CSR performance and shipper churn health.
func (h *IntelligenceHandler) Report(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid venture id", http.StatusBadRequest)
		return
	}
	report, err := h.intelSvc.Report(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *IntelligenceHandler) ShipperSnapshot(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid shipper id", http.StatusBadRequest)
		return
	}
	snapshot, err := h.intelSvc.ShipperSnapshot(r.Context(), user, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// DraftSummary asks the assistant for an executive summary of a venture's
// intelligence report. The report itself is computed server-side so the model
// only ever paraphrases numbers the platform produced.
func (h *IntelligenceHandler) DraftSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var req struct {
		VentureID int64 `json:"ventureId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VentureID <= 0 {
		http.Error(w, "ventureId required", http.StatusBadRequest)
		return
	}
	report, err := h.intelSvc.Report(r.Context(), user, req.VentureID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snapshot, err := json.Marshal(report)
	if err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := h.draftSvc.FreightSummary(r.Context(), user, string(snapshot))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": draft})
}

// DraftOutreach asks the assistant for a first-contact carrier email.
func (h *IntelligenceHandler) DraftOutreach(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var req struct {
		CarrierName string `json:"carrierName"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CarrierName == "" {
		http.Error(w, "carrierName required", http.StatusBadRequest)
		return
	}
	draft, err := h.draftSvc.CarrierOutreach(r.Context(), user, req.CarrierName, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": draft})
}
