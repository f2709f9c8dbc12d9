package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/middleware"
)

type IncentiveHandler struct {
	incentiveSvc *services.IncentiveService
}

func NewIncentiveHandler(i *services.IncentiveService) *IncentiveHandler {
	return &IncentiveHandler{incentiveSvc: i}
}

// managerGate rejects callers who may not run venture-level payout
// operations. Preview replicates the service-side commit check so a manager
// cannot preview awards for ventures outside their scope.
func managerGate(user domain.SessionUser, ventureID int64) error {
	if !domain.IsManagerLike(user.Role) && !domain.IsLeadership(user.Role) {
		return domain.ErrForbidden
	}
	if ventureID != 0 && !domain.ScopeFor(user).CanAccessVenture(ventureID) {
		return domain.ErrForbidden
	}
	return nil
}

// Preview computes a day's awards without persisting anything.
func (h *IncentiveHandler) Preview(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	ventureID := queryInt64(r, "venture_id")
	if ventureID <= 0 {
		http.Error(w, "venture_id required", http.StatusBadRequest)
		return
	}
	if err := managerGate(user, ventureID); err != nil {
		writeError(w, r, err)
		return
	}
	awards, err := h.incentiveSvc.ComputeDay(r.Context(), ventureID, r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}

// Commit persists a day's awards, replacing any prior run for that day.
func (h *IncentiveHandler) Commit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	var req struct {
		VentureID int64  `json:"ventureId"`
		Day       string `json:"day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VentureID <= 0 {
		http.Error(w, "ventureId and day required", http.StatusBadRequest)
		return
	}
	awards, err := h.incentiveSvc.CommitDay(r.Context(), user, req.VentureID, req.Day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}

// AwardsForDay lists one venture's committed awards for a day. Scope is
// enforced by the service.
func (h *IncentiveHandler) AwardsForDay(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	ventureID := queryInt64(r, "venture_id")
	if ventureID <= 0 {
		http.Error(w, "venture_id required", http.StatusBadRequest)
		return
	}
	awards, err := h.incentiveSvc.AwardsForDay(r.Context(), user, ventureID, r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}

// MyAwards lists the caller's own awards in an inclusive day range.
func (h *IncentiveHandler) MyAwards(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.SessionUserFrom(r.Context())
	awards, err := h.incentiveSvc.MyAwards(r.Context(), user, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": awards})
}
