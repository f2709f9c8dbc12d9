package handlers

import (
	"encoding/json"
	"net/http"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
	"opsdeck/pkg/logging"
	"opsdeck/pkg/middleware"
)

type AuthHandler struct {
	userSvc  *services.UserService
	tokenSvc *services.TokenService
}

func NewAuthHandler(u *services.UserService, t *services.TokenService) *AuthHandler {
	return &AuthHandler{userSvc: u, tokenSvc: t}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.ErrorContext(r.Context(), "auth handler - login - bad request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	user, err := h.userSvc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		log.WarnContext(r.Context(), "auth handler - login - rejected", "email", req.Email)
		writeError(w, r, err)
		return
	}
	token, err := h.tokenSvc.GenerateToken(user)
	if err != nil {
		log.ErrorContext(r.Context(), "auth handler - login - token generation failed", "user_id", user.ID)
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	log.InfoContext(r.Context(), "auth handler - login - success", logging.UserID(user.ID))
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"fullName":   user.FullName,
			"role":       user.Role,
			"ventureIds": user.VentureIDs,
			"officeIds":  user.OfficeIDs,
		},
	})
}

// Me echoes the session identity resolved from the bearer token, plus the
// effective visibility scope the backend will apply.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.SessionUserFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"fullName":   user.FullName,
		"role":       user.Role,
		"roleLabel":  domain.GetRoleConfig(user.Role).Label,
		"ventureIds": user.VentureIDs,
		"officeIds":  user.OfficeIDs,
		"scope":      domain.ScopeFor(user),
	})
}
