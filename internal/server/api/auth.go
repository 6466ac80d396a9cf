package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tablecast/internal/security"
)

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := security.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.CreateUser(req.Email, req.Password); err != nil {
		slog.Error("Register failed", "error", err)
		http.Error(w, "Email already exists or DB error", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "User created"})
}

// HandleVerify checks credentials and issues a session token for the
// dashboard.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.Store.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := security.IssueSessionToken(h.Cfg.JWTSecret, user.ID, user.Email)
	if err != nil {
		slog.Error("Token issue failed", "error", err)
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"token": token,
		"user":  user,
	})
}

type CreateKeyRequest struct {
	Type string `json:"type"` // "live" or "test"
}

func (h *Handler) HandleCreateKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.sessionFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	key, err := h.Store.CreateAPIKey(claims.UserID, req.Type)
	if err != nil {
		slog.Error("Create key failed", "error", err)
		http.Error(w, "Failed to create key", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"key": key, "type": req.Type})
}

func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.sessionFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	keys, err := h.Store.ListAPIKeys(claims.UserID)
	if err != nil {
		slog.Error("List keys failed", "error", err)
		http.Error(w, "Failed to list keys", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(keys)
}
