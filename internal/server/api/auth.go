package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"watch-tryon/internal/auth"
	"watch-tryon/internal/store"
)

// AuthHandler handles account registration, login, and profile requests.
type AuthHandler struct {
	store *store.Store
	auth  *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *store.Store, svc *auth.Service) *AuthHandler {
	return &AuthHandler{store: s, auth: svc}
}

// ServeHTTP routes /api/auth/{register,login,me}.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/auth/")

	switch action {
	case "register":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.register(w, r)
	case "login":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.login(w, r)
	case "me":
		switch r.Method {
		case http.MethodGet:
			h.me(w, r)
		case http.MethodPut:
			h.updateMe(w, r)
		case http.MethodDelete:
			h.deleteMe(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

func toUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
	}
}

// register handles POST /api/auth/register.
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username and email are required")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	if _, err := h.store.Users().GetByUsername(req.Username); err == nil {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	if _, err := h.store.Users().GetByEmail(req.Email); err == nil {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
	}
	if err := h.store.Users().Create(user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	token, err := h.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: toUserResponse(user)})
}

// login handles POST /api/auth/login.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := h.store.Users().GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		// Same answer for unknown user and wrong password.
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: toUserResponse(user)})
}

// me handles GET /api/auth/me.
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type updateProfileRequest struct {
	// Pointers so an absent field leaves the stored value alone.
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

// updateMe handles PUT /api/auth/me. Only the fields present in the body
// change.
func (h *AuthHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			writeError(w, http.StatusBadRequest, "Email cannot be empty")
			return
		}
		if other, err := h.store.Users().GetByEmail(email); err == nil && other.ID != user.ID {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		user.Email = email
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}

	if err := h.store.Users().Update(user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// deleteMe handles DELETE /api/auth/me. Cart and wishlist rows cascade.
func (h *AuthHandler) deleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.store.Users().Delete(user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// currentUser resolves the bearer token to its account, answering 401
// itself when it cannot.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*store.User, bool) {
	claims, err := bearerClaims(r, h.auth)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	user, err := h.store.Users().GetByID(claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to load profile")
		return nil, false
	}

	return user, true
}
