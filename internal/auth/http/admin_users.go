package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// AdminUsersHandler is the admin CRUD surface for accounts. Routes sit
// behind RequireActive and the admin role gate.
type AdminUsersHandler struct {
	Users *service.UserService
}

type userResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Active           bool       `json:"active"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	FailedAttempts   int        `json:"failed_attempts"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	Roles            []string   `json:"roles"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (h *AdminUsersHandler) userBody(r *http.Request, u domain.User) userResponse {
	slugs, err := h.Users.RoleSlugs(r.Context(), u.ID)
	if err != nil {
		slugs = nil
	}
	return userResponse{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Active:           u.Active,
		TwoFactorEnabled: u.TwoFactorEnabled,
		FailedAttempts:   u.FailedAttempts,
		LockedUntil:      u.LockedUntil,
		LastLoginAt:      u.LastLoginAt,
		Roles:            slugs,
		CreatedAt:        u.CreatedAt,
	}
}

// HandleList handles GET /v1/admin/users with optional search, limit and
// offset query parameters.
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	search := r.URL.Query().Get("search")

	users, err := h.Users.List(ctx, search, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, h.userBody(r, u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// HandleGet handles GET /v1/admin/users/{id}.
func (h *AdminUsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.userBody(r, user))
}

// HandleCreate handles POST /v1/admin/users.
func (h *AdminUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string   `json:"email"`
		Name     string   `json:"name"`
		Password string   `json:"password"`
		Active   bool     `json:"active"`
		RoleIDs  []string `json:"role_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeBadRequest(w, "email, name and password are required")
		return
	}

	user, err := h.Users.Create(ctx, service.CreateUserInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Active:   req.Active,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "email_taken"})
			return
		}
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, h.userBody(r, user))
}

// HandleUpdate handles PATCH /v1/admin/users/{id}. Absent fields are left
// untouched; role_ids, when present, replaces the whole assignment set.
func (h *AdminUsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var req struct {
		Email    *string  `json:"email"`
		Name     *string  `json:"name"`
		Password *string  `json:"password"`
		Active   *bool    `json:"active"`
		RoleIDs  []string `json:"role_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	upd := domain.UserUpdate{Email: req.Email, Name: req.Name, Active: req.Active}
	user, err := h.Users.UpdateWithPassword(ctx, id, upd, req.Password, req.RoleIDs)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		case errors.Is(err, store.ErrAlreadyExists):
			httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "email_taken"})
		default:
			writeError(w, err)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.userBody(r, user))
}

// HandleUnlock handles POST /v1/admin/users/{id}/unlock, clearing a
// triggered account lock.
func (h *AdminUsersHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Unlock(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

// HandleDelete handles DELETE /v1/admin/users/{id}.
func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
