package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/internal/auth/service"
	"github.com/aussiebroadwan/gatekeep/internal/auth/store"
	"github.com/aussiebroadwan/gatekeep/pkg/httpx"
)

// AdminRolesHandler is the admin CRUD surface for roles.
type AdminRolesHandler struct {
	Roles *service.RolesService
}

// HandleList handles GET /v1/admin/roles.
func (h *AdminRolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Roles.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// HandleCreate handles POST /v1/admin/roles.
func (h *AdminRolesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug        string `json:"slug"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Slug == "" || req.Name == "" {
		writeBadRequest(w, "slug and name are required")
		return
	}

	role, err := h.Roles.Create(r.Context(), req.Slug, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "slug_taken"})
			return
		}
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, role)
}

// HandleUpdate handles PATCH /v1/admin/roles/{id}.
func (h *AdminRolesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug        *string `json:"slug"`
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	role, err := h.Roles.Update(r.Context(), r.PathValue("id"), domain.RoleUpdate{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		case errors.Is(err, store.ErrAlreadyExists):
			httpx.WriteJSON(w, http.StatusConflict, map[string]string{"error": "slug_taken"})
		default:
			writeError(w, err)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, role)
}

// HandleDelete handles DELETE /v1/admin/roles/{id}.
func (h *AdminRolesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Roles.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
