package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quality-backend/internal/service"
)

// RevisionHandler handles revision lifecycle requests
type RevisionHandler struct {
	revisionService *service.RevisionService
}

// NewRevisionHandler creates a new revision handler
func NewRevisionHandler(revisionService *service.RevisionService) *RevisionHandler {
	return &RevisionHandler{revisionService: revisionService}
}

// revisionError maps service errors to HTTP status codes
func revisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRevisionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrRevisionFinalized),
		errors.Is(err, service.ErrRevisionNotFinalized),
		errors.Is(err, service.ErrOpenRevisionExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidDelta):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetOpenRevision retrieves the open revision for a production order
// @Summary Get open revision
// @Description Get the single open revision for a production order, with sessions, defects and inspectors
// @Tags Revisions
// @Produce json
// @Security BearerAuth
// @Param op query string true "Production order code"
// @Success 200 {object} models.RevisionWithDetails
// @Failure 400 {object} map[string]string "Missing op parameter"
// @Failure 404 {object} map[string]string "No open revision"
// @Router /quality/revisions/open [get]
func (h *RevisionHandler) GetOpenRevision(w http.ResponseWriter, r *http.Request) {
	opCode := r.URL.Query().Get("op")
	if opCode == "" {
		http.Error(w, "Missing op parameter", http.StatusBadRequest)
		return
	}

	revision, err := h.revisionService.FindOpenByOP(opCode)
	if err != nil {
		revisionError(w, err)
		return
	}

	JSONResponse(w, revision)
}

// SaveProgress applies one progress save
// @Summary Save revision progress
// @Description Apply a session delta with work session and defect entries, creating the revision when revision_id is absent
// @Tags Revisions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param progress body service.SaveProgressInput true "Progress save"
// @Success 200 {object} models.RevisionWithDetails
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Revision not found"
// @Failure 409 {object} map[string]string "Revision finalized or open revision exists"
// @Router /quality/revisions/progress [post]
func (h *RevisionHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	var input service.SaveProgressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	revision, err := h.revisionService.SaveProgress(r.Context(), &input)
	if err != nil {
		revisionError(w, err)
		return
	}

	JSONResponse(w, revision)
}

// GetRevision retrieves a revision by ID
// @Summary Get revision
// @Description Get a revision with sessions, defects, inspectors and accumulated minutes
// @Tags Revisions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Revision ID"
// @Success 200 {object} models.RevisionWithDetails
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 404 {object} map[string]string "Revision not found"
// @Router /quality/revisions/{id} [get]
func (h *RevisionHandler) GetRevision(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid revision ID", http.StatusBadRequest)
		return
	}

	revision, err := h.revisionService.GetRevision(id)
	if err != nil {
		revisionError(w, err)
		return
	}

	JSONResponse(w, revision)
}

// ListRevisions retrieves the revision history
// @Summary List revisions
// @Description List revisions newest first, optionally filtered by order code substring
// @Tags Revisions
// @Produce json
// @Security BearerAuth
// @Param op query string false "Production order code filter"
// @Success 200 {array} models.RevisionWithDetails
// @Router /quality/revisions [get]
func (h *RevisionHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	revisions, err := h.revisionService.ListRevisions(r.URL.Query().Get("op"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	JSONResponse(w, revisions)
}

// ReopenRevision transitions a finalized revision back to open
// @Summary Reopen revision
// @Description Reopen a finalized revision so further progress can accumulate
// @Tags Revisions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Revision ID"
// @Success 200 {object} models.RevisionWithDetails
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 404 {object} map[string]string "Revision not found"
// @Failure 409 {object} map[string]string "Revision is not finalized"
// @Router /quality/revisions/{id}/reopen [post]
func (h *RevisionHandler) ReopenRevision(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid revision ID", http.StatusBadRequest)
		return
	}

	revision, err := h.revisionService.Reopen(id)
	if err != nil {
		revisionError(w, err)
		return
	}

	JSONResponse(w, revision)
}

// DeleteRevision removes a revision with its sessions and defects
// @Summary Delete revision
// @Description Delete a revision and everything recorded under it
// @Tags Revisions
// @Security BearerAuth
// @Param id path int true "Revision ID"
// @Success 204 "Deleted"
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 404 {object} map[string]string "Revision not found"
// @Router /quality/revisions/{id} [delete]
func (h *RevisionHandler) DeleteRevision(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid revision ID", http.StatusBadRequest)
		return
	}

	if err := h.revisionService.DeleteRevision(id); err != nil {
		revisionError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
