package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"quality-backend/internal/models"
	"quality-backend/internal/repository"
	"quality-backend/pkg/validator"
)

// ReferenceRequest represents the request body for reference entries
type ReferenceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active,omitempty"`
}

// ReferenceHandler handles reference table requests (sectors, operators,
// inspectors, defect types)
type ReferenceHandler struct {
	referenceRepo *repository.ReferenceRepository
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(referenceRepo *repository.ReferenceRepository) *ReferenceHandler {
	return &ReferenceHandler{referenceRepo: referenceRepo}
}

func (h *ReferenceHandler) kind(w http.ResponseWriter, r *http.Request) (repository.ReferenceKind, bool) {
	kind, err := repository.ParseReferenceKind(r.PathValue("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return kind, true
}

// ListReferences retrieves the entries of one reference table
// @Summary List reference entries
// @Description List entries of a reference table, active ones only unless all=true
// @Tags References
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Reference kind" Enums(sectors, operators, inspectors, defect-types)
// @Param all query bool false "Include inactive entries"
// @Success 200 {array} models.Reference
// @Failure 400 {object} map[string]string "Unknown reference kind"
// @Router /quality/references/{kind} [get]
func (h *ReferenceHandler) ListReferences(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("all") != "true"
	references, err := h.referenceRepo.List(kind, activeOnly)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	JSONResponse(w, references)
}

// CreateReference creates a new reference entry
// @Summary Create reference entry
// @Tags References
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Reference kind" Enums(sectors, operators, inspectors, defect-types)
// @Param reference body ReferenceRequest true "Reference data"
// @Success 201 {object} models.Reference
// @Failure 400 {object} map[string]string "Invalid input"
// @Router /quality/references/{kind} [post]
func (h *ReferenceHandler) CreateReference(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	var req ReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = validator.SanitizeString(req.Name)
	if err := validator.ValidateRequired("name", req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reference := &models.Reference{
		Name:        req.Name,
		Description: validator.SanitizeString(req.Description),
		Active:      true,
	}
	if req.Active != nil {
		reference.Active = *req.Active
	}

	if err := h.referenceRepo.Create(kind, reference); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	JSONResponseStatus(w, http.StatusCreated, reference)
}

// UpdateReference updates a reference entry
// @Summary Update reference entry
// @Tags References
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Reference kind" Enums(sectors, operators, inspectors, defect-types)
// @Param id path int true "Reference ID"
// @Param reference body ReferenceRequest true "Reference data"
// @Success 200 {object} models.Reference
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Reference not found"
// @Router /quality/references/{kind}/{id} [put]
func (h *ReferenceHandler) UpdateReference(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid reference ID", http.StatusBadRequest)
		return
	}

	existing, err := h.referenceRepo.GetByID(kind, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "Reference not found", http.StatusNotFound)
		return
	}

	var req ReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if name := validator.SanitizeString(req.Name); name != "" {
		existing.Name = name
	}
	existing.Description = validator.SanitizeString(req.Description)
	if req.Active != nil {
		existing.Active = *req.Active
	}

	if err := h.referenceRepo.Update(kind, existing); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	JSONResponse(w, existing)
}

// DeleteReference removes a reference entry
// @Summary Delete reference entry
// @Tags References
// @Security BearerAuth
// @Param kind path string true "Reference kind" Enums(sectors, operators, inspectors, defect-types)
// @Param id path int true "Reference ID"
// @Success 204 "Deleted"
// @Failure 400 {object} map[string]string "Invalid ID"
// @Failure 404 {object} map[string]string "Reference not found"
// @Router /quality/references/{kind}/{id} [delete]
func (h *ReferenceHandler) DeleteReference(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid reference ID", http.StatusBadRequest)
		return
	}

	if err := h.referenceRepo.Delete(kind, id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
