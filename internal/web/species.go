package web

import (
	"net/http"
	"strings"

	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/markdown"
	"bonsaikeeper/internal/model"
)

type speciesRequest struct {
	CommonName       string `json:"common_name"`
	ScientificName   string `json:"scientific_name"`
	Description      string `json:"description"`
	CareInstructions string `json:"care_instructions"`
}

func (req speciesRequest) apply(sp *model.Species) {
	sp.CommonName = strings.TrimSpace(req.CommonName)
	sp.ScientificName = strings.TrimSpace(req.ScientificName)
	sp.Description = req.Description
	sp.CareInstructions = req.CareInstructions
}

type htmlResponse struct {
	HTML string `json:"html"`
}

func (s *Server) handleListSpecies(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSpecies(r.Context())
	if err != nil {
		writeStoreError(w, "list species", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSpecies(w http.ResponseWriter, r *http.Request) {
	var req speciesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var sp model.Species
	req.apply(&sp)
	if sp.CommonName == "" {
		writeError(w, http.StatusUnprocessableEntity, "common_name is required")
		return
	}
	if strings.TrimSpace(sp.CareInstructions) == "" {
		sp.CareInstructions = markdown.CareTemplate
	}

	if err := s.store.CreateSpecies(r.Context(), &sp); err != nil {
		writeStoreError(w, "create species", err)
		return
	}
	appLog.Info("species created", "id", sp.ID, "common_name", sp.CommonName)
	writeJSON(w, http.StatusCreated, sp)
}

func (s *Server) handleGetSpecies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	sp, err := s.store.GetSpecies(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get species", err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleUpdateSpecies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req speciesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sp, err := s.store.GetSpecies(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get species", err)
		return
	}
	req.apply(sp)
	if sp.CommonName == "" {
		writeError(w, http.StatusUnprocessableEntity, "common_name is required")
		return
	}

	if err := s.store.UpdateSpecies(r.Context(), sp); err != nil {
		writeStoreError(w, "update species", err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

func (s *Server) handleDeleteSpecies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteSpecies(r.Context(), id); err != nil {
		writeStoreError(w, "delete species", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSpeciesCare renders the species' care notes, tables included.
func (s *Server) handleSpeciesCare(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	sp, err := s.store.GetSpecies(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get species", err)
		return
	}

	html, err := s.renderer.Render(sp.CareInstructions)
	if err != nil {
		appLog.Error("care render failed", err, "species_id", id)
		writeError(w, http.StatusInternalServerError, "failed to render care notes")
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: html})
}

// handleCareTemplate returns the starter Markdown for new care notes.
func (s *Server) handleCareTemplate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"markdown": markdown.CareTemplate})
}

type renderRequest struct {
	Markdown string `json:"markdown"`
}

// handleRenderMarkdown previews Markdown as the care view would show it.
func (s *Server) handleRenderMarkdown(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	html, err := s.renderer.Render(req.Markdown)
	if err != nil {
		appLog.Error("markdown render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render markdown")
		return
	}
	writeJSON(w, http.StatusOK, htmlResponse{HTML: html})
}
