package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bonsaikeeper/internal/calendar"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/storage"
)

type treeRequest struct {
	Name             string        `json:"name"`
	SpeciesID        *int64        `json:"species_id"`
	AcquisitionDate  calendar.Date `json:"acquisition_date"`
	OriginDate       calendar.Date `json:"origin_date"`
	Location         string        `json:"location"`
	Notes            string        `json:"notes"`
	DevelopmentStage string        `json:"development_stage"`
}

// treePatch carries a partial update; nil fields are left unchanged.
// species_id 0 unlinks the species and an empty date string clears it.
type treePatch struct {
	Name             *string        `json:"name"`
	SpeciesID        *int64         `json:"species_id"`
	AcquisitionDate  *calendar.Date `json:"acquisition_date"`
	OriginDate       *calendar.Date `json:"origin_date"`
	Location         *string        `json:"location"`
	Notes            *string        `json:"notes"`
	DevelopmentStage *string        `json:"development_stage"`
}

func (p treePatch) apply(t *model.Tree) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.SpeciesID != nil {
		if *p.SpeciesID == 0 {
			t.SpeciesID = nil
		} else {
			id := *p.SpeciesID
			t.SpeciesID = &id
		}
	}
	if p.AcquisitionDate != nil {
		t.AcquisitionDate = *p.AcquisitionDate
	}
	if p.OriginDate != nil {
		t.OriginDate = *p.OriginDate
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.DevelopmentStage != nil {
		t.DevelopmentStage = *p.DevelopmentStage
	}
}

// validateTree normalizes t and returns a message for the client when it
// cannot be stored. Dates may not lie after today.
func (s *Server) validateTree(ctx context.Context, t *model.Tree) (string, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Location = strings.TrimSpace(t.Location)
	t.DevelopmentStage = strings.TrimSpace(t.DevelopmentStage)

	if t.Name == "" {
		return "name is required", nil
	}

	past := calendar.NewBounds(calendar.Date{}, calendar.Today(s.now(), s.loc))
	if !t.AcquisitionDate.IsZero() && !past.Contains(t.AcquisitionDate) {
		return "acquisition_date is in the future", nil
	}
	if !t.OriginDate.IsZero() && !past.Contains(t.OriginDate) {
		return "origin_date is in the future", nil
	}

	if t.SpeciesID != nil {
		if _, err := s.store.GetSpecies(ctx, *t.SpeciesID); errors.Is(err, storage.ErrNotFound) {
			return "unknown species", nil
		} else if err != nil {
			return "", err
		}
	}
	return "", nil
}

// handleListTrees lists the collection.
//
// GET /api/trees?status=active|graveyard (default: all)
func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", model.TreeActive, model.TreeGraveyard:
	default:
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	list, err := s.store.ListTrees(r.Context(), status)
	if err != nil {
		writeStoreError(w, "list trees", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTree(w http.ResponseWriter, r *http.Request) {
	var req treeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t := model.Tree{
		Name:             req.Name,
		SpeciesID:        req.SpeciesID,
		AcquisitionDate:  req.AcquisitionDate,
		OriginDate:       req.OriginDate,
		Location:         req.Location,
		Notes:            req.Notes,
		DevelopmentStage: req.DevelopmentStage,
		Status:           model.TreeActive,
	}
	msg, err := s.validateTree(r.Context(), &t)
	if err != nil {
		writeStoreError(w, "validate tree", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if err := s.store.CreateTree(r.Context(), &t); err != nil {
		writeStoreError(w, "create tree", err)
		return
	}
	appLog.Info("tree created", "id", t.ID, "name", t.Name, "acquired", t.AcquisitionDate.String())
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	t, err := s.store.GetTree(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get tree", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var patch treePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	t, err := s.store.GetTree(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get tree", err)
		return
	}
	patch.apply(t)
	msg, err := s.validateTree(r.Context(), t)
	if err != nil {
		writeStoreError(w, "validate tree", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if err := s.store.UpdateTree(r.Context(), t); err != nil {
		writeStoreError(w, "update tree", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteTree(r.Context(), id); err != nil {
		writeStoreError(w, "delete tree", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type graveyardRequest struct {
	Category string `json:"category"`
	Note     string `json:"note"`
}

// handleMoveToGraveyard retires a tree. The category defaults to "dead".
func (s *Server) handleMoveToGraveyard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req graveyardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = model.GraveyardDead
	}

	entry, err := s.store.MoveToGraveyard(r.Context(), id, category, strings.TrimSpace(req.Note))
	if errors.Is(err, storage.ErrAlreadyInGraveyard) {
		writeError(w, http.StatusBadRequest, "tree is already in the graveyard")
		return
	}
	if err != nil {
		writeStoreError(w, "move tree to graveyard", err)
		return
	}
	appLog.Info("tree moved to graveyard", "id", id, "category", category)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRestoreTree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err := s.store.RestoreTree(r.Context(), id)
	if errors.Is(err, storage.ErrNotInGraveyard) {
		writeError(w, http.StatusNotFound, "tree is not in the graveyard")
		return
	}
	if err != nil {
		writeStoreError(w, "restore tree", err)
		return
	}

	t, err := s.store.GetTree(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get tree", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListGraveyard(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListGraveyard(r.Context())
	if err != nil {
		writeStoreError(w, "list graveyard", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type treeUpdateRequest struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	PerformedOn     calendar.Date `json:"performed_on"`
	TrunkDiameterCM *float64      `json:"trunk_diameter_cm"`
}

func (s *Server) handleListTreeUpdates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if _, err := s.store.GetTree(r.Context(), id); err != nil {
		writeStoreError(w, "get tree", err)
		return
	}
	list, err := s.store.ListTreeUpdates(r.Context(), id)
	if err != nil {
		writeStoreError(w, "list tree updates", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateTreeUpdate adds a journal entry. performed_on defaults to
// today and may not lie in the future.
func (s *Server) handleCreateTreeUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req treeUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	today := calendar.Today(s.now(), s.loc)
	u := model.TreeUpdate{
		TreeID:          id,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		PerformedOn:     req.PerformedOn,
		TrunkDiameterCM: req.TrunkDiameterCM,
	}
	if u.PerformedOn.IsZero() {
		u.PerformedOn = today
	}
	switch {
	case u.Title == "":
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	case u.PerformedOn.After(today):
		writeError(w, http.StatusUnprocessableEntity, "performed_on is in the future")
		return
	case u.TrunkDiameterCM != nil && *u.TrunkDiameterCM <= 0:
		writeError(w, http.StatusUnprocessableEntity, "trunk_diameter_cm must be positive")
		return
	}

	if _, err := s.store.GetTree(r.Context(), id); err != nil {
		writeStoreError(w, "get tree", err)
		return
	}
	if err := s.store.CreateTreeUpdate(r.Context(), &u); err != nil {
		writeStoreError(w, "create tree update", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleDeleteTreeUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	updateID, ok2 := pathInt(r, "updateID")
	if !ok || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteTreeUpdate(r.Context(), id, updateID); err != nil {
		writeStoreError(w, "delete tree update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
