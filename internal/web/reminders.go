package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bonsaikeeper/internal/calendar"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/reminder"
	"bonsaikeeper/internal/storage"
)

const (
	defaultOccurrenceDays = 31
	maxOccurrenceDays     = 3 * 366
)

type reminderRequest struct {
	TreeID   *int64        `json:"tree_id"`
	TreeName string        `json:"tree_name"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Category string        `json:"category"`
	DueDate  calendar.Date `json:"due_date"`
	RRule    string        `json:"rrule"`
	Read     bool          `json:"read"`
}

// reminderPatch carries a partial update; nil fields are left unchanged.
// An empty due_date string clears the date and tree_id 0 unlinks the tree.
type reminderPatch struct {
	TreeID   *int64         `json:"tree_id"`
	TreeName *string        `json:"tree_name"`
	Title    *string        `json:"title"`
	Message  *string        `json:"message"`
	Category *string        `json:"category"`
	DueDate  *calendar.Date `json:"due_date"`
	RRule    *string        `json:"rrule"`
	Read     *bool          `json:"read"`
}

func (p reminderPatch) apply(r *model.Reminder) {
	if p.TreeID != nil {
		if *p.TreeID == 0 {
			r.TreeID = nil
		} else {
			id := *p.TreeID
			r.TreeID = &id
		}
	}
	if p.TreeName != nil {
		r.TreeName = *p.TreeName
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Message != nil {
		r.Message = *p.Message
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.DueDate != nil {
		r.DueDate = *p.DueDate
	}
	if p.RRule != nil {
		r.RRule = *p.RRule
	}
	if p.Read != nil {
		r.Read = *p.Read
	}
}

// validateReminder normalizes r and returns a message for the client when
// it cannot be stored.
func validateReminder(r *model.Reminder) string {
	r.Title = strings.TrimSpace(r.Title)
	r.TreeName = strings.TrimSpace(r.TreeName)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.RRule = strings.TrimSpace(r.RRule)

	if r.Title == "" {
		return "title is required"
	}
	if r.RRule != "" {
		if r.DueDate.IsZero() {
			return "a recurring reminder needs a due_date"
		}
		if _, err := reminder.ParseRRule(r.RRule); err != nil {
			return "invalid rrule: " + err.Error()
		}
	}
	return ""
}

// linkTree copies the linked tree's name onto r. It returns a message for
// the client when the tree does not exist.
func (s *Server) linkTree(ctx context.Context, r *model.Reminder) (string, error) {
	if r.TreeID != nil && *r.TreeID == 0 {
		r.TreeID = nil
	}
	if r.TreeID == nil {
		return "", nil
	}
	t, err := s.store.GetTree(ctx, *r.TreeID)
	if errors.Is(err, storage.ErrNotFound) {
		return "unknown tree", nil
	}
	if err != nil {
		return "", err
	}
	r.TreeName = t.Name
	return "", nil
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListReminders(r.Context())
	if err != nil {
		writeStoreError(w, "list reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rem := model.Reminder{
		TreeID:   req.TreeID,
		TreeName: req.TreeName,
		Title:    req.Title,
		Message:  req.Message,
		Category: req.Category,
		DueDate:  req.DueDate,
		RRule:    req.RRule,
		Read:     req.Read,
	}
	if msg := validateReminder(&rem); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if msg, err := s.linkTree(r.Context(), &rem); err != nil {
		writeStoreError(w, "link tree", err)
		return
	} else if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if err := s.store.CreateReminder(r.Context(), &rem); err != nil {
		writeStoreError(w, "create reminder", err)
		return
	}
	appLog.Info("reminder created", "id", rem.ID, "title", rem.Title, "due", rem.DueDate.String())
	writeJSON(w, http.StatusCreated, rem)
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rem, err := s.store.GetReminder(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var patch reminderPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	rem, err := s.store.GetReminder(r.Context(), id)
	if err != nil {
		writeStoreError(w, "get reminder", err)
		return
	}
	patch.apply(rem)
	if msg := validateReminder(rem); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if msg, err := s.linkTree(r.Context(), rem); err != nil {
		writeStoreError(w, "link tree", err)
		return
	} else if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if err := s.store.UpdateReminder(r.Context(), rem); err != nil {
		writeStoreError(w, "update reminder", err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.store.DeleteReminder(r.Context(), id); err != nil {
		writeStoreError(w, "delete reminder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type occurrencesResponse struct {
	From        calendar.Date      `json:"from"`
	To          calendar.Date      `json:"to"`
	Occurrences []model.Occurrence `json:"occurrences"`
	Truncated   []string           `json:"truncated_uids,omitempty"`
}

// handleOccurrences expands stored and subscribed reminders.
//
// GET /api/reminders/occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD
//   - from: defaults to today in the configured timezone
//   - to:   defaults to from + 30 days; at most three years after from
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from := calendar.Today(s.now(), s.loc)
	if v := q.Get("from"); v != "" {
		d, ok := calendar.Parse(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = d
	}

	to := from.AddDays(defaultOccurrenceDays - 1)
	if v := q.Get("to"); v != "" {
		d, ok := calendar.Parse(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = d
	}

	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}
	if to.After(from.AddDays(maxOccurrenceDays)) {
		writeError(w, http.StatusBadRequest, "range is too large")
		return
	}

	res, err := s.expand(r, from, to)
	if err != nil {
		writeStoreError(w, "expand reminders", err)
		return
	}

	writeJSON(w, http.StatusOK, occurrencesResponse{
		From:        from,
		To:          to,
		Occurrences: res.Occurrences,
		Truncated:   res.Truncated,
	})
}

func (s *Server) expand(r *http.Request, from, to calendar.Date) (reminder.ExpandResult, error) {
	stored, err := s.store.ListReminders(r.Context())
	if err != nil {
		return reminder.ExpandResult{}, err
	}

	all := make([]model.Reminder, 0, len(stored))
	for _, rem := range stored {
		all = append(all, *rem)
	}
	all = append(all, s.feedReminders(r.Context())...)

	return reminder.Expand(all, reminder.ExpandConfig{From: from, To: to})
}

// handleExportICS serves the stored reminders as an iCalendar feed that
// calendar apps can subscribe to.
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.ListReminders(r.Context())
	if err != nil {
		writeStoreError(w, "list reminders", err)
		return
	}

	list := make([]model.Reminder, 0, len(stored))
	for _, rem := range stored {
		list = append(list, *rem)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reminders.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, reminder.ExportICS(list, s.now()))
}

type importResponse struct {
	Imported  int               `json:"imported"`
	Reminders []*model.Reminder `json:"reminders"`
}

// handleImportICS stores every VEVENT of the posted iCalendar body as a
// reminder.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	parsed, err := reminder.ParseICS(reminder.Source{ID: "import"}, body)
	if errors.Is(err, reminder.ErrEmptyBody) {
		writeError(w, http.StatusBadRequest, "empty calendar body")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created := make([]*model.Reminder, 0, len(parsed))
	for i := range parsed {
		rem := parsed[i]
		rem.SourceID, rem.UID = "", ""
		if msg := validateReminder(&rem); msg != "" {
			appLog.Warn("import: reminder skipped", "title", rem.Title, "reason", msg)
			continue
		}
		if err := s.store.CreateReminder(r.Context(), &rem); err != nil {
			writeStoreError(w, "import reminder", fmt.Errorf("after %d imported: %w", len(created), err))
			return
		}
		created = append(created, &rem)
	}

	appLog.Info("reminders imported", "count", len(created), "parsed", len(parsed))
	writeJSON(w, http.StatusCreated, importResponse{Imported: len(created), Reminders: created})
}
