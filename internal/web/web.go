package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"bonsaikeeper/internal/config"
	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/markdown"
	"bonsaikeeper/internal/model"
	"bonsaikeeper/internal/reminder"
	"bonsaikeeper/internal/storage"
)

const maxBodyBytes = 1 << 20

// Store is the persistence the API works on; *storage.Storage implements it.
type Store interface {
	CreateSpecies(ctx context.Context, sp *model.Species) error
	GetSpecies(ctx context.Context, id int64) (*model.Species, error)
	ListSpecies(ctx context.Context) ([]*model.Species, error)
	UpdateSpecies(ctx context.Context, sp *model.Species) error
	DeleteSpecies(ctx context.Context, id int64) error

	CreateReminder(ctx context.Context, r *model.Reminder) error
	GetReminder(ctx context.Context, id int64) (*model.Reminder, error)
	ListReminders(ctx context.Context) ([]*model.Reminder, error)
	UpdateReminder(ctx context.Context, r *model.Reminder) error
	DeleteReminder(ctx context.Context, id int64) error

	CreateTree(ctx context.Context, t *model.Tree) error
	GetTree(ctx context.Context, id int64) (*model.Tree, error)
	ListTrees(ctx context.Context, status string) ([]*model.Tree, error)
	UpdateTree(ctx context.Context, t *model.Tree) error
	DeleteTree(ctx context.Context, id int64) error
	MoveToGraveyard(ctx context.Context, treeID int64, category, note string) (*model.GraveyardEntry, error)
	RestoreTree(ctx context.Context, treeID int64) error
	ListGraveyard(ctx context.Context) ([]*model.GraveyardEntry, error)
	CreateTreeUpdate(ctx context.Context, u *model.TreeUpdate) error
	ListTreeUpdates(ctx context.Context, treeID int64) ([]*model.TreeUpdate, error)
	DeleteTreeUpdate(ctx context.Context, treeID, id int64) error

	Snapshot(ctx context.Context, w io.Writer) (int64, error)
	Restore(ctx context.Context, r io.Reader) (map[string]int64, error)
}

// Server provides the JSON API, the printable calendar page and the
// captured preview.
type Server struct {
	cfg      *config.Config
	debug    bool
	mux      *http.ServeMux
	store    Store
	loc      *time.Location
	renderer *markdown.Renderer
	fetcher  *reminder.Fetcher
	sources  []reminder.Source
	now      func() time.Time

	// Subscribed feeds change rarely; keep parsed reminders for a while
	// instead of revalidating on every calendar request.
	feedsMu    sync.RWMutex
	feedsCache *feedsCache
}

type feedsCache struct {
	reminders []model.Reminder
	updatedAt time.Time
}

const feedsCacheTTL = 5 * time.Minute

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store Store, debug bool) *Server {
	s := &Server{
		cfg:      cfg,
		debug:    debug,
		mux:      http.NewServeMux(),
		store:    store,
		loc:      resolveLocationOrLocal(cfg.Timezone),
		renderer: markdown.NewRenderer(),
		fetcher:  reminder.NewFetcher(filepath.Join(cfg.DataDir, "ics-cache")),
		sources:  reminder.SourcesFromConfig(cfg.Subscriptions),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	if s.debug {
		h = logRequests(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="bonsaikeeper", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start).String())
	})
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/datepicker", s.handleDatePicker)
	s.mux.HandleFunc("POST /api/datepicker/select", s.handleDatePickerSelect)
	s.mux.HandleFunc("GET /api/dates/parse", s.handleParseDate)
	s.mux.HandleFunc("POST /api/markdown/render", s.handleRenderMarkdown)

	s.mux.HandleFunc("GET /api/species", s.handleListSpecies)
	s.mux.HandleFunc("POST /api/species", s.handleCreateSpecies)
	s.mux.HandleFunc("GET /api/species/care-template", s.handleCareTemplate)
	s.mux.HandleFunc("GET /api/species/{id}", s.handleGetSpecies)
	s.mux.HandleFunc("PUT /api/species/{id}", s.handleUpdateSpecies)
	s.mux.HandleFunc("DELETE /api/species/{id}", s.handleDeleteSpecies)
	s.mux.HandleFunc("GET /api/species/{id}/care", s.handleSpeciesCare)

	s.mux.HandleFunc("GET /api/reminders", s.handleListReminders)
	s.mux.HandleFunc("POST /api/reminders", s.handleCreateReminder)
	s.mux.HandleFunc("GET /api/reminders/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("GET /api/reminders.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/reminders/import", s.handleImportICS)
	s.mux.HandleFunc("GET /api/reminders/{id}", s.handleGetReminder)
	s.mux.HandleFunc("PATCH /api/reminders/{id}", s.handleUpdateReminder)
	s.mux.HandleFunc("DELETE /api/reminders/{id}", s.handleDeleteReminder)

	s.mux.HandleFunc("GET /api/trees", s.handleListTrees)
	s.mux.HandleFunc("POST /api/trees", s.handleCreateTree)
	s.mux.HandleFunc("GET /api/trees/{id}", s.handleGetTree)
	s.mux.HandleFunc("PATCH /api/trees/{id}", s.handleUpdateTree)
	s.mux.HandleFunc("DELETE /api/trees/{id}", s.handleDeleteTree)
	s.mux.HandleFunc("POST /api/trees/{id}/graveyard", s.handleMoveToGraveyard)
	s.mux.HandleFunc("POST /api/trees/{id}/restore", s.handleRestoreTree)
	s.mux.HandleFunc("GET /api/trees/{id}/updates", s.handleListTreeUpdates)
	s.mux.HandleFunc("POST /api/trees/{id}/updates", s.handleCreateTreeUpdate)
	s.mux.HandleFunc("DELETE /api/trees/{id}/updates/{updateID}", s.handleDeleteTreeUpdate)
	s.mux.HandleFunc("GET /api/graveyard", s.handleListGraveyard)

	s.mux.HandleFunc("GET /api/backup/export", s.handleBackupExport)
	s.mux.HandleFunc("POST /api/backup/import", s.handleBackupImport)

	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// feedReminders returns reminders from subscribed feeds, cached for
// feedsCacheTTL. Feed failures are logged; stale or partial data is served.
func (s *Server) feedReminders(ctx context.Context) []model.Reminder {
	if len(s.sources) == 0 {
		return nil
	}

	s.feedsMu.RLock()
	fc := s.feedsCache
	s.feedsMu.RUnlock()
	if fc != nil && s.now().Sub(fc.updatedAt) < feedsCacheTTL {
		return fc.reminders
	}

	rs, errs := s.fetcher.Reminders(ctx, s.sources)
	if len(errs) > 0 {
		appLog.Error("subscription refresh incomplete", errors.Join(errs...), "error_count", len(errs))
	}

	s.feedsMu.Lock()
	s.feedsCache = &feedsCache{reminders: rs, updatedAt: s.now()}
	s.feedsMu.Unlock()

	return rs
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func pathID(r *http.Request) (int64, bool) {
	return pathInt(r, "id")
}

func pathInt(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeStoreError maps storage errors to responses.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	appLog.Error(op+" failed", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Detail: msg})
}
