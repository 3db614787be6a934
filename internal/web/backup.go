package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	appLog "bonsaikeeper/internal/log"
	"bonsaikeeper/internal/storage"
)

const maxBackupBytes = 64 << 20

// handleBackupExport downloads the whole collection as a SQLite database.
func (s *Server) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.store.Snapshot(r.Context(), &buf)
	if err != nil {
		writeStoreError(w, "backup export", err)
		return
	}

	name := "bonsaikeeper-backup-" + s.now().In(s.loc).Format("20060102-150405") + ".sqlite"
	w.Header().Set("Content-Type", "application/vnd.sqlite3")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(n, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	appLog.Info("backup exported", "bytes", n)
}

type backupImportResponse struct {
	Restored map[string]int64 `json:"restored"`
}

// handleBackupImport replaces the whole collection with an uploaded export.
//
// POST /api/backup/import?confirm=true (multipart form, field "file")
//   - confirm: required, the import deletes everything stored now
func (s *Server) handleBackupImport(w http.ResponseWriter, r *http.Request) {
	if !parseBool(r.URL.Query().Get("confirm")) {
		writeError(w, http.StatusBadRequest, "import replaces all data; repeat with confirm=true")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBackupBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing backup file: "+err.Error())
		return
	}
	defer file.Close()

	counts, err := s.store.Restore(r.Context(), file)
	if errors.Is(err, storage.ErrInvalidBackup) {
		appLog.Warn("backup import rejected", "error", err.Error())
		writeError(w, http.StatusUnprocessableEntity, "file is not a bonsaikeeper backup")
		return
	}
	if err != nil {
		writeStoreError(w, "backup import", err)
		return
	}

	appLog.Info("backup imported",
		"species", counts["species"], "trees", counts["trees"], "reminders", counts["reminders"])
	writeJSON(w, http.StatusOK, backupImportResponse{Restored: counts})
}
