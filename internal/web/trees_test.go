package web

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bonsaikeeper/internal/model"
)

func TestTreeEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/trees", `{"name":" "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/trees", `{"name":"Maple","acquisition_date":"2024-02-30"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/trees", `{"name":"Maple","acquisition_date":"2026-10-19"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "acquisition_date is in the future", detail(t, rec))

	rec = do(t, s, http.MethodPost, "/api/trees", `{"name":"Maple","species_id":42}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "unknown species", detail(t, rec))

	rec = do(t, s, http.MethodPost, "/api/species", `{"common_name":"Trident maple"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	species := decode[model.Species](t, rec)

	rec = do(t, s, http.MethodPost, "/api/trees",
		`{"name":"Shohin maple","species_id":`+itoa(species.ID)+`,"acquisition_date":"2026-10-18","location":"bench 2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	tree := decode[model.Tree](t, rec)
	assert.Equal(t, model.TreeActive, tree.Status)
	assert.Equal(t, "2026-10-18", tree.AcquisitionDate.String())

	path := "/api/trees/" + itoa(tree.ID)

	rec = do(t, s, http.MethodPatch, path, `{"notes":"Needs wiring","acquisition_date":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[model.Tree](t, rec)
	assert.Equal(t, "Needs wiring", patched.Notes)
	assert.True(t, patched.AcquisitionDate.IsZero())
	assert.Equal(t, "bench 2", patched.Location)

	rec = do(t, s, http.MethodPatch, path, `{"species_id":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[model.Tree](t, rec).SpeciesID)

	rec = do(t, s, http.MethodGet, "/api/trees?status=dormant", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/trees?status=active", "")
	require.Len(t, decode[[]model.Tree](t, rec), 1)

	rec = do(t, s, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGraveyardEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/trees", `{"name":"Old pine"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/trees/" + itoa(decode[model.Tree](t, rec).ID)

	rec = do(t, s, http.MethodPost, path+"/restore", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "tree is not in the graveyard", detail(t, rec))

	rec = do(t, s, http.MethodPost, path+"/graveyard", `{"note":"root rot"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	entry := decode[model.GraveyardEntry](t, rec)
	assert.Equal(t, model.GraveyardDead, entry.Category)
	assert.Equal(t, "Old pine", entry.TreeName)

	rec = do(t, s, http.MethodPost, path+"/graveyard", `{"category":"sold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tree is already in the graveyard", detail(t, rec))

	rec = do(t, s, http.MethodGet, "/api/trees?status=graveyard", "")
	graveyard := decode[[]model.Tree](t, rec)
	require.Len(t, graveyard, 1)
	require.NotNil(t, graveyard[0].Graveyard)
	assert.Equal(t, "root rot", graveyard[0].Graveyard.Note)

	rec = do(t, s, http.MethodGet, "/api/graveyard", "")
	require.Len(t, decode[[]model.GraveyardEntry](t, rec), 1)

	rec = do(t, s, http.MethodPost, path+"/restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	restored := decode[model.Tree](t, rec)
	assert.Equal(t, model.TreeActive, restored.Status)
	assert.Nil(t, restored.Graveyard)

	rec = do(t, s, http.MethodPost, "/api/trees/999/graveyard", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTreeUpdateEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/trees", `{"name":"Elm"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/trees/" + itoa(decode[model.Tree](t, rec).ID) + "/updates"

	rec = do(t, s, http.MethodPost, path, `{"title":"Repot","performed_on":"2026-10-19"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, path, `{"title":"Measure","trunk_diameter_cm":-1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, path, `{"title":"Repot","trunk_diameter_cm":3.2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	u := decode[model.TreeUpdate](t, rec)
	assert.Equal(t, "2026-10-18", u.PerformedOn.String(), "defaults to today")

	rec = do(t, s, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]model.TreeUpdate](t, rec), 1)

	rec = do(t, s, http.MethodDelete, path+"/"+itoa(u.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/trees/999/updates", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReminderLinkedToTree(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/reminders", `{"title":"Feed","tree_id":77}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "unknown tree", detail(t, rec))

	rec = do(t, s, http.MethodPost, "/api/trees", `{"name":"Azalea"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	tree := decode[model.Tree](t, rec)

	rec = do(t, s, http.MethodPost, "/api/reminders",
		`{"title":"Feed","tree_id":`+itoa(tree.ID)+`,"tree_name":"ignored","due_date":"2026-10-20"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rem := decode[model.Reminder](t, rec)
	assert.Equal(t, "Azalea", rem.TreeName)

	rec = do(t, s, http.MethodPatch, "/api/trees/"+itoa(tree.ID), `{"name":"Satsuki azalea"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/reminders/occurrences?from=2026-10-18&to=2026-10-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	occ := decode[occurrencesResponse](t, rec).Occurrences
	require.Len(t, occ, 1)
	assert.Equal(t, tree.ID, occ[0].TreeID)
	assert.Equal(t, "Satsuki azalea", occ[0].TreeName)

	rec = do(t, s, http.MethodPatch, "/api/reminders/"+itoa(rem.ID), `{"tree_id":0,"tree_name":"Loose"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	unlinked := decode[model.Reminder](t, rec)
	assert.Nil(t, unlinked.TreeID)
	assert.Equal(t, "Loose", unlinked.TreeName)
}

func backupUpload(t *testing.T, s *Server, query string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "backup.sqlite")
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/backup/import"+query, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestBackupExportImport(t *testing.T) {
	t.Parallel()

	src := newTestServer(t)
	rec := do(t, src, http.MethodPost, "/api/trees", `{"name":"Shohin maple","acquisition_date":"2021-04-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, src, http.MethodPost, "/api/species", `{"common_name":"Trident maple"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, src, http.MethodGet, "/api/backup/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.sqlite3", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bonsaikeeper-backup-20261018-090000.sqlite")
	archive := rec.Body.Bytes()
	require.True(t, bytes.HasPrefix(archive, []byte("SQLite format 3\x00")))

	dst := newTestServer(t)
	rec = do(t, dst, http.MethodPost, "/api/trees", `{"name":"Will be replaced"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = backupUpload(t, dst, "", archive)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "import needs confirmation")

	rec = backupUpload(t, dst, "?confirm=true", []byte("not a database at all, only text"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, dst, http.MethodGet, "/api/trees", "")
	require.Len(t, decode[[]model.Tree](t, rec), 1, "failed import keeps data")

	rec = backupUpload(t, dst, "?confirm=true", archive)
	require.Equal(t, http.StatusOK, rec.Code)
	restored := decode[backupImportResponse](t, rec).Restored
	assert.Equal(t, int64(1), restored["trees"])
	assert.Equal(t, int64(1), restored["species"])

	rec = do(t, dst, http.MethodGet, "/api/trees", "")
	trees := decode[[]model.Tree](t, rec)
	require.Len(t, trees, 1)
	assert.Equal(t, "Shohin maple", trees[0].Name)
	assert.Equal(t, "2021-04-10", trees[0].AcquisitionDate.String())
}
