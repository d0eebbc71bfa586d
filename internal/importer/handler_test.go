package importer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/callbridge/internal/callrail"
)

func newAdminFixture(t *testing.T, lister *stubLister) (*AdminHandler, *stubPipeline) {
	t.Helper()
	proc := &stubPipeline{}
	imp := newTestImporter(t, lister, proc, nil, true)
	return NewAdminHandler(imp, 30, nil), proc
}

func TestHandleImportDefaultWindow(t *testing.T) {
	lister := &stubLister{pages: map[int]*callrail.CallsPage{
		1: {Calls: []callrail.Call{call("CA1")}, Page: 1, TotalPages: 1},
	}}
	h, _ := newAdminFixture(t, lister)

	req := httptest.NewRequest(http.MethodPost, "/admin/import", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	h.HandleImport(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary Summary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Imported)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -30), summary.WindowStart, time.Minute)

	require.Len(t, lister.requests, 1)
	assert.Equal(t, 2, lister.requests[0].PerPage)
}

func TestHandleImportExplicitDates(t *testing.T) {
	lister := &stubLister{pages: map[int]*callrail.CallsPage{
		1: {Page: 1, TotalPages: 1},
	}}
	h, _ := newAdminFixture(t, lister)

	body := `{"start_date":"2026-07-01","end_date":"2026-07-31"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/import", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleImport(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, lister.requests, 1)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), lister.requests[0].StartDate)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), lister.requests[0].EndDate, "end date is inclusive")
}

func TestHandleImportRejectsBadDates(t *testing.T) {
	h, _ := newAdminFixture(t, &stubLister{})

	for _, body := range []string{
		`{"start_date":"July 1"}`,
		`{"end_date":"2026-13-99"}`,
		`{"start_date":"2026-07-31","end_date":"2026-07-01"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/admin/import", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.HandleImport(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestHandleImportUpstreamFailure(t *testing.T) {
	lister := &stubLister{failures: map[int]error{1: assert.AnError}}
	h, _ := newAdminFixture(t, lister)

	req := httptest.NewRequest(http.MethodPost, "/admin/import", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	h.HandleImport(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
