package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtsmedt/PlanOfStudy/core/transcript"
	"github.com/dtsmedt/PlanOfStudy/tests"
)

func TestTranscriptAPI(t *testing.T) {
	f := setup(t)
	testutil.CreateStudent(t, f.plans, student.Key, "Jane", "Doe")

	rows := []byte(`{"rows": [
		{"name": "Doe,  Jane", "subj_expanded": "cs", "crse_numb": "5114", "term_taken": "202408", "credit_hours": 3, "grade": " a "},
		{"name": "Smith, Al", "subj_expanded": "CS", "crse_numb": "5214", "term_taken": "202401", "credit_hours": 3, "grade": "B"}
	]}`)

	tests := []httpTest{
		{
			name:     "student cannot import",
			method:   http.MethodPost,
			path:     "/v1/transcripts/import",
			body:     rows,
			actor:    student,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "empty import",
			method:   http.MethodPost,
			path:     "/v1/transcripts/import",
			body:     []byte(`{"rows": []}`),
			actor:    gc,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "no transcript rows to import"}`),
		},
		{
			name:     "bad row",
			method:   http.MethodPost,
			path:     "/v1/transcripts/import",
			body:     []byte(`{"rows": [{"name": "Doe, Jane", "subj_expanded": " ", "crse_numb": "5114"}]}`),
			actor:    gc,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"rows[0].subj_expanded": "subj_expanded cannot be blank"}`),
		},
	}
	runHttpTests(t, f.app, tests)

	t.Run("import", func(t *testing.T) {
		rec := f.serve(http.MethodPost, "/v1/transcripts/import", gc, rows)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var report transcript.ImportReport
		unmarchall(t, rec, &report)
		assert.Equal(t, 2, report.Inserted)
		assert.Equal(t, 0, report.Cleared)
	})

	t.Run("by name", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/v1/transcripts?name="+url.QueryEscape(" Doe, Jane "), gc)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []transcript.Record
		unmarchall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "CS 5114", got[0].Code())
		assert.Equal(t, "A", got[0].Grade)
	})

	t.Run("own transcript", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/v1/students/jdoe/transcripts", student)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []transcript.Record
		unmarchall(t, rec, &got)
		assert.Len(t, got, 1)

		rec = f.serve(http.MethodGet, "/v1/students/jdoe/transcripts", studentActor("asmith"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("name required", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/v1/transcripts", gc)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "name is required"}`),
		}, rec)
	})
}
