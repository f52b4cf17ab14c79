package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

func TestReferenceAPI(t *testing.T) {
	f := setup(t)

	type status struct {
		ID   int    `json:"status_id"`
		Name string `json:"status"`
	}
	type degree struct {
		ID   int    `json:"pos_type"`
		Name string `json:"name"`
	}

	tests := []httpTest{
		{
			name:     "terms",
			method:   http.MethodGet,
			path:     "/v1/terms",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, term.All),
		},
		{
			name:     "degree types",
			method:   http.MethodGet,
			path:     "/v1/degree-types",
			wantCode: http.StatusOK,
			wantData: marchallList(t, degree{1, "MS"}, degree{2, "PhD"}, degree{3, "MSA"}),
		},
		{
			name:     "statuses for a chair",
			method:   http.MethodGet,
			path:     "/v1/statuses",
			actor:    chair,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				status{3, "Pending Committee Chair"},
				status{6, "Approved"},
				status{99, "Rejected"},
			),
		},
		{
			name:     "statuses for the grad coordinator",
			method:   http.MethodGet,
			path:     "/v1/statuses",
			actor:    gc,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				status{2, "Pending Grad Coordinator"},
				status{4, "Awaiting Key"},
				status{5, "Pending Grad School"},
				status{6, "Approved"},
				status{99, "Rejected"},
			),
		},
		{
			name:     "bad area filter",
			method:   http.MethodGet,
			path:     "/v1/courses?area=ethics",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"area": "area must be an integer"}`),
		},
	}
	runHttpTests(t, f.app, tests)

	t.Run("statuses for a student", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/v1/statuses", student)
		assert.Equal(t, http.StatusOK, rec.Code)
		var got []status
		unmarchall(t, rec, &got)
		assert.Len(t, got, 7)
	})

	t.Run("areas", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/v1/areas", anonymous)
		assert.Equal(t, http.StatusOK, rec.Code)
		var got []catalog.Area
		unmarchall(t, rec, &got)
		assert.Len(t, got, 7)
	})

	t.Run("courses by area", func(t *testing.T) {
		rec := f.serve(http.MethodGet, "/v1/courses?area=0", anonymous)
		assert.Equal(t, http.StatusOK, rec.Code)
		var got []catalog.Course
		unmarchall(t, rec, &got)
		if assert.Len(t, got, 1) {
			assert.Equal(t, "CS 5014", got[0].Code())
		}

		rec = f.serve(http.MethodGet, "/v1/courses", anonymous)
		unmarchall(t, rec, &got)
		assert.Len(t, got, 12)
	})

	t.Run("malformed roles header", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/terms")
		req.Header.Set("X-User-Roles", "chair")
		f.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error": "invalid X-User-Roles header"}`),
		}, rec)
	})
}
