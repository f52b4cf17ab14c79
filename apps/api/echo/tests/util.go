package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/dtsmedt/PlanOfStudy/apps/api/echo"
	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/action"
	"github.com/dtsmedt/PlanOfStudy/core/approval"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/reconcile"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
	"github.com/dtsmedt/PlanOfStudy/storage/database/dummy"
	"github.com/dtsmedt/PlanOfStudy/tests"
)

var (
	student    = approval.Actor{Key: "jdoe", Name: "Jane Doe"}
	chair      = approval.Actor{Key: "faculty1", Name: "Prof. One", Roles: approval.RoleChair}
	otherChair = approval.Actor{Key: "faculty2", Roles: approval.RoleChair}
	gc         = approval.Actor{Key: "gc1", Name: "Grad Coordinator", Roles: approval.RoleGradCoordinator}
	anonymous  = approval.Actor{}

	errMissingActor = httpErr{Error: "missing X-User-Pid header"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func studentActor(pid string) approval.Actor {
	return approval.Actor{Key: pid}
}

type fixture struct {
	app     Server
	plans   plan.Repository
	records transcript.Repository
}

func setup(t *testing.T) fixture {
	// set up DB & repos
	db := testutil.OpenDB(t)
	plans := dummydb.NewPlanRepository(db)
	records := dummydb.NewTranscriptRepository(db)
	courses := dummydb.NewCatalogRepository(db)

	// set up services
	logger := &core.NopLogger{}
	validate, translator := testutil.NewValidator()
	planSvc := plan.NewService(plans, courses, validate, translator, logger)

	// set up server
	app := NewServer(
		&Options{
			TestMode:       true,
			DisableReqLogs: true,
			Logger:         logger,
			Translator:     translator,
			Catalog:        courses,
			PlanSvc:        planSvc,
			TranscriptSvc:  transcript.NewService(records, validate, translator, logger),
			ReconcileSvc:   reconcile.NewService(plans, records, courses, logger),
			Applier:        action.NewApplier(planSvc, logger),
			ApprovalSvc:    approval.NewService(planSvc, courses, logger),
		},
	)
	return fixture{app: app, plans: plans, records: records}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	actor    approval.Actor
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path string, actor approval.Actor, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if actor.Key != "" {
		req.Header.Set("X-User-Pid", actor.Key)
	}
	if actor.Name != "" {
		req.Header.Set("X-User-Name", actor.Name)
	}
	if actor.Roles != 0 {
		req.Header.Set("X-User-Roles", strconv.Itoa(int(actor.Roles)))
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, anonymous, data...)
}

// serve runs a request through the app.
func (f fixture) serve(method, path string, actor approval.Actor, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, actor, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarchall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.actor, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
