package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcompliance "github.com/medregula/casetrack/internal/application/compliance"
	"github.com/medregula/casetrack/internal/application/dashboard"
	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/internal/interfaces/http/handlers"
	"github.com/medregula/casetrack/internal/testutil"
)

const tplOnco = "tpl-onco"

type apiFixture struct {
	store   *testutil.MemStore
	clock   *testutil.Clock
	service *appcompliance.Service
	server  *httptest.Server
}

type failingChecker struct{ err error }

func (f failingChecker) HealthCheck(_ context.Context) error { return f.err }

func newAPIFixture(t *testing.T, at time.Time) *apiFixture {
	t.Helper()
	f := &apiFixture{
		store: testutil.NewMemStore(),
		clock: testutil.NewClock(at),
	}
	f.store.SeedTemplate(tplOnco, []*cases.ChecklistEntry{
		{ID: "e-consult", TemplateID: tplOnco, Code: "0301010072", Name: "Consultation with specialist", Obligatory: true, DisplayOrder: 1},
		{ID: "e-tele", TemplateID: tplOnco, Code: "0301010110", Name: "Teleconsultation", Obligatory: true, DisplayOrder: 2},
		{ID: "e-biopsy", TemplateID: tplOnco, Code: "0201010585", Name: "Biopsy", Obligatory: true, DisplayOrder: 3},
	})

	log := testutil.NewMockLogger()
	f.service = appcompliance.NewService(f.store, log, appcompliance.WithClock(f.clock.Now))
	dash := dashboard.NewService(f.store, log, dashboard.WithClock(f.clock.Now))

	router := NewRouter(RouterConfig{
		Logger:    log,
		Case:      handlers.NewCaseHandler(f.service),
		Dashboard: handlers.NewDashboardHandler(dash),
		Admin:     handlers.NewAdminHandler(f.service),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"database": failingChecker{},
		}),
	})
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *apiFixture) createCase(t *testing.T) *cases.Case {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/v1/cases", handlers.CreateCaseRequest{
		PatientID:  "patient-1",
		TemplateID: tplOnco,
		CaseType:   string(cases.CaseTypeOncological),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[handlers.CaseResponse](t, resp).Case
}

func (f *apiFixture) executionID(t *testing.T, caseID, entryID string) string {
	t.Helper()
	execs, err := f.store.Executions().FindByCaseID(context.Background(), caseID)
	require.NoError(t, err)
	for _, e := range execs {
		if e.EntryID == entryID {
			return e.ID
		}
	}
	t.Fatalf("no execution for entry %s", entryID)
	return ""
}

func TestCreateAndGetCase(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	resp := f.do(t, http.MethodGet, "/api/v1/cases/"+c.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[handlers.CaseResponse](t, resp)
	assert.Equal(t, c.ID, got.Case.ID)
	assert.Equal(t, cases.StatusOpen, got.Case.Status)
	require.NotNil(t, got.Alert)
	assert.Equal(t, cases.TierInfo, got.Alert.Tier)
}

func TestCreateCaseRejectsUnknownTemplate(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	resp := f.do(t, http.MethodPost, "/api/v1/cases", handlers.CreateCaseRequest{
		PatientID:  "patient-1",
		TemplateID: "tpl-missing",
		CaseType:   string(cases.CaseTypeGeneral),
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateCaseRejectsUnknownField(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	resp := f.do(t, http.MethodPost, "/api/v1/cases", map[string]string{
		"patient_id": "patient-1", "template": tplOnco,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecordExecutionDerivesWindow(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	date := time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC)
	resp := f.do(t, http.MethodPut, "/api/v1/executions/"+f.executionID(t, c.ID, "e-consult"), handlers.RecordExecutionRequest{
		Status:        string(cases.ExecDone),
		ExecutionDate: &date,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[handlers.CaseResponse](t, resp)
	require.NotNil(t, got.Case.StartCompetency)
	assert.Equal(t, "202602", *got.Case.StartCompetency)
	require.NotNil(t, got.Case.EndCompetency)
	assert.Equal(t, "202603", *got.Case.EndCompetency)
	assert.Equal(t, cases.StatusInProgress, got.Case.Status)
}

func TestRecordExecutionDeadlineViolation(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	first := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	resp := f.do(t, http.MethodPut, "/api/v1/executions/"+f.executionID(t, c.ID, "e-consult"), handlers.RecordExecutionRequest{
		Status:        string(cases.ExecDone),
		ExecutionDate: &first,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Jan 1 anchors the window at deadline Jan 31; a biopsy in March must be
	// rejected with 422 and leave the case untouched.
	late := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	resp = f.do(t, http.MethodPut, "/api/v1/executions/"+f.executionID(t, c.ID, "e-biopsy"), handlers.RecordExecutionRequest{
		Status:        string(cases.ExecDone),
		ExecutionDate: &late,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[handlers.ErrorResponse](t, resp)
	assert.Contains(t, body.Message, "2026-03-20")
	assert.Contains(t, body.Message, "2026-01-31")
}

func TestCompleteRejectsUnmetChecklist(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	resp := f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/complete", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[handlers.ErrorResponse](t, resp)
	assert.Contains(t, body.Detail, "Biopsy")
}

func TestCancelRequiresJustification(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	resp := f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/cancel", handlers.CancelCaseRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/cancel", handlers.CancelCaseRequest{
		Justification: "duplicate registration",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[handlers.CaseResponse](t, resp)
	assert.Equal(t, cases.StatusCancelled, got.Case.Status)
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	resp := f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/alert/ack", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NotNil(t, f.store.AlertFor(c.ID))
	assert.True(t, f.store.AlertFor(c.ID).Acknowledged)
}

func TestDeadlineView(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	resp := f.do(t, http.MethodGet, "/api/v1/cases/"+c.ID+"/deadline", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	view := decode[appcompliance.DeadlineView](t, resp)
	assert.Equal(t, c.ID, view.CaseID)
	assert.Nil(t, view.StartCompetency)
	assert.Equal(t, view.GenericDeadline, view.EffectiveDeadline)
}

func TestRecomputeEndpoint(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	c := f.createCase(t)

	resp := f.do(t, http.MethodPost, "/api/v1/cases/"+c.ID+"/recompute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[handlers.CaseResponse](t, resp)
	assert.Equal(t, cases.StatusOpen, got.Case.Status)
}

func TestDashboardOverview(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	f.createCase(t)
	f.createCase(t)

	resp := f.do(t, http.MethodGet, "/api/v1/dashboard/overview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	o := decode[dashboard.Overview](t, resp)
	assert.Equal(t, 2, o.Active)
}

func TestDashboardApproachingValidation(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))

	resp := f.do(t, http.MethodGet, "/api/v1/dashboard/approaching?within_days=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/dashboard/approaching?within_days=30", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminSweep(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	f.createCase(t)

	// Move past the generic 30-day deadline so the open case expires.
	f.clock.Set(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	resp := f.do(t, http.MethodPost, "/api/v1/admin/sweep", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Expired int `json:"expired"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Expired)
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))

	resp := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The fixture registers a healthy checker (nil error), so readiness is up.
	resp = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadinessReportsDownComponent(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))

	log := testutil.NewMockLogger()
	router := NewRouter(RouterConfig{
		Logger:    log,
		Case:      handlers.NewCaseHandler(f.service),
		Dashboard: handlers.NewDashboardHandler(dashboard.NewService(f.store, log)),
		Admin:     handlers.NewAdminHandler(f.service),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"database": failingChecker{err: fmt.Errorf("connection refused")},
		}),
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	f := newAPIFixture(t, time.Date(2026, time.February, 15, 0, 0, 0, 0, time.UTC))
	resp := f.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
