package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"contest_registry/internal/app/service"
	"contest_registry/internal/common"
	"contest_registry/internal/common/security"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/platform/config"
	"contest_registry/internal/platform/spreadsheet"
	"contest_registry/internal/testkit/memstore"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	auth    *service.AuthService
	queued  []string
}

func (s *testServer) Enqueue(_ context.Context, jobID string) error {
	s.queued = append(s.queued, jobID)
	return nil
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour, UploadMaxBytes: 1 << 20}
	security.InitJWT()

	clock := func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	ts := &testServer{t: t}
	svc := service.NewServices(memstore.New(), service.Deps{Queue: ts, Clock: clock})
	ts.auth = svc.Auth
	ts.handler = NewRouter(svc, []string{"*"})
	return ts
}

// login creates a user with role and returns their bearer token.
func (s *testServer) login(username string, role model.Role) string {
	s.t.Helper()
	ctx := context.Background()
	if _, err := s.auth.CreateUser(ctx, service.CreateUserRequest{Username: username, Password: "secret1", FullName: username, Role: role}); err != nil {
		s.t.Fatalf("create %s: %v", username, err)
	}
	rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": "secret1"})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var resp service.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("decode login: %v", err)
	}
	return resp.Token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(path, token, fileName, content string) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		s.t.Fatalf("form file: %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndAuthRequired(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodGet, "/api/v1/supervisors", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "ghost", "password": "x"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", rec.Code)
	}
}

func TestRolesGateWrites(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin1", model.RoleAdmin)
	editor := s.login("editor1", model.RoleEditor)
	viewer := s.login("viewer1", model.RoleViewer)

	sup := map[string]any{"name": "Layla Haddad", "hire_date": "2019-09-01", "department": "Mathematics", "qualification": "MSc", "max_contestants": 1}
	if rec := s.do(http.MethodPost, "/api/v1/supervisors", editor, sup); rec.Code != http.StatusForbidden {
		t.Fatalf("editor creating supervisor: expected 403, got %d", rec.Code)
	}
	rec := s.do(http.MethodPost, "/api/v1/supervisors", admin, sup)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin creating supervisor: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[model.Supervisor](t, rec)
	if !strings.HasPrefix(created.EmployeeID, "SUP-2024-") {
		t.Fatalf("unexpected employee id %q", created.EmployeeID)
	}

	contestant := map[string]any{"name": "Amal Khoury", "birth_date": "2010-03-04", "education_level": "Secondary", "supervisor_id": created.ID}
	if rec := s.do(http.MethodPost, "/api/v1/contestants", viewer, contestant); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer creating contestant: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPost, "/api/v1/contestants", editor, contestant); rec.Code != http.StatusCreated {
		t.Fatalf("editor creating contestant: %d %s", rec.Code, rec.Body.String())
	}

	contestant["name"] = "Bilal Saad"
	rec = s.do(http.MethodPost, "/api/v1/contestants", editor, contestant)
	if rec.Code != http.StatusConflict {
		t.Fatalf("supervisor at capacity: expected 409, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/v1/supervisors/"+itoa(created.ID)+"/statistics", viewer, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"available_slots":0`) {
		t.Fatalf("statistics: %d %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(http.MethodDelete, "/api/v1/supervisors/"+itoa(created.ID), admin, nil); rec.Code != http.StatusConflict {
		t.Fatalf("deleting supervisor with contestants: expected 409, got %d", rec.Code)
	}
}

func TestUserChangesApplyToIssuedTokens(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin1", model.RoleAdmin)

	rec := s.do(http.MethodPost, "/api/v1/users", admin, map[string]string{
		"username": "editor1", "password": "secret1", "full_name": "Rana Aziz", "role": "editor",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body.String())
	}
	editorID := decode[model.User](t, rec).ID
	rec = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "editor1", "password": "secret1"})
	editor := decode[service.AuthResponse](t, rec).Token

	contestant := map[string]any{"name": "Amal Khoury", "birth_date": "2010-03-04", "education_level": "Secondary"}
	if rec := s.do(http.MethodPost, "/api/v1/contestants", editor, contestant); rec.Code != http.StatusCreated {
		t.Fatalf("editor creating contestant: %d %s", rec.Code, rec.Body.String())
	}

	userPath := "/api/v1/users/" + itoa(editorID)
	if rec := s.do(http.MethodPut, userPath, admin, map[string]string{"role": "viewer"}); rec.Code != http.StatusOK {
		t.Fatalf("demote: %d %s", rec.Code, rec.Body.String())
	}
	contestant["name"] = "Bilal Saad"
	if rec := s.do(http.MethodPost, "/api/v1/contestants", editor, contestant); rec.Code != http.StatusForbidden {
		t.Fatalf("demoted editor creating contestant: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/contestants", editor, nil); rec.Code != http.StatusOK {
		t.Fatalf("demoted editor reading: expected 200, got %d", rec.Code)
	}

	if rec := s.do(http.MethodPut, userPath, admin, map[string]bool{"is_active": false}); rec.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodGet, "/api/v1/contestants", editor, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("deactivated user reading: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPut, userPath, admin, map[string]string{"role": "owner"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: expected 400, got %d", rec.Code)
	}
}

func TestValidationErrorsCarryFields(t *testing.T) {
	s := newTestServer(t)
	editor := s.login("editor1", model.RoleEditor)

	rec := s.do(http.MethodPost, "/api/v1/competitions", editor, map[string]any{
		"title": "Winter Olympiad", "start_date": "2024-01-31", "end_date": "2024-01-01",
		"max_score": 60, "passing_score": 70,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decode[common.ErrorResponse](t, rec)
	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	if !fields["end_date"] || !fields["passing_score"] {
		t.Fatalf("expected end_date and passing_score fields, got %+v", resp.Fields)
	}

	if rec := s.do(http.MethodGet, "/api/v1/competitions/abc", editor, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: expected 400, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/api/v1/competitions/999", editor, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", rec.Code)
	}
}

func TestScoreFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin1", model.RoleAdmin)

	sup := decode[model.Supervisor](t, s.do(http.MethodPost, "/api/v1/supervisors", admin, map[string]any{
		"name": "Layla Haddad", "hire_date": "2019-09-01", "department": "Mathematics", "qualification": "MSc",
	}))
	comp := decode[model.Competition](t, s.do(http.MethodPost, "/api/v1/competitions", admin, map[string]any{
		"title": "Winter Olympiad", "start_date": "2024-01-01", "end_date": "2024-01-31",
	}))
	c := decode[model.Contestant](t, s.do(http.MethodPost, "/api/v1/contestants", admin, map[string]any{
		"name": "Amal Khoury", "birth_date": "2010-03-04", "education_level": "Secondary", "supervisor_id": sup.ID,
	}))

	score := map[string]any{"competition_id": comp.ID, "contestant_id": c.ID, "supervisor_id": sup.ID, "score_value": 60}
	rec := s.do(http.MethodPost, "/api/v1/scores", admin, score)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record: %d %s", rec.Code, rec.Body.String())
	}
	recorded := decode[model.Score](t, rec)
	if recorded.Passed == nil || !*recorded.Passed {
		t.Fatalf("expected a passing score, got %+v", recorded)
	}
	if rec := s.do(http.MethodPost, "/api/v1/scores", admin, score); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/v1/scores/"+itoa(recorded.ID)+"/rank", admin, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"rank":1`) {
		t.Fatalf("rank: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPut, "/api/v1/competitions/"+itoa(comp.ID)+"/scores", admin, map[string]any{
		"scores": []map[string]any{{"contestant_id": c.ID, "score_value": 45}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk update: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/v1/competitions/"+itoa(comp.ID)+"/statistics", admin, nil)
	st := decode[map[string]any](t, rec)
	if st["failed_count"] != float64(1) || st["passed_count"] != float64(0) {
		t.Fatalf("unexpected statistics %v", st)
	}

	rec = s.do(http.MethodGet, "/api/v1/competitions/"+itoa(comp.ID)+"/results/export", admin, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != spreadsheet.ContentTypeXLSX {
		t.Fatalf("results export: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "winter-olympiad-results.xlsx") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestImportSyncAndQueued(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin1", model.RoleAdmin)
	viewer := s.login("viewer1", model.RoleViewer)
	csv := "Name,Hire Date,Department,Qualification,Max Contestants,Employee ID\n" +
		"Layla Haddad,2019-09-01,Mathematics,MSc,5,\n" +
		"Omar,2099-01-01,Physics,PhD,5,\n"

	if rec := s.upload("/api/v1/supervisors/import?sync=true", viewer, "s.csv", csv); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer import: expected 403, got %d", rec.Code)
	}

	rec := s.upload("/api/v1/supervisors/import?sync=true", admin, "s.csv", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync import: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[service.BatchResult](t, rec)
	if res.SuccessCount != 1 || res.ErrorCount != 1 {
		t.Fatalf("unexpected batch result %+v", res)
	}

	rec = s.upload("/api/v1/supervisors/import", admin, "s.csv", csv)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("queued import: %d %s", rec.Code, rec.Body.String())
	}
	accepted := decode[map[string]string](t, rec)
	if len(s.queued) != 1 || s.queued[0] != accepted["job_id"] {
		t.Fatalf("job not queued: %v vs %v", s.queued, accepted)
	}

	rec = s.do(http.MethodGet, "/api/v1/imports/"+accepted["job_id"], viewer, nil)
	if rec.Code != http.StatusOK || decode[model.ImportJob](t, rec).Status != model.JobStatusQueued {
		t.Fatalf("job status: %d %s", rec.Code, rec.Body.String())
	}

	if rec := s.upload("/api/v1/supervisors/import", admin, "s.pdf", csv); rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported file: expected 400, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/v1/supervisors/export", viewer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	rows, err := spreadsheet.ReadRows("supervisors.xlsx", rec.Body.Bytes())
	if err != nil || len(rows) != 2 || rows[1][0] != "Layla Haddad" {
		t.Fatalf("unexpected export rows %v (%v)", rows, err)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
