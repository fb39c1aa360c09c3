package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tracker/config"
	"tracker/repository"
	"tracker/testutils"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Field   string          `json:"field"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	app    *app
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	_, client := testutils.NewTestRedis(t)

	cfg := config.Config{
		Mode: config.StoreLocal,
		Auth: config.AuthConfig{
			JWTSecretKey: "test_secret",
			TokenTTL:     time.Hour,
			Issuer:       "tracker-test",
		},
		Reminders: config.ReminderConfig{
			CheckInterval: time.Hour,
			Lookahead:     5 * time.Minute,
		},
		Sessions: config.SessionConfig{
			TTL:          time.Hour,
			ReapInterval: time.Minute,
		},
	}
	store, identity := localBackend(client, "projectManager")
	a := newApp(cfg, store, identity, repository.NewPreferenceRepo(client, "projectManager"), utils.RealClock{})
	t.Cleanup(a.sessions.Shutdown)

	return &testServer{router: setupRouter(a), app: a}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func (s *testServer) login(t *testing.T, password string) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", w.Code, w.Body.String())
	}
	var out struct {
		Token   string `json:"token"`
		Session struct {
			SessionID string `json:"session_id"`
			Device    string `json:"device"`
		} `json:"session"`
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if out.Token == "" || out.Session.SessionID == "" {
		t.Fatalf("login response missing token or session: %s", w.Body.String())
	}
	return out.Token
}

func decodeList(t *testing.T, resp apiResponse) []map[string]interface{} {
	t.Helper()
	var items []map[string]interface{}
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	return items
}

func createProject(t *testing.T, s *testServer, token, name string) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/projects", token, map[string]string{"name": name})
	if w.Code != http.StatusCreated {
		t.Fatalf("create project returned %d: %s", w.Code, w.Body.String())
	}
	var project struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &project); err != nil || project.ID == "" {
		t.Fatalf("create project returned no id: %s", w.Body.String())
	}
	return project.ID
}

func TestAuthRoutes(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, s *testServer)
	}{
		{
			name: "First login establishes the password",
			run: func(t *testing.T, s *testServer) {
				s.login(t, "secret1")
				s.login(t, "secret1")
			},
		},
		{
			name: "Short first password is rejected",
			run: func(t *testing.T, s *testServer) {
				w, resp := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"password": "abc"})
				if w.Code != http.StatusBadRequest {
					t.Errorf("Expected 400, got %d", w.Code)
				}
				if resp.Field != "password" {
					t.Errorf("Expected field password, got %q", resp.Field)
				}
			},
		},
		{
			name: "Wrong password is unauthorized",
			run: func(t *testing.T, s *testServer) {
				s.login(t, "secret1")
				w, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"password": "wrong-one"})
				if w.Code != http.StatusUnauthorized {
					t.Errorf("Expected 401, got %d", w.Code)
				}
			},
		},
		{
			name: "Missing body is a bad request",
			run: func(t *testing.T, s *testServer) {
				w, _ := s.do(t, http.MethodPost, "/api/auth/login", "", []byte("{"))
				if w.Code != http.StatusBadRequest {
					t.Errorf("Expected 400, got %d", w.Code)
				}
			},
		},
		{
			name: "Protected routes require a token",
			run: func(t *testing.T, s *testServer) {
				w, _ := s.do(t, http.MethodGet, "/api/projects", "", nil)
				if w.Code != http.StatusUnauthorized {
					t.Errorf("Expected 401, got %d", w.Code)
				}
				w, _ = s.do(t, http.MethodGet, "/api/projects", "not-a-token", nil)
				if w.Code != http.StatusUnauthorized {
					t.Errorf("Expected 401 for garbage token, got %d", w.Code)
				}
			},
		},
		{
			name: "Logout ends the session behind the token",
			run: func(t *testing.T, s *testServer) {
				token := s.login(t, "secret1")
				if s.app.sessions.Count() != 1 {
					t.Fatalf("Expected 1 active session, got %d", s.app.sessions.Count())
				}

				w, _ := s.do(t, http.MethodPost, "/api/user/logout", token, nil)
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d", w.Code)
				}
				if s.app.sessions.Count() != 0 {
					t.Errorf("Expected no active sessions, got %d", s.app.sessions.Count())
				}

				w, _ = s.do(t, http.MethodGet, "/api/projects", token, nil)
				if w.Code != http.StatusUnauthorized {
					t.Errorf("Expected 401 after logout, got %d", w.Code)
				}
			},
		},
		{
			name: "Change password",
			run: func(t *testing.T, s *testServer) {
				token := s.login(t, "secret1")

				w, resp := s.do(t, http.MethodPost, "/api/user/change-password", token, map[string]string{
					"currentPassword": "secret1",
					"newPassword":     "secret2",
					"confirmPassword": "secret3",
				})
				if w.Code != http.StatusBadRequest || resp.Field != "confirmPassword" {
					t.Errorf("Expected mismatch on confirmPassword, got %d %q", w.Code, resp.Field)
				}

				w, _ = s.do(t, http.MethodPost, "/api/user/change-password", token, map[string]string{
					"currentPassword": "nope-nope",
					"newPassword":     "secret2",
					"confirmPassword": "secret2",
				})
				if w.Code != http.StatusUnauthorized {
					t.Errorf("Expected 401 for wrong current password, got %d", w.Code)
				}

				w, _ = s.do(t, http.MethodPost, "/api/user/change-password", token, map[string]string{
					"currentPassword": "secret1",
					"newPassword":     "secret2",
					"confirmPassword": "secret2",
				})
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
				}
				s.login(t, "secret2")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newTestServer(t))
		})
	}
}

func TestEntityRoutes(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, s *testServer, token string)
	}{
		{
			name: "Created project is listed immediately",
			run: func(t *testing.T, s *testServer, token string) {
				createProject(t, s, token, "Website")

				w, resp := s.do(t, http.MethodGet, "/api/projects", token, nil)
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d", w.Code)
				}
				items := decodeList(t, resp)
				if len(items) != 1 || items[0]["name"] != "Website" {
					t.Errorf("Unexpected projects: %v", items)
				}
				if items[0]["status"] != "active" || items[0]["priority"] != "medium" {
					t.Errorf("Expected defaults active/medium, got %v/%v", items[0]["status"], items[0]["priority"])
				}
			},
		},
		{
			name: "Blank name is rejected",
			run: func(t *testing.T, s *testServer, token string) {
				w, resp := s.do(t, http.MethodPost, "/api/projects", token, map[string]string{"name": "   "})
				if w.Code != http.StatusBadRequest || resp.Field != "name" {
					t.Errorf("Expected 400 on name, got %d %q", w.Code, resp.Field)
				}
			},
		},
		{
			name: "Update merges fields",
			run: func(t *testing.T, s *testServer, token string) {
				id := createProject(t, s, token, "Website")

				w, _ := s.do(t, http.MethodPut, "/api/projects/"+id, token, map[string]string{"status": "on-hold"})
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
				}

				_, resp := s.do(t, http.MethodGet, "/api/projects", token, nil)
				items := decodeList(t, resp)
				if items[0]["status"] != "on-hold" || items[0]["name"] != "Website" {
					t.Errorf("Unexpected project after update: %v", items[0])
				}
			},
		},
		{
			name: "Unknown id is not found",
			run: func(t *testing.T, s *testServer, token string) {
				w, _ := s.do(t, http.MethodPut, "/api/tasks/missing", token, map[string]string{"title": "x"})
				if w.Code != http.StatusNotFound {
					t.Errorf("Expected 404, got %d", w.Code)
				}
				w, _ = s.do(t, http.MethodDelete, "/api/reminders/missing", token, nil)
				if w.Code != http.StatusNotFound {
					t.Errorf("Expected 404, got %d", w.Code)
				}
			},
		},
		{
			name: "Deleting a project removes its tasks",
			run: func(t *testing.T, s *testServer, token string) {
				id := createProject(t, s, token, "Website")
				other := createProject(t, s, token, "Other")

				for _, pid := range []string{id, other} {
					w, _ := s.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "Task", "projectId": pid})
					if w.Code != http.StatusCreated {
						t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
					}
				}

				w, _ := s.do(t, http.MethodDelete, "/api/projects/"+id, token, nil)
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d", w.Code)
				}

				_, resp := s.do(t, http.MethodGet, "/api/tasks", token, nil)
				tasks := decodeList(t, resp)
				if len(tasks) != 1 || tasks[0]["projectId"] != other {
					t.Errorf("Expected only the other project's task, got %v", tasks)
				}
			},
		},
		{
			name: "Reminder can be marked notified",
			run: func(t *testing.T, s *testServer, token string) {
				w, resp := s.do(t, http.MethodPost, "/api/reminders", token, map[string]interface{}{
					"title":    "Call",
					"dateTime": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
				})
				if w.Code != http.StatusCreated {
					t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
				}
				var reminder struct {
					ID string `json:"id"`
				}
				_ = json.Unmarshal(resp.Data, &reminder)

				w, _ = s.do(t, http.MethodPost, "/api/reminders/"+reminder.ID+"/notified", token, nil)
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d", w.Code)
				}

				_, resp = s.do(t, http.MethodGet, "/api/reminders", token, nil)
				items := decodeList(t, resp)
				if len(items) != 1 || items[0]["notified"] != true {
					t.Errorf("Expected notified reminder, got %v", items)
				}

				w, _ = s.do(t, http.MethodPut, "/api/reminders/"+reminder.ID, token, map[string]bool{"notified": false})
				if w.Code != http.StatusBadRequest {
					t.Errorf("Expected 400 when clearing notified, got %d", w.Code)
				}
			},
		},
		{
			name: "Dashboard filters and validates",
			run: func(t *testing.T, s *testServer, token string) {
				id := createProject(t, s, token, "Website")
				s.do(t, http.MethodPut, "/api/projects/"+id, token, map[string]string{"status": "completed"})
				createProject(t, s, token, "Blog")

				w, resp := s.do(t, http.MethodGet, "/api/dashboard?projectStatus=active", token, nil)
				if w.Code != http.StatusOK {
					t.Fatalf("Expected 200, got %d", w.Code)
				}
				var dash struct {
					Stats struct {
						TotalProjects  int `json:"totalProjects"`
						ActiveProjects int `json:"activeProjects"`
					} `json:"stats"`
					Projects []struct {
						Name string `json:"name"`
					} `json:"projects"`
				}
				if err := json.Unmarshal(resp.Data, &dash); err != nil {
					t.Fatalf("failed to decode dashboard: %v", err)
				}
				if dash.Stats.TotalProjects != 2 || dash.Stats.ActiveProjects != 1 {
					t.Errorf("Unexpected stats: %+v", dash.Stats)
				}
				if len(dash.Projects) != 1 || dash.Projects[0].Name != "Blog" {
					t.Errorf("Expected only Blog, got %+v", dash.Projects)
				}

				w, resp = s.do(t, http.MethodGet, "/api/dashboard?projectStatus=archived", token, nil)
				if w.Code != http.StatusBadRequest || resp.Field != "projectStatus" {
					t.Errorf("Expected 400 on projectStatus, got %d %q", w.Code, resp.Field)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.run(t, s, s.login(t, "secret1"))
		})
	}
}

func TestBackupRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "secret1")
	createProject(t, s, token, "Website")

	w, _ := s.do(t, http.MethodGet, "/api/backup/export", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	disposition := w.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "project-manager-backup-") {
		t.Errorf("Unexpected Content-Disposition %q", disposition)
	}
	exported := w.Body.Bytes()

	replacement := []byte(`{"projects":[{"name":"Imported"},{"name":"Second"}],"tasks":[],"reminders":[]}`)

	w, _ = s.do(t, http.MethodPost, "/api/backup/import", token, replacement)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without confirmation, got %d", w.Code)
	}
	_, resp := s.do(t, http.MethodGet, "/api/projects", token, nil)
	if items := decodeList(t, resp); len(items) != 1 {
		t.Fatalf("Unconfirmed import changed data: %v", items)
	}

	w, _ = s.do(t, http.MethodPost, "/api/backup/import?confirm=true", token, []byte(`{"projects":"nope"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed file, got %d", w.Code)
	}

	w, _ = s.do(t, http.MethodPost, "/api/backup/import?confirm=true", token, replacement)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	_, resp = s.do(t, http.MethodGet, "/api/projects", token, nil)
	if items := decodeList(t, resp); len(items) != 2 {
		t.Errorf("Expected 2 imported projects, got %v", items)
	}

	w, _ = s.do(t, http.MethodPost, "/api/backup/import?confirm=true", token, exported)
	if w.Code != http.StatusOK {
		t.Fatalf("Re-importing an export failed: %d %s", w.Code, w.Body.String())
	}
	_, resp = s.do(t, http.MethodGet, "/api/projects", token, nil)
	items := decodeList(t, resp)
	if len(items) != 1 || items[0]["name"] != "Website" {
		t.Errorf("Expected the exported project back, got %v", items)
	}
}

func TestPreferenceRoutes(t *testing.T) {
	s := newTestServer(t)

	_, resp := s.do(t, http.MethodGet, "/api/preferences/theme", "", nil)
	if !strings.Contains(string(resp.Data), `"light"`) {
		t.Errorf("Expected light default, got %s", resp.Data)
	}

	w, _ := s.do(t, http.MethodPut, "/api/preferences/theme", "", map[string]string{"theme": "dark"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for an anonymous theme change, got %d", w.Code)
	}

	token := s.login(t, "secret1")
	w, _ = s.do(t, http.MethodPut, "/api/preferences/theme", token, map[string]string{"theme": "dark"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	_, resp = s.do(t, http.MethodGet, "/api/preferences/theme", token, nil)
	if !strings.Contains(string(resp.Data), `"dark"`) {
		t.Errorf("Expected dark, got %s", resp.Data)
	}
	// The login screen reads the local user's theme.
	_, resp = s.do(t, http.MethodGet, "/api/preferences/theme", "", nil)
	if !strings.Contains(string(resp.Data), `"dark"`) {
		t.Errorf("Expected dark before login, got %s", resp.Data)
	}

	w, resp = s.do(t, http.MethodPut, "/api/preferences/theme", token, map[string]string{"theme": "purple"})
	if w.Code != http.StatusBadRequest || resp.Field != "theme" {
		t.Errorf("Expected 400 on theme, got %d %q", w.Code, resp.Field)
	}
}

func TestHealthAndMiddleware(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers")
	}

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("Expected prometheus output, got %d", w.Code)
	}

	big := bytes.Repeat([]byte("a"), maxBodySize+1)
	w, _ = s.do(t, http.MethodPost, "/api/auth/login", "", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}
}
