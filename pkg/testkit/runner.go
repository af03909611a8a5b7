package testkit

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/mail"
)

// AdminIdentity is the caller used for "asAdmin" scenarios.
var AdminIdentity = auth.Identity{UserID: "64b7f0c2e4b0a1a2b3c4d500", Email: "admin@usgears.test", Role: auth.RoleAdmin}

// Run executes every scenario in path against handler.
func Run(t *testing.T, handler http.Handler, path string) {
	t.Helper()
	list, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("testkit: %v", err)
	}
	for _, s := range list {
		s := s
		t.Run(s.Name, func(t *testing.T) { Exec(t, handler, s) })
	}
}

// RunDir runs every *.json in dir whose name does not end in _req.json or
// _res.json.
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("testkit: glob %s: %v", dir, err)
	}
	sort.Strings(paths)

	ran := 0
	for _, p := range paths {
		if strings.HasSuffix(p, "_req.json") || strings.HasSuffix(p, "_res.json") {
			continue
		}
		Run(t, handler, p)
		ran++
	}
	if ran == 0 {
		t.Fatalf("testkit: no scenario files in %s", dir)
	}
}

// Exec fires one scenario and checks its expectations.
func Exec(t *testing.T, handler http.Handler, s *Scenario) *httptest.ResponseRecorder {
	t.Helper()

	body, err := s.Body()
	if err != nil {
		t.Fatalf("[%s] read request body: %v", s.Name, err)
	}

	method := strings.ToUpper(s.RequestMethod)
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, s.RequestURL, bytes.NewReader(body))
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.AsAdmin {
		token, err := auth.GenerateToken(AdminIdentity)
		if err != nil {
			t.Fatalf("[%s] admin token: %v", s.Name, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	outbox := &mail.Recorder{}
	restore := mail.SetTransport(outbox)
	defer restore()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())
	if len(s.ResponseContains) > 0 {
		AssertJSONSubset(t, s, s.ResponseContains, rec.Body.Bytes())
	}
	if s.ResponseFileName != "" {
		expected, err := os.ReadFile(s.resolve(s.ResponseFileName))
		if err != nil {
			t.Errorf("[%s] read response file: %v", s.Name, err)
		} else {
			AssertJSONSubset(t, s, expected, rec.Body.Bytes())
		}
	}
	if s.ExpectMails != nil {
		AssertMailCount(t, s, *s.ExpectMails, outbox)
	}
	return rec
}
