// Package testkit drives HTTP handlers from JSON scenario files.
//
//	testdata/
//	  checkout.json          ← one scenario, or an array of scenarios
//	  checkout_req.json      ← request body (optional)
//
//	func TestAPI(t *testing.T) {
//	    testkit.RunDir(t, handler, "testdata")
//	}
//
// A scenario may carry "asAdmin": true to send an admin bearer token, and
// "expectMails": n to assert how many emails the request sent.
package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestBody     json.RawMessage   `json:"requestBody"`
	RequestFileName string            `json:"requestFileName"`
	Headers         map[string]string `json:"headers"`
	AsAdmin         bool              `json:"asAdmin"`

	ExpectedCode int `json:"expectedCode"`
	// ResponseContains is matched as a subset: every key it lists must be
	// present with an equal value, other keys are ignored.
	ResponseContains json.RawMessage `json:"responseContains"`
	ResponseFileName string          `json:"responseFileName"`
	ExpectMails      *int            `json:"expectMails"`

	dir string
}

func LoadScenario(path string) (*Scenario, error) {
	list, err := LoadScenarios(path)
	if err != nil {
		return nil, err
	}
	if len(list) != 1 {
		return nil, fmt.Errorf("testkit: %s holds %d scenarios, want 1", path, len(list))
	}
	return list[0], nil
}

// LoadScenarios reads a file holding either one scenario object or an array.
func LoadScenarios(path string) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	var list []*Scenario
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("testkit: parse %s: %w", path, err)
		}
	} else {
		var s Scenario
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("testkit: parse %s: %w", path, err)
		}
		list = []*Scenario{&s}
	}

	for i, s := range list {
		s.dir = filepath.Dir(abs)
		if s.Name == "" {
			s.Name = fmt.Sprintf("%s#%d", filepath.Base(path), i)
		}
		if s.ExpectedCode == 0 {
			s.ExpectedCode = 200
		}
		if s.RequestFileName != "" && len(s.RequestBody) > 0 {
			return nil, fmt.Errorf("testkit: %s: requestBody and requestFileName are exclusive", s.Name)
		}
	}
	return list, nil
}

// Body returns the request payload, reading requestFileName relative to the
// scenario file.
func (s *Scenario) Body() ([]byte, error) {
	if s.RequestFileName != "" {
		return os.ReadFile(s.resolve(s.RequestFileName))
	}
	return s.RequestBody, nil
}

func (s *Scenario) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}
