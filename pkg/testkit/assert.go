package testkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usgears/storefront/pkg/mail"
)

func AssertStatusCode(t *testing.T, s *Scenario, got int, body []byte) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch\nbody: %s", s.Name, body)
}

// AssertJSONSubset checks that every value in expected appears in actual.
// Arrays must have equal length and match element-wise.
func AssertJSONSubset(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal), "[%s] expected JSON is invalid", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "[%s] response is not JSON\nbody: %s", s.Name, actual) {
		return
	}
	for _, d := range DiffJSON("", expVal, actVal) {
		t.Errorf("[%s] %s", s.Name, d)
	}
}

// AssertMailCount waits briefly, since mail may be sent from a queue worker.
func AssertMailCount(t *testing.T, s *Scenario, want int, outbox *mail.Recorder) {
	t.Helper()
	if want == 0 {
		assert.Empty(t, outbox.Sent(), "[%s] expected no mail", s.Name)
		return
	}
	assert.Eventually(t, func() bool { return len(outbox.Sent()) == want }, 2*time.Second, 10*time.Millisecond,
		"[%s] expected %d mails", s.Name, want)
}

// DiffJSON lists the places where actual does not contain expected.
func DiffJSON(path string, expected, actual any) []string {
	var diffs []string
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected object, got %T", keyPath(path), actual)}
		}
		for k, ev := range exp {
			av, exists := act[k]
			if !exists {
				diffs = append(diffs, fmt.Sprintf("%s.%s: missing", keyPath(path), k))
				continue
			}
			diffs = append(diffs, DiffJSON(path+"."+k, ev, av)...)
		}
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %T", keyPath(path), actual)}
		}
		if len(exp) != len(act) {
			return []string{fmt.Sprintf("%s: array length expected=%d actual=%d", keyPath(path), len(exp), len(act))}
		}
		for i := range exp {
			diffs = append(diffs, DiffJSON(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i])...)
		}
	default:
		if !assert.ObjectsAreEqual(expected, actual) {
			diffs = append(diffs, fmt.Sprintf("%s: expected %v, got %v", keyPath(path), expected, actual))
		}
	}
	return diffs
}

func keyPath(path string) string {
	if path == "" {
		return "root"
	}
	return strings.TrimPrefix(path, ".")
}
