package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func Test_application_cspViolation(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		logContains []string
	}{
		{
			name: "Blocked inline script on a plan",
			body: `{"csp-report": {"document-uri": "https://localhost/plans/0b0e2f4c-0000-4000-8000-000000000000", ` +
				`"effective-directive": "script-src-elem", "blocked-uri": "inline", "line-number": 12}}`,
			wantStatus:  http.StatusNoContent,
			logContains: []string{"CSP violation", "page=/plans/{id}", "directive=script-src-elem", "line_number=12"},
		},
		{
			name:        "Directive falls back to the violated one",
			body:        `{"csp-report": {"document-uri": "/trainer/steps/review", "violated-directive": "img-src"}}`,
			wantStatus:  http.StatusNoContent,
			logContains: []string{"page=/trainer/steps/review", "directive=img-src"},
		},
		{
			name:        "Invalid JSON",
			body:        `{"csp-report": `,
			wantStatus:  http.StatusBadRequest,
			logContains: []string{"rejected CSP report", "status=400"},
		},
		{
			name:        "Oversized report",
			body:        `{"csp-report": {"script-sample": "` + strings.Repeat("a", maxCSPReportSize) + `"}}`,
			wantStatus:  http.StatusRequestEntityTooLarge,
			logContains: []string{"rejected CSP report", "status=413"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			app := &application{ //nolint:exhaustruct // this is a test
				logger: slog.New(slog.NewTextHandler(&logs, nil)),
			}
			req := httptest.NewRequest(http.MethodPost, "/api/csp-violation", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/csp-report")
			w := httptest.NewRecorder()

			app.cspViolation(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			for _, want := range tt.logContains {
				if !strings.Contains(logs.String(), want) {
					t.Errorf("Expected log to contain %q, got: %s", want, logs.String())
				}
			}
		})
	}
}

var scriptNonce = regexp.MustCompile(`script-src 'nonce-([^']+)'`)

// checkNonce fails unless the page's script tags carry the nonce of its Content-Security-Policy and returns it.
func checkNonce(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	match := scriptNonce.FindStringSubmatch(resp.Header.Get("Content-Security-Policy"))
	if match == nil {
		t.Fatalf("Expected a script nonce in the CSP of %s, got %q",
			resp.Request.URL.Path, resp.Header.Get("Content-Security-Policy"))
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("Failed to parse %s: %v", resp.Request.URL.Path, err)
	}
	scripts := doc.Find("script")
	if scripts.Length() == 0 {
		t.Fatalf("Expected scripts on %s", resp.Request.URL.Path)
	}
	scripts.Each(func(_ int, s *goquery.Selection) {
		if got, _ := s.Attr("nonce"); got != match[1] {
			t.Errorf("Expected script nonce %q on %s, got %q", match[1], resp.Request.URL.Path, got)
		}
	})
	return match[1]
}

func Test_secureHeaders_nonce(t *testing.T) {
	ctx := t.Context()
	client := startTestServer(t).Client()

	plan, err := client.CompleteWizard(ctx)
	if err != nil {
		t.Fatalf("Failed to complete the wizard: %v", err)
	}

	seen := map[string]bool{}
	for _, path := range []string{basicInfoPath, reviewPath, plan.Url.Path} {
		t.Run(path, func(t *testing.T) {
			resp, err := client.Get(ctx, path)
			if err != nil {
				t.Fatalf("Failed to get %s: %v", path, err)
			}
			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()
				t.Fatalf("Expected status 200 for %s, got %d", path, resp.StatusCode)
			}
			nonce := checkNonce(t, resp)
			if seen[nonce] {
				t.Errorf("Nonce %q was reused", nonce)
			}
			seen[nonce] = true
		})
	}
}
