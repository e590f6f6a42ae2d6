package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"
)

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleepMS  int
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleepMS:  500,
			timesOut: false,
		},
		{
			name:     "completes just before the timeout",
			sleepMS:  1700,
			timesOut: false,
		},
		{
			name:     "times out",
			sleepMS:  1900,
			timesOut: true,
		},
		{
			name:     "times out on long handler",
			sleepMS:  3000,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := &application{ //nolint:exhaustruct // this is a test
					logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
				}
				handler := app.timeout(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					select {
					case <-time.After(time.Duration(tt.sleepMS) * time.Millisecond):
						w.WriteHeader(http.StatusOK)
					case <-r.Context().Done():
					}
				}))

				req := httptest.NewRequest(http.MethodPost, "/trainer/steps/basic-info", nil)
				w := httptest.NewRecorder()

				handler.ServeHTTP(w, req)

				time.Sleep(time.Duration(tt.sleepMS) * time.Millisecond)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_handlerTimeout(t *testing.T) {
	tests := []struct {
		pattern string
		want    time.Duration
	}{
		{pattern: generatePattern, want: generateTimeout},
		{pattern: "POST /trainer/steps/{step}", want: defaultTimeout - 200*time.Millisecond},
		{pattern: "GET /plans/{id}", want: defaultTimeout - 200*time.Millisecond},
		{pattern: "", want: defaultTimeout - 200*time.Millisecond},
	}
	for _, tt := range tests {
		if got := handlerTimeout(tt.pattern); got != tt.want {
			t.Errorf("handlerTimeout(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
	if generateTimeout <= defaultTimeout {
		t.Errorf("generateTimeout %v must exceed the server default %v", generateTimeout, defaultTimeout)
	}
}

func Test_commonContext_language(t *testing.T) {
	tests := []struct {
		name           string
		cookie         string
		acceptLanguage string
		want           string
	}{
		{name: "default", want: "en"},
		{name: "accept language", acceptLanguage: "zh-CN,zh;q=0.9", want: "zh"},
		{name: "cookie wins", cookie: "en", acceptLanguage: "zh-CN", want: "en"},
		{name: "unsupported cookie ignored", cookie: "fi", acceptLanguage: "zh", want: "zh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: languageCookie, Value: tt.cookie}) //nolint:exhaustruct // test
			}
			if tt.acceptLanguage != "" {
				req.Header.Set("Accept-Language", tt.acceptLanguage)
			}
			var got string
			commonContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = string(newBaseTemplateData(r).Language)
			})).ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("language = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_localPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/", want: true},
		{path: "/trainer/steps/review", want: true},
		{path: "/plans?page=2", want: true},
		{path: "", want: false},
		{path: "trainer", want: false},
		{path: "//evil.example", want: false},
		{path: "/\\evil.example", want: false},
		{path: "https://evil.example/", want: false},
	}
	for _, tt := range tests {
		if got := localPath(tt.path); got != tt.want {
			t.Errorf("localPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
