package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/myrjola/aitrainer/internal/testhelpers"
)

func Test_application_routeDeadlines(t *testing.T) {
	const (
		writeTimeout = 100 * time.Millisecond
		handlerDelay = 3 * writeTimeout
	)
	app := &application{ //nolint:exhaustruct // this is a test
		logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
	}
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(handlerDelay)
		_, _ = w.Write([]byte("plan"))
	})
	mux := http.NewServeMux()
	mux.Handle(generatePattern, slow)
	mux.Handle("POST /trainer/steps/{step}", slow)

	srv := httptest.NewUnstartedServer(app.routeDeadlines(mux))
	srv.Config.WriteTimeout = writeTimeout
	srv.Start()
	defer srv.Close()

	tests := []struct {
		name      string
		path      string
		delivered bool
	}{
		{name: "Generation outlives the server write timeout", path: "/trainer/generate", delivered: true},
		{name: "Other routes keep the server write timeout", path: "/trainer/steps/basic-info", delivered: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+tt.path, nil)
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}
			resp, err := srv.Client().Do(req)
			if !tt.delivered {
				if err == nil {
					_ = resp.Body.Close()
					t.Errorf("Expected the response to %s to be cut off, got %d", tt.path, resp.StatusCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to post %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("Expected status 200, got %d", resp.StatusCode)
			}
		})
	}
}

func Test_application_healthy(t *testing.T) {
	client := startTestServer(t).Client()
	resp, err := client.Get(t.Context(), "/api/healthy")
	if err != nil {
		t.Fatalf("Failed to get health: %v", err)
	}
	defer resp.Body.Close()

	var got healthReport
	if err = json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode health report: %v", err)
	}
	if want := (healthReport{Status: "ok", Generator: "rules"}); got != want {
		t.Errorf("health = %+v, want %+v", got, want)
	}
}
