package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/aitrainer/internal/e2etest"
	"github.com/myrjola/aitrainer/internal/testhelpers"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "AITRAINER_SQLITE_URL":
		return ":memory:", true
	case "AITRAINER_ADDR":
		return "localhost:0", true
	default:
		return "", false
	}
}

func startTestServer(t *testing.T) *e2etest.Server {
	t.Helper()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	return server
}

func Test_application_home(t *testing.T) {
	var (
		ctx = t.Context()
		doc *goquery.Document
		err error
	)
	client := startTestServer(t).Client()

	t.Run("Initial state", func(t *testing.T) {
		doc, err = client.GetDoc(ctx, "/")
		if err != nil {
			t.Fatalf("Failed to get document: %v", err)
		}

		checkButtonPresence(t, doc, "Sign in", 1)
		checkButtonPresence(t, doc, "Register", 1)
		checkButtonPresence(t, doc, "Sign out", 0)
		if got := doc.Find("a[href='/trainer']").Text(); !strings.Contains(got, "Get started") {
			t.Errorf("Expected a 'Get started' link to the trainer, got %q", got)
		}
		if got := doc.Find(".generator code").Text(); got != "rules" {
			t.Errorf("Expected the rule generator without an API key, got %q", got)
		}
	})

	t.Run("After registration", func(t *testing.T) {
		doc, err = client.Register(ctx)
		if err != nil {
			t.Fatalf("Failed to register: %v", err)
		}

		checkButtonPresence(t, doc, "Sign in", 0)
		checkButtonPresence(t, doc, "Register", 0)
		checkButtonPresence(t, doc, "Sign out", 1)
	})

	t.Run("After logout", func(t *testing.T) {
		doc, err = client.Logout(ctx)
		if err != nil {
			t.Fatalf("Failed to logout: %v", err)
		}

		checkButtonPresence(t, doc, "Sign in", 1)
		checkButtonPresence(t, doc, "Register", 1)
	})

	t.Run("After login", func(t *testing.T) {
		doc, err = client.Login(ctx)
		if err != nil {
			t.Fatalf("Failed to login: %v", err)
		}

		checkButtonPresence(t, doc, "Sign in", 0)
		checkButtonPresence(t, doc, "Register", 0)
	})
}

func Test_application_language(t *testing.T) {
	ctx := t.Context()
	client := startTestServer(t).Client()

	doc, err := client.GetDoc(ctx, "/plans")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if lang, _ := doc.Find("html").Attr("lang"); lang != "en" {
		t.Errorf("Expected lang en, got %q", lang)
	}

	form, err := e2etest.FindForm(doc, "/language")
	if err != nil {
		t.Fatalf("Failed to find language form: %v", err)
	}
	values := e2etest.FormValues(form)
	values.Set("language", "zh")
	if doc, err = client.PostForm(ctx, "/language", values); err != nil {
		t.Fatalf("Failed to switch language: %v", err)
	}

	if doc.Url.Path != "/plans" {
		t.Errorf("Expected to return to /plans, got %s", doc.Url.Path)
	}
	if lang, _ := doc.Find("html").Attr("lang"); lang != "zh" {
		t.Errorf("Expected lang zh, got %q", lang)
	}
	if got := doc.Find("h1").First().Text(); got != "你的计划" {
		t.Errorf("Expected translated heading, got %q", got)
	}
}

func checkButtonPresence(t *testing.T, doc *goquery.Document, buttonText string, expectedCount int) {
	t.Helper()
	count := doc.Find("button:contains('" + buttonText + "')").Length()
	if count != expectedCount {
		t.Errorf("Expected %d '%s' button(s), but found %d", expectedCount, buttonText, count)
	}
}

func Test_crossOriginProtection(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL()+"/trainer/reset", nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected cross-origin POST to be rejected with 403, got %d", resp.StatusCode)
	}
}
