package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/aitrainer/internal/e2etest"
)

const (
	basicInfoPath = "/trainer/steps/basic-info"
	healthPath    = "/trainer/steps/health-details"
	prefsPath     = "/trainer/steps/preferences"
	reviewPath    = "/trainer/steps/review"
)

// stepForm returns the values of the step form in doc with overrides applied and action set.
func stepForm(t *testing.T, doc *goquery.Document, path, action string, overrides url.Values) url.Values {
	t.Helper()
	form, err := e2etest.FindForm(doc, path)
	if err != nil {
		t.Fatalf("Failed to find form %s: %v", path, err)
	}
	values := e2etest.FormValues(form)
	for k, vs := range overrides {
		values[k] = vs
	}
	values.Set("action", action)
	return values
}

func postStep(
	t *testing.T,
	client *e2etest.Client,
	doc *goquery.Document,
	path, action string,
	overrides url.Values,
) *goquery.Document {
	t.Helper()
	next, err := client.PostForm(t.Context(), path, stepForm(t, doc, path, action, overrides))
	if err != nil {
		t.Fatalf("Failed to post %s action %s: %v", path, action, err)
	}
	return next
}

func checkPath(t *testing.T, doc *goquery.Document, want string) {
	t.Helper()
	if doc.Url.Path != want {
		t.Fatalf("Expected to be on %s, got %s", want, doc.Url.Path)
	}
}

func inputValue(doc *goquery.Document, name string) string {
	v, _ := doc.Find("input[name='" + name + "']").Attr("value")
	return v
}

func Test_application_wizard(t *testing.T) {
	ctx := t.Context()
	server := startTestServer(t)
	client := server.Client()

	doc, err := client.GetDoc(ctx, "/trainer")
	if err != nil {
		t.Fatalf("Failed to get trainer: %v", err)
	}
	checkPath(t, doc, basicInfoPath)

	t.Run("Later steps redirect to the current step", func(t *testing.T) {
		for _, path := range []string{healthPath, prefsPath, reviewPath} {
			got, err := client.GetDoc(ctx, path)
			if err != nil {
				t.Fatalf("Failed to get %s: %v", path, err)
			}
			checkPath(t, got, basicInfoPath)
		}
	})

	t.Run("Generating before completing the wizard goes back to the current step", func(t *testing.T) {
		got, err := client.PostForm(ctx, "/trainer/generate", url.Values{})
		if err != nil {
			t.Fatalf("Failed to post generate: %v", err)
		}
		checkPath(t, got, basicInfoPath)
	})

	t.Run("Toggling units twice drifts through rounding", func(t *testing.T) {
		imperial := postStep(t, client, doc, basicInfoPath, "toggle-units", url.Values{
			"height": {"170"},
			"weight": {"65"},
		})
		checkPath(t, imperial, basicInfoPath)
		if got := inputValue(imperial, "units"); got != "imperial" {
			t.Errorf("Expected imperial units, got %q", got)
		}
		if got := inputValue(imperial, "height"); got != "6" {
			t.Errorf("Expected height 6 ft, got %q", got)
		}
		if got := inputValue(imperial, "weight"); got != "143" {
			t.Errorf("Expected weight 143 lb, got %q", got)
		}

		metric := postStep(t, client, imperial, basicInfoPath, "toggle-units", nil)
		if got := inputValue(metric, "height"); got != "183" {
			t.Errorf("Expected height to drift to 183 cm, got %q", got)
		}
		if got := inputValue(metric, "weight"); got != "65" {
			t.Errorf("Expected weight 65 kg, got %q", got)
		}
	})

	t.Run("Invalid basic info is rejected", func(t *testing.T) {
		values := stepForm(t, doc, basicInfoPath, "submit", url.Values{"height": {"0"}, "bodyFat": {"150"}})
		_, err := client.PostForm(ctx, basicInfoPath, values)
		var statusErr *e2etest.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %v", err)
		}
	})

	t.Run("Basic info", func(t *testing.T) {
		doc = postStep(t, client, doc, basicInfoPath, "submit", url.Values{
			"gender":    {"female"},
			"age":       {"30"},
			"height":    {"165"},
			"weight":    {"60"},
			"goal":      {"fat-loss"},
			"intensity": {"mild"},
		})
		checkPath(t, doc, healthPath)
		if got := doc.Find("p:contains('bpm') strong").Text(); got != "190" {
			t.Errorf("Expected maximum heart rate 190, got %q", got)
		}
	})

	t.Run("Health details", func(t *testing.T) {
		doc = postStep(t, client, doc, healthPath, "toggle-part:torso", nil)
		checkPath(t, doc, healthPath)
		if doc.Find("input[name='pending'][value='torso']").Length() != 1 {
			t.Fatal("Expected torso to await a description")
		}

		doc = postStep(t, client, doc, healthPath, "add-injury:torso", url.Values{
			"description-torso": {"old strain"},
		})
		if got := inputValue(doc, "injuryDescription"); got != "old strain" {
			t.Errorf("Expected recorded injury, got %q", got)
		}

		doc = postStep(t, client, doc, healthPath, "add-restriction", url.Values{"newRestriction": {"No peanuts"}})
		doc = postStep(t, client, doc, healthPath, "add-restriction", url.Values{"newRestriction": {" no PEANUTS "}})
		if got := doc.Find("input[name='customRestriction']").Length(); got != 1 {
			t.Errorf("Expected one custom restriction, got %d", got)
		}

		doc = postStep(t, client, doc, healthPath, "submit", url.Values{
			"condition":   {"asthma"},
			"restriction": {"halal"},
			"frequency":   {"4"},
		})
		checkPath(t, doc, prefsPath)
	})

	t.Run("Back keeps the committed health details", func(t *testing.T) {
		back, err := client.PostForm(ctx, "/trainer/back", url.Values{})
		if err != nil {
			t.Fatalf("Failed to go back: %v", err)
		}
		checkPath(t, back, healthPath)
		if back.Find("input[name='condition'][value='asthma'][checked]").Length() != 1 {
			t.Error("Expected asthma to stay selected")
		}
		doc = postStep(t, client, back, healthPath, "submit", nil)
		checkPath(t, doc, prefsPath)
	})

	t.Run("Preferences", func(t *testing.T) {
		doc = postStep(t, client, doc, prefsPath, "taste-up:2", nil)
		var tastes []string
		doc.Find("input[name='taste']").Each(func(_ int, s *goquery.Selection) {
			v, _ := s.Attr("value")
			tastes = append(tastes, v)
		})
		if strings.Join(tastes, ",") != "sweet,spicy,salty,sour,bitter" {
			t.Errorf("Expected spicy moved up, got %v", tastes)
		}

		doc = postStep(t, client, doc, prefsPath, "add-ingredient", url.Values{"newIngredient": {"durian"}})
		doc = postStep(t, client, doc, prefsPath, "submit", url.Values{
			"disliked":       {"running"},
			"equipment":      {"dumbbell", "yoga-mat"},
			"exercisePeriod": {"2"},
			"style":          {"flexible"},
		})
		checkPath(t, doc, reviewPath)
	})

	t.Run("Review", func(t *testing.T) {
		text := doc.Find("main").Text()
		for _, want := range []string{"Female", "Asthma", "Torso: old strain", "No peanuts", "durian", "Flexible"} {
			if !strings.Contains(text, want) {
				t.Errorf("Expected review to contain %q", want)
			}
		}
		if doc.Find("li.custom:contains('durian')").Length() != 1 {
			t.Error("Expected the custom ingredient to be marked as custom")
		}
	})

	t.Run("Edit from review returns to review", func(t *testing.T) {
		edit, err := client.PostForm(ctx, "/trainer/edit/basic-info", url.Values{})
		if err != nil {
			t.Fatalf("Failed to edit: %v", err)
		}
		checkPath(t, edit, basicInfoPath)
		if edit.Find("button:contains('Save and review')").Length() != 1 {
			t.Error("Expected a save and review button")
		}
		doc = postStep(t, client, edit, basicInfoPath, "submit", url.Values{"age": {"40"}})
		checkPath(t, doc, reviewPath)
	})

	t.Run("Generate", func(t *testing.T) {
		doc, err = client.PostForm(ctx, "/trainer/generate", url.Values{})
		if err != nil {
			t.Fatalf("Failed to generate: %v", err)
		}
		if !strings.HasPrefix(doc.Url.Path, "/plans/") {
			t.Fatalf("Expected to land on the plan, got %s", doc.Url.Path)
		}
		if got := doc.Find(".plan-workout h2").Text(); !strings.Contains(got, "Weekly schedule") {
			t.Errorf("Expected rendered workout markdown, got %q", got)
		}
		if got := doc.Find(".plan-workout").Text(); !strings.Contains(got, "Avoid loading the torso: old strain") {
			t.Errorf("Expected injury precautions in the workout, got %q", got)
		}
	})

	planPath := doc.Url.Path
	planID := strings.TrimPrefix(planPath, "/plans/")

	t.Run("Plan is listed and claimed on registration", func(t *testing.T) {
		stored, err := server.Plan(ctx, planID)
		if err != nil {
			t.Fatalf("Failed to look up stored plan: %v", err)
		}
		if stored.Generator != "rules" || stored.UserID != 0 {
			t.Errorf("Expected an anonymous rules plan, got %+v", stored)
		}

		plans, err := client.GetDoc(ctx, "/plans")
		if err != nil {
			t.Fatalf("Failed to get plans: %v", err)
		}
		if plans.Find("a[href='"+planPath+"']").Length() != 1 {
			t.Fatalf("Expected %s to be listed", planPath)
		}

		if _, err = client.Register(ctx); err != nil {
			t.Fatalf("Failed to register: %v", err)
		}
		if stored, err = server.Plan(ctx, planID); err != nil || stored.UserID == 0 {
			t.Errorf("Expected the plan to be claimed on registration, got %+v, %v", stored, err)
		}
		if _, err = client.Logout(ctx); err != nil {
			t.Fatalf("Failed to log out: %v", err)
		}
		resp, err := client.Get(ctx, planPath)
		if err != nil {
			t.Fatalf("Failed to get plan: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected the claimed plan to be hidden after logout, got %d", resp.StatusCode)
		}

		if _, err = client.Login(ctx); err != nil {
			t.Fatalf("Failed to log in: %v", err)
		}
		if _, err = client.GetDoc(ctx, planPath); err != nil {
			t.Errorf("Expected the plan to belong to the account: %v", err)
		}
	})

	t.Run("Reset starts over", func(t *testing.T) {
		home, err := client.GetDoc(ctx, "/")
		if err != nil {
			t.Fatalf("Failed to get home: %v", err)
		}
		values := e2etest.FormValues(home.Find("form[action='/trainer/reset']"))
		got, err := client.PostForm(ctx, "/trainer/reset", values)
		if err != nil {
			t.Fatalf("Failed to reset: %v", err)
		}
		checkPath(t, got, basicInfoPath)
		if got := inputValue(got, "height"); got != "170" {
			t.Errorf("Expected default height after reset, got %q", got)
		}
	})
}

func Test_application_medicalReportUpload(t *testing.T) {
	ctx := t.Context()
	client := startTestServer(t).Client()

	doc, err := client.GetDoc(ctx, basicInfoPath)
	if err != nil {
		t.Fatalf("Failed to get basic info: %v", err)
	}
	doc = postStep(t, client, doc, basicInfoPath, "submit", nil)
	checkPath(t, doc, healthPath)

	t.Run("Unsupported type is rejected", func(t *testing.T) {
		values := stepForm(t, doc, healthPath, "submit", nil)
		_, err := client.PostMultipart(ctx, healthPath, values, "medicalReport", "labs.xlsx",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("xlsx"))
		var statusErr *e2etest.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %v", err)
		}
	})

	t.Run("Report survives re-renders", func(t *testing.T) {
		values := stepForm(t, doc, healthPath, "add-restriction", url.Values{"newRestriction": {"low sodium"}})
		doc, err = client.PostMultipart(ctx, healthPath, values, "medicalReport", "report.pdf",
			"application/pdf", []byte("%PDF-1.4"))
		if err != nil {
			t.Fatalf("Failed to upload report: %v", err)
		}
		if got := inputValue(doc, "reportName"); got != "report.pdf" {
			t.Fatalf("Expected report name carried in the form, got %q", got)
		}

		doc = postStep(t, client, doc, healthPath, "submit", nil)
		checkPath(t, doc, prefsPath)
		doc = postStep(t, client, doc, prefsPath, "submit", nil)
		checkPath(t, doc, reviewPath)
		if !strings.Contains(doc.Find("main").Text(), "report.pdf") {
			t.Error("Expected the report name on the review")
		}
	})
}
