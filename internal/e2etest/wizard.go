package e2etest

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// wizardSteps are the form actions of the trainer steps in order.
//
//nolint:gochecknoglobals // fixed route list.
var wizardSteps = []string{
	"/trainer/steps/basic-info",
	"/trainer/steps/health-details",
	"/trainer/steps/preferences",
}

// CompleteWizard walks the trainer from the first step, submitting each step with the values prefilled in its form,
// and generates a plan. It returns the plan document.
func (c *Client) CompleteWizard(ctx context.Context) (*goquery.Document, error) {
	doc, err := c.PostForm(ctx, "/trainer/reset", nil)
	if err != nil {
		return nil, fmt.Errorf("reset wizard: %w", err)
	}
	for _, step := range wizardSteps {
		if doc.Url.Path != step {
			return nil, fmt.Errorf("expected step %s, got %s", step, doc.Url.Path)
		}
		var form *goquery.Selection
		if form, err = FindForm(doc, step); err != nil {
			return nil, fmt.Errorf("find form: %w", err)
		}
		values := FormValues(form)
		values.Set("action", "submit")
		if doc, err = c.PostForm(ctx, step, values); err != nil {
			return nil, fmt.Errorf("submit %s: %w", step, err)
		}
	}
	if doc, err = c.PostForm(ctx, "/trainer/generate", nil); err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	if !strings.HasPrefix(doc.Url.Path, "/plans/") {
		return nil, fmt.Errorf("expected a plan page, got %s", doc.Url.Path)
	}
	return doc, nil
}
