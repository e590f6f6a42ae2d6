package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/aitrainer/internal/e2etest"
	"github.com/myrjola/aitrainer/internal/logging"
	"github.com/myrjola/aitrainer/internal/testhelpers"
)

const (
	authTimeout = 10 * time.Second
	// planTimeout matches the server's plan generation timeout.
	planTimeout = time.Minute
)

func TestAuth(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	var err error

	if _, err = client.Register(ctx); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if _, err = client.Login(ctx); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// TestPlan walks the trainer with the prefilled answers and checks that the plan shows up in the plan list.
func TestPlan(client *e2etest.Client) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
	defer cancel()

	doc, err := client.CompleteWizard(ctx)
	if err != nil {
		return "", fmt.Errorf("complete wizard: %w", err)
	}
	planPath := doc.Url.Path
	if strings.TrimSpace(doc.Find(".plan-workout").Text()) == "" {
		return "", fmt.Errorf("plan %s has no workout", planPath)
	}
	if doc, err = client.GetDoc(ctx, "/plans"); err != nil {
		return "", fmt.Errorf("get plans: %w", err)
	}
	if doc.Find("a[href='"+planPath+"']").Length() == 0 {
		return "", fmt.Errorf("plan %s not listed", planPath)
	}
	return planPath, nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}

	if client, err = e2etest.NewClient(url, hostname, url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}
	if err = TestAuth(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing auth", slog.Any("error", err))
		os.Exit(1)
	}
	planPath, err := TestPlan(client)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing plan generation", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌",
		slog.String("plan", planPath), slog.Duration("duration", time.Since(start)))
	os.Exit(0)
}
