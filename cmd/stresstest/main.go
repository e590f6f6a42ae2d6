package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/aitrainer/internal/e2etest"
	"github.com/myrjola/aitrainer/internal/logging"
	"github.com/myrjola/aitrainer/internal/testhelpers"
	"golang.org/x/sync/errgroup"
)

const (
	userRegistrationTimeout = 30 * time.Second
	scenarioTimeout         = 90 * time.Second
	maxConcurrentUsers      = 10
	maxConcurrentScenarios  = 20
	successRateThreshold    = 95.0
	expectedArgsCount       = 2
	percentageMultiplier    = 100
	numUsers                = 10
	// anonymousVisitors walk the wizard without an account next to the registered users.
	anonymousVisitors = 10
)

// Visitor holds a client with its own session.
type Visitor struct {
	Client *e2etest.Client
	Name   string
}

// SetupVisitors creates users registered visitors followed by anonymous ones.
func SetupVisitors(
	ctx context.Context,
	url, hostname string,
	users, anonymous int,
	logger *slog.Logger,
) ([]*Visitor, error) {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting visitor setup",
		slog.Int("num_users", users), slog.Int("num_anonymous", anonymous))

	visitors := make([]*Visitor, users+anonymous)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUsers)
	for i := range visitors {
		g.Go(func() error {
			client, err := e2etest.NewClient(url, hostname, url)
			if err != nil {
				return fmt.Errorf("creating client for visitor %d: %w", i, err)
			}
			name := fmt.Sprintf("anonymous_%d", i)
			if i < users {
				name = fmt.Sprintf("user_%d", i)
				userCtx, cancel := context.WithTimeout(ctx, userRegistrationTimeout)
				defer cancel()
				if _, err = client.Register(userCtx); err != nil {
					return fmt.Errorf("registering user %d: %w", i, err)
				}
			}
			visitors[i] = &Visitor{Client: client, Name: name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("visitor setup: %w", err)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "All visitors ready", slog.Int("total_visitors", len(visitors)))
	return visitors, nil
}

// PlanScenario walks the wizard, generates a plan and opens the plan list like a real visitor would.
func PlanScenario(ctx context.Context, v *Visitor, logger *slog.Logger) error {
	doc, err := v.Client.CompleteWizard(ctx)
	if err != nil {
		return fmt.Errorf("complete wizard: %w", err)
	}
	planPath := doc.Url.Path
	if doc, err = v.Client.GetDoc(ctx, "/plans"); err != nil {
		return fmt.Errorf("get plans: %w", err)
	}
	if doc.Find("a[href='"+planPath+"']").Length() == 0 {
		return fmt.Errorf("plan %s not listed", planPath)
	}

	logger.LogAttrs(ctx, slog.LevelDebug, "Plan scenario completed",
		slog.String("visitor", v.Name),
		slog.String("plan", planPath))
	return nil
}

// RunLoadTest runs PlanScenario for every visitor concurrently.
func RunLoadTest(ctx context.Context, visitors []*Visitor, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_visitors", len(visitors)))

	var successCount, failureCount atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentScenarios)
	for _, v := range visitors {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			if err := PlanScenario(scenarioCtx, v, logger); err != nil {
				failureCount.Add(1)
				// Individual failures are counted against the success rate instead of stopping the test.
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.String("visitor", v.Name),
					slog.Any("error", err))
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount.Load()) / float64(len(visitors)) * percentageMultiplier
	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount.Load()),
		slog.Int64("failed", failureCount.Load()),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != expectedArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
		hostname = "localhost"
	}
	client, err := e2etest.NewClient(url, hostname, url)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	setupStart := time.Now()
	visitors, err := SetupVisitors(ctx, url, hostname, numUsers, anonymousVisitors, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failed to set up visitors", slog.Any("error", err))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Visitor setup completed",
		slog.Duration("setup_duration", time.Since(setupStart)))

	loadTestStart := time.Now()
	if err = RunLoadTest(ctx, visitors, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Duration("load_test_duration", time.Since(loadTestStart)),
		slog.Int("visitors_tested", len(visitors)))
}
