// Command planwizard walks through the trainer wizard in the terminal and prints the generated plan.
//
// Answers can be imported from and exported to YAML so that a profile can be replayed without the prompts:
//
//	planwizard -import profile.yaml -yes
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/huh"
	"github.com/myrjola/aitrainer/internal/envstruct"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/i18n"
	"github.com/myrjola/aitrainer/internal/logging"
	"github.com/myrjola/aitrainer/internal/plan"
	"github.com/myrjola/aitrainer/internal/trainer"
)

type config struct {
	// OpenAIAPIKey selects the OpenAI generator. Without it plans come from the offline rule generator.
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"            envDefault:""`
	OpenAIModel   string `env:"AITRAINER_OPENAI_MODEL"    envDefault:"gpt-4o-2024-08-06"`
	OpenAIBaseURL string `env:"AITRAINER_OPENAI_BASE_URL" envDefault:""`
}

type options struct {
	lang       i18n.Language
	importPath string
	exportPath string
	yes        bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("planwizard", flag.ContinueOnError)
	fs.SetOutput(output)
	lang := fs.String("lang", string(i18n.DefaultLanguage), "interface language, en or zh")
	fs.StringVar(&opts.importPath, "import", "", "read the answers from a YAML file")
	fs.StringVar(&opts.exportPath, "export", "", "write the answers to a YAML file before generating")
	fs.BoolVar(&opts.yes, "yes", false, "generate from the imported answers without prompting")
	if err := fs.Parse(args); err != nil {
		return opts, errors.Wrap(err, "parse flags")
	}
	opts.lang = i18n.Language(*lang)
	if !i18n.IsSupported(opts.lang) {
		return opts, errors.New("unsupported language", slog.String("lang", *lang))
	}
	if opts.yes && opts.importPath == "" {
		return opts, errors.New("-yes needs -import")
	}
	return opts, nil
}

func run(
	ctx context.Context,
	logger *slog.Logger,
	args []string,
	lookupEnv func(string) (string, bool),
	stdout io.Writer,
) error {
	opts, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	generator := plan.NewGenerator(plan.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	tr := i18n.Translator(opts.lang)

	w := trainer.NewWizard()
	if opts.importPath != "" {
		if err = importAnswers(w, opts.importPath); err != nil {
			return errors.Wrap(err, "import answers", slog.String("path", opts.importPath))
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "imported answers",
			slog.String("path", opts.importPath), slog.String("step", w.Step().String()))
	}

	if !opts.yes {
		var generate bool
		if generate, err = interact(ctx, w, tr, stdout); err != nil {
			return errors.Wrap(err, "run wizard")
		}
		if !generate {
			return nil
		}
	}

	sub, err := w.Submission()
	if err != nil {
		return errors.Wrap(err, "submission", slog.String("step", w.Step().String()))
	}
	if opts.exportPath != "" {
		if err = exportAnswers(sub, opts.exportPath); err != nil {
			return errors.Wrap(err, "export answers", slog.String("path", opts.exportPath))
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "exported answers", slog.String("path", opts.exportPath))
	}
	// The interactive review has already been shown.
	if opts.yes {
		if _, err = fmt.Fprintln(stdout, renderReview(trainer.NewReview(sub, tr), tr)); err != nil {
			return errors.Wrap(err, "print review")
		}
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "generating plan", slog.String("generator", generator.Name()))
	draft, err := trainer.Generate(ctx, w, generator)
	if err != nil {
		return errors.Wrap(err, "generate plan", slog.String("generator", generator.Name()))
	}
	if _, err = fmt.Fprintln(stdout, renderPlan(draft, tr)); err != nil {
		return errors.Wrap(err, "print plan")
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
	err := run(ctx, logger, os.Args[1:], os.LookupEnv, os.Stdout)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp), errors.Is(err, huh.ErrUserAborted):
	default:
		logger.LogAttrs(ctx, slog.LevelError, "planwizard failed", errors.SlogError(err))
		cancel()
		os.Exit(1) //nolint:gocritic // cancel is called explicitly above.
	}
}
