package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/trainer"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"gopkg.in/yaml.v3"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-2024-08-06"

// OpenAIGenerator asks an OpenAI chat model for a plan using structured output.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// OpenAIConfig configures NewOpenAIGenerator. BaseURL and Model are optional.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewOpenAIGenerator creates a generator. Extra request options are appended after the ones derived from cfg.
func NewOpenAIGenerator(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIGenerator {
	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIGenerator{
		client: openai.NewClient(append(requestOpts, opts...)...),
		model:  model,
	}
}

// NewGenerator picks OpenAI when an API key is configured and the offline rules otherwise.
func NewGenerator(cfg OpenAIConfig) Generator {
	if cfg.APIKey == "" {
		return RuleGenerator{}
	}
	return NewOpenAIGenerator(cfg)
}

func (g *OpenAIGenerator) Name() string {
	return "openai:" + g.model
}

const systemPrompt = `You are a certified personal trainer and nutritionist.
You write safe, specific plans for one person based on the profile you are given.
Respect every health condition, injury, dietary restriction and disliked exercise.
Never recommend equipment the person does not have unless it is bodyweight only.
Keep heart rate targets below the given maximum heart rate.`

// planSchema is the JSON schema of Draft. Strict mode requires every property to be listed and no extras.
//
//nolint:gochecknoglobals // constant schema.
var planSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary": map[string]any{
			"type":        "string",
			"description": "Two or three sentences in markdown addressing the person directly.",
		},
		"workout": map[string]any{
			"type":        "string",
			"description": "Weekly workout schedule in markdown with a heading per week phase.",
		},
		"diet": map[string]any{
			"type":        "string",
			"description": "Diet plan in markdown with daily meal suggestions.",
		},
	},
	"required":             []string{"summary", "workout", "diet"},
	"additionalProperties": false,
}

// Generate sends the submission as YAML and decodes the structured response.
func (g *OpenAIGenerator) Generate(ctx context.Context, s trainer.Submission) (Draft, error) {
	prompt, err := userPrompt(s)
	if err != nil {
		return Draft{}, err
	}

	chat, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{ //nolint:exhaustruct // only need to set a few fields.
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{ //nolint:exhaustruct // union.
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{ //nolint:exhaustruct // type has a default.
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "training_plan",
					Description: openai.String("A personal training and diet plan"),
					Schema:      planSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return Draft{}, errors.Wrap(err, "chat completion", slog.String("model", g.model))
	}
	if len(chat.Choices) == 0 {
		return Draft{}, errors.New("chat completion returned no choices", slog.String("model", g.model))
	}
	choice := chat.Choices[0]
	if choice.Message.Refusal != "" {
		return Draft{}, errors.New("model refused", slog.String("refusal", choice.Message.Refusal))
	}

	var d Draft
	if err = json.Unmarshal([]byte(choice.Message.Content), &d); err != nil {
		return Draft{}, errors.Wrap(err, "decode plan", slog.String("finish_reason", string(choice.FinishReason)))
	}
	if err = d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func userPrompt(s trainer.Submission) (string, error) {
	profile, err := yaml.Marshal(s)
	if err != nil {
		return "", errors.Wrap(err, "encode profile")
	}
	var b strings.Builder
	b.WriteString("Create a plan for the following person.\n\n```yaml\n")
	b.Write(profile)
	b.WriteString("```\n\n")
	fmt.Fprintf(&b, "BMI: %.1f (%s)\n", s.Basic.BMI(), s.Basic.BMIBand())
	fmt.Fprintf(&b, "The workout plan covers %d months and the diet plan %d months.\n",
		s.Preferences.ExercisePeriod, s.Preferences.DietPeriod)
	switch s.Preferences.Style {
	case trainer.PlanStyleDisciplined:
		b.WriteString("Use a strict fixed schedule with exact sets, reps and portions.\n")
	case trainer.PlanStyleFlexible:
		b.WriteString("Offer alternatives the person can swap between day to day.\n")
	case trainer.PlanStyleAI:
		b.WriteString("Choose the structure you consider best for this person.\n")
	}
	return b.String(), nil
}
