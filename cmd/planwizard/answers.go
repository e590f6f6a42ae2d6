package main

import (
	"bytes"
	"log/slog"
	"os"

	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/trainer"
	"gopkg.in/yaml.v3"
)

// answers is the file format of -import and -export. Missing sections leave the wizard on that step.
type answers struct {
	Basic       *trainer.BasicInfo     `yaml:"basic"`
	Health      *trainer.HealthDetails `yaml:"health"`
	Preferences *trainer.Preferences   `yaml:"preferences"`
}

// importAnswers replays the sections of the file at path through w in step order.
func importAnswers(w *trainer.Wizard, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	var a answers
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err = dec.Decode(&a); err != nil {
		return errors.Wrap(err, "decode yaml")
	}

	if a.Basic == nil {
		return nil
	}
	if err = w.SubmitBasicInfo(*a.Basic); err != nil {
		return errors.Wrap(err, "submit basic info")
	}
	if a.Health == nil {
		return nil
	}
	if err = w.SubmitHealthDetails(*a.Health); err != nil {
		return errors.Wrap(err, "submit health details")
	}
	if a.Preferences == nil {
		return nil
	}
	if err = w.SubmitPreferences(*a.Preferences); err != nil {
		return errors.Wrap(err, "submit preferences")
	}
	return nil
}

func exportAnswers(sub trainer.Submission, path string) error {
	out, err := yaml.Marshal(answers{
		Basic:       &sub.Basic,
		Health:      &sub.Health,
		Preferences: &sub.Preferences,
	})
	if err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	if err = os.WriteFile(path, out, 0o600); err != nil { //nolint:mnd // owner only.
		return errors.Wrap(err, "write file", slog.Int("bytes", len(out)))
	}
	return nil
}
