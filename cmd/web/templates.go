package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/myrjola/aitrainer/internal/contexthelpers"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/i18n"
)

// BaseTemplateData is embedded in the data of every page for the header and the language switcher.
type BaseTemplateData struct {
	Authenticated bool
	Language      i18n.Language
	Languages     []i18n.Language
	CurrentPath   string
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	ctx := r.Context()
	return BaseTemplateData{
		Authenticated: contexthelpers.IsAuthenticated(ctx),
		Language:      contexthelpers.Language(ctx),
		Languages:     i18n.SupportedLanguages(),
		CurrentPath:   contexthelpers.CurrentPath(ctx),
	}
}

// uiDir resolves the directory ui/name. A non-empty override is used as is. Otherwise the working directory is
// tried first and then the module root, so tests running inside cmd/web find the files too.
func uiDir(name, override string) (string, error) {
	dir := override
	if dir == "" {
		dir = filepath.Join("ui", name)
		if _, err := os.Stat(dir); err != nil {
			root, modErr := findModuleDir()
			if modErr != nil {
				return "", errors.Wrap(modErr, "find module dir", slog.String("ui", name))
			}
			dir = filepath.Join(root, "ui", name)
		}
	}
	stat, err := os.Stat(dir)
	if err != nil {
		return "", errors.Wrap(err, "stat ui dir", slog.String("dir", dir))
	}
	if !stat.IsDir() {
		return "", errors.New("ui path is not a directory", slog.String("dir", dir))
	}
	return dir, nil
}

// findModuleDir walks up from the working directory to the one holding go.mod.
func findModuleDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "get working directory")
	}
	for {
		if _, err = os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Wrap(os.ErrNotExist, "no go.mod above the working directory")
		}
		dir = parent
	}
}
