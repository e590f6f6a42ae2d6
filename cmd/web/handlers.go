package main

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/aitrainer/internal/contexthelpers"
	"github.com/myrjola/aitrainer/internal/errors"
	"github.com/myrjola/aitrainer/internal/i18n"
	"github.com/yuin/goldmark"
)

// formatFloat drops trailing zeros so that a converted 60.900000000000006 kg is shown as 60.9.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// templateFuncs binds the request's language and CSP nonce into the template functions.
func (app *application) templateFuncs(ctx context.Context) template.FuncMap {
	//nolint:gosec // the nonce comes from crypto/rand, not from the user.
	nonce := template.HTMLAttr(`nonce="` + contexthelpers.CSPNonce(ctx) + `"`)
	return template.FuncMap{
		"nonce": func() template.HTMLAttr { return nonce },
		"t":     i18n.Translator(contexthelpers.Language(ctx)),
		"mdToHTML": func(markdown string) template.HTML {
			return app.markdownToHTML(ctx, markdown)
		},
		"formatFloat": formatFloat,
		"add":         func(a, b int) int { return a + b },
	}
}

// markdownToHTML renders generated plan text. goldmark drops raw HTML in the input by default, which keeps a
// language model from injecting markup.
func (app *application) markdownToHTML(ctx context.Context, markdown string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "render markdown", errors.SlogError(err))
		return template.HTML(template.HTMLEscapeString(markdown)) //nolint:gosec // escaped.
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark omits raw HTML unless WithUnsafe is set.
}

// render executes ui/templates/pages/{page} inside base.gohtml and writes it with status. The page is rendered to
// a buffer first so that a template error still results in a clean 500.
func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	ctx := r.Context()
	t, err := template.New(page).Funcs(app.templateFuncs(ctx)).
		ParseFS(app.templateFS, "base.gohtml", "pages/"+page+"/*.gohtml")
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "parse page", slog.String("page", page)))
		return
	}
	var buf bytes.Buffer
	if err = t.ExecuteTemplate(&buf, "base", data); err != nil {
		app.serverError(w, r, errors.Wrap(err, "execute page", slog.String("page", page)))
		return
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
