package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/myrjola/aitrainer/internal/errors"
)

// maxCSPReportSize is far more than a browser sends for a single violation.
const maxCSPReportSize = 64 << 10

// cspReport is the report-uri body. Only the fields worth logging are decoded.
type cspReport struct {
	Violation struct {
		DocumentURI        string `json:"document-uri"`
		EffectiveDirective string `json:"effective-directive"`
		ViolatedDirective  string `json:"violated-directive"`
		BlockedURI         string `json:"blocked-uri"`
		SourceFile         string `json:"source-file"`
		LineNumber         int    `json:"line-number"`
		ScriptSample       string `json:"script-sample"`
		Disposition        string `json:"disposition"`
	} `json:"csp-report"`
}

// cspViolation logs the violations browsers report against the policy set in secureHeaders.
func (app *application) cspViolation(w http.ResponseWriter, r *http.Request) {
	var report cspReport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCSPReportSize)).Decode(&report); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "rejected CSP report",
			slog.Int("status", status), errors.SlogError(err))
		http.Error(w, http.StatusText(status), status)
		return
	}

	v := report.Violation
	directive := v.EffectiveDirective
	if directive == "" {
		directive = v.ViolatedDirective
	}
	app.logger.LogAttrs(r.Context(), slog.LevelWarn, "CSP violation",
		slog.String("page", cspPage(v.DocumentURI)),
		slog.String("directive", directive),
		slog.String("blocked_uri", v.BlockedURI),
		slog.String("source_file", v.SourceFile),
		slog.Int("line_number", v.LineNumber),
		slog.String("script_sample", v.ScriptSample),
		slog.String("disposition", v.Disposition),
		slog.String("user_agent", r.UserAgent()))
	w.WriteHeader(http.StatusNoContent)
}

// cspPage names the page a report came from by its route so that reports from different plans group together.
func cspPage(documentURI string) string {
	u, err := url.Parse(documentURI)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	if strings.HasPrefix(u.Path, "/plans/") {
		return "/plans/{id}"
	}
	return u.Path
}
