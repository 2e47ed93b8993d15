package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"insights/internal/analysis"
	"insights/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one finding of ValidateDashboard. Path is a dotted path into the
// config, e.g. "export.kind" or "server.users[1].role".
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var storageKinds = map[string]bool{"postgres": true, "mssql": true, "mysql": true, "sqlite": true}

// ValidateDashboard lints d without mutating it.
func ValidateDashboard(d Dashboard) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(d.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and logs")
	}

	switch d.Source.Kind {
	case "dir":
		if strings.TrimSpace(d.Source.Dir) == "" {
			add(SeverityError, "source.dir", "dir source requires a directory")
		}
	case "sql":
		if !storageKinds[d.Source.Storage.Kind] {
			add(SeverityError, "source.storage.kind", "unknown storage kind %q", d.Source.Storage.Kind)
		}
		if d.Source.Storage.DSN == "" {
			add(SeverityError, "source.storage.dsn", "sql source requires a dsn")
		}
		if len(d.Source.Tables) == 0 {
			add(SeverityError, "source.tables", "sql source requires a table mapping")
		}
		for name := range d.Source.Tables {
			if _, ok := schema.Lookup(name); !ok {
				add(SeverityWarning, "source.tables."+name, "no contract for table %q; it is loaded unchecked", name)
			}
		}
	case "":
		add(SeverityError, "source.kind", "source.kind must not be empty")
	default:
		add(SeverityError, "source.kind", "unknown source kind %q (want dir or sql)", d.Source.Kind)
	}

	if d.Parser.Kind != "" && d.Parser.Kind != "csv" {
		add(SeverityError, "parser.kind", "unknown parser kind %q", d.Parser.Kind)
	}
	if c, ok := d.Parser.Options["comma"].(string); ok && len([]rune(c)) != 1 {
		add(SeverityError, "parser.options.comma", "comma must be a single character, got %q", c)
	}
	for i, r := range d.Parser.Options.Objects("scrub") {
		if r.String("from", "") == "" {
			add(SeverityError, fmt.Sprintf("parser.options.scrub[%d].from", i), "scrub rule needs a non-empty from")
		}
	}

	if d.Export.Kind != "" || d.Export.DSN != "" {
		if !storageKinds[d.Export.Kind] {
			add(SeverityError, "export.kind", "unknown storage kind %q", d.Export.Kind)
		}
		if d.Export.DSN == "" {
			add(SeverityError, "export.dsn", "export requires a dsn")
		}
		if d.Export.BatchSize < 0 {
			add(SeverityError, "export.batch_size", "batch_size must be >= 0")
		}
	}

	names := map[string]bool{}
	for i, u := range d.Server.Users {
		path := fmt.Sprintf("server.users[%d]", i)
		if u.Name == "" {
			add(SeverityError, path+".name", "user name must not be empty")
		} else if names[u.Name] {
			add(SeverityError, path+".name", "duplicate user %q", u.Name)
		}
		names[u.Name] = true
		if u.Role != RoleAdmin && u.Role != RoleViewer {
			add(SeverityError, path+".role", "role must be %q or %q", RoleAdmin, RoleViewer)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			add(SeverityError, path+".password_hash", "not a bcrypt hash: %v", err)
		}
	}

	switch d.Metrics.Backend {
	case "", "none":
	case "prometheus":
		if d.Metrics.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "prometheus backend requires pushgateway_url")
		}
	case "datadog":
		if d.Metrics.DatadogAddr == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q", d.Metrics.Backend)
	}

	issues = append(issues, validateAnalysis(d.Analysis)...)

	switch strings.ToLower(d.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		add(SeverityWarning, "log.level", "unknown level %q; info is used", d.Log.Level)
	}
	return issues
}

func validateAnalysis(a Analysis) []Issue {
	var issues []Issue
	var from, to time.Time
	var err error
	if a.SalesFrom != "" {
		if from, err = time.Parse(DateLayout, a.SalesFrom); err != nil {
			issues = append(issues, Issue{SeverityError, "analysis.sales_from", "want YYYY-MM-DD"})
		}
	}
	if a.SalesTo != "" {
		if to, err = time.Parse(DateLayout, a.SalesTo); err != nil {
			issues = append(issues, Issue{SeverityError, "analysis.sales_to", "want YYYY-MM-DD"})
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		issues = append(issues, Issue{SeverityError, "analysis.sales_to", "sales_to is before sales_from"})
	}
	known := analysis.New(analysis.DefaultOptions())
	for name, n := range a.TopN {
		path := "analysis.top_n." + name
		def, ok := known.Lookup(name)
		switch {
		case !ok:
			issues = append(issues, Issue{SeverityWarning, path, "unknown analysis"})
		case def.TopN == 0:
			issues = append(issues, Issue{SeverityWarning, path, "analysis has no row limit; override ignored"})
		case n <= 0:
			issues = append(issues, Issue{SeverityError, path, "limit must be positive"})
		}
	}
	if a.Period < 0 || a.Period == 1 {
		issues = append(issues, Issue{SeverityError, "analysis.period", "period must be at least 2"})
	}
	return issues
}
