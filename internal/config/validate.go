// This file adds a lightweight linter/validator for Run values. It performs
// static checks over a decoded Run and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.

package config

import (
	"fmt"
	"strings"

	"dbstream/internal/datatype"
	"dbstream/internal/storage"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Run.
//
// Path is a dotted path into the config (e.g. "target.kind",
// "transforms[1].column"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation / linting of a Run.
//
// It does not mutate the run and does not connect to any database. Callers
// decide whether warnings are fatal.
func Validate(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateEndpoint("source", r.Source)...)
	issues = append(issues, validateEndpoint("target", r.Target)...)
	if len(r.Source.DisableChecks) > 0 || len(r.Source.EnableChecks) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.disable_checks",
			Message:  "integrity statements are only issued against the target; source overrides are ignored",
		})
	}
	if r.Source.Kind != "" && r.Source.Kind == r.Target.Kind && r.Source.DSN != "" && r.Source.DSN == r.Target.DSN {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target.dsn",
			Message:  "source and target point at the same database",
		})
	}
	issues = append(issues, validateTables(r.Tables)...)
	issues = append(issues, validateColumns(r.Columns)...)
	issues = append(issues, validateTransforms(r.Transforms)...)
	issues = append(issues, validateRuntime(r.Runtime)...)
	issues = append(issues, validateMetrics(r.Metrics)...)

	return issues
}

// validateEndpoint validates one side of the copy.
func validateEndpoint(side string, e Endpoint) []Issue {
	var issues []Issue

	if strings.TrimSpace(e.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     side + ".kind",
			Message:  side + ".kind must not be empty",
		})
	} else {
		known := false
		for _, k := range storage.ListKinds() {
			if k == e.Kind {
				known = true
				break
			}
		}
		if !known {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     side + ".kind",
				Message:  fmt.Sprintf("unknown storage kind %q; registered kinds: %s", e.Kind, strings.Join(storage.ListKinds(), ", ")),
			})
		}
	}
	if strings.TrimSpace(e.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     side + ".dsn",
			Message:  side + ".dsn must not be empty",
		})
	}
	if e.MaxOpenConns < 0 || e.MaxIdleConns < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     side + ".max_open_conns",
			Message:  "connection pool sizes must not be negative",
		})
	}
	if e.ConnMaxLifetime < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     side + ".conn_max_lifetime",
			Message:  "conn_max_lifetime must not be negative",
		})
	}
	if len(e.DisableChecks) > 0 && len(e.EnableChecks) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     side + ".enable_checks",
			Message:  "disable_checks is overridden but enable_checks is not; the backend default will re-enable checks",
		})
	}

	return issues
}

func validateTables(t Tables) []Issue {
	var issues []Issue
	for i, p := range t.Include {
		if !validPattern(p) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("tables.include[%d]", i),
				Message:  fmt.Sprintf("malformed pattern %q", p),
			})
		}
	}
	for i, p := range t.Exclude {
		if !validPattern(p) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("tables.exclude[%d]", i),
				Message:  fmt.Sprintf("malformed pattern %q", p),
			})
		}
	}
	return issues
}

func validateColumns(cs []ColumnOverride) []Issue {
	var issues []Issue
	for i, c := range cs {
		base := fmt.Sprintf("columns[%d]", i)
		if strings.TrimSpace(c.Table) == "" || !validPattern(c.Table) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".table",
				Message:  "column override needs a valid table pattern",
			})
		}
		if strings.TrimSpace(c.Column) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".column",
				Message:  "column override needs a column name",
			})
		}
		if _, err := resolveType(datatype.Default, c.Type); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".type",
				Message:  fmt.Sprintf("unsupported type %q", c.Type),
			})
		}
	}
	return issues
}

// validateTransforms validates the value transforms.
func validateTransforms(ts []Transform) []Issue {
	var issues []Issue

	for i, t := range ts {
		base := fmt.Sprintf("transforms[%d]", i)
		switch strings.ToLower(strings.TrimSpace(t.Kind)) {
		case "redact":
			if t.Value == "" {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     base + ".value",
					Message:  "redact with an empty value writes empty strings; use nullify to write NULL",
				})
			}
		case "nullify":
		case "":
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".kind",
				Message:  "transform kind must not be empty",
			})
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".kind",
				Message:  fmt.Sprintf("unknown transform kind %q; expected redact or nullify", t.Kind),
			})
		}
		if strings.TrimSpace(t.Column) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".column",
				Message:  "transform needs a column name",
			})
		}
		if t.Table == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     base + ".table",
				Message:  "no table pattern; the transform applies to every table",
			})
		} else if !validPattern(t.Table) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".table",
				Message:  fmt.Sprintf("malformed pattern %q", t.Table),
			})
		}
	}

	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, tiny batches, etc.).
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	} else if r.BatchSize > 0 && r.BatchSize < 100 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; very small batches commit often and may hurt throughput", r.BatchSize),
		})
	}
	if r.BufferSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.buffer_size",
			Message:  "buffer_size must not be negative",
		})
	}

	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires pushgateway_url",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires datadog_addr",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}
	return issues
}
