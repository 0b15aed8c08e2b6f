package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/neogm/pkg/ogm"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Details      []string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message
//
// Example output:
//
//	❌ UNKNOWN FIELD: Movie has no field "titel" in predicate
//
//	   Did you mean: title?
//
//	   → List fields: neogm schema Movie
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor := color.New(color.FgRed, color.Bold)
	bodyColor := color.New(color.FgRed)
	symbol := "❌"
	if opts.Level == ErrorLevelWarning {
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	}
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		for _, c := range []*color.Color{headerColor, bodyColor, yellow, cyan} {
			c.DisableColor()
		}
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Details) > 0 {
		b.WriteString("\n")
		for _, d := range opts.Details {
			bodyColor.Fprintf(&b, "   %s\n", d)
		}
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// Describe maps an OGM error to display options. fields lists the field
// names of the schema involved, for suggestions.
func Describe(err error, fields []string) ErrorOptions {
	var (
		unknown   *ogm.UnknownFieldError
		schemaErr *ogm.SchemaError
		mismatch  *ogm.TypeMismatchError
		partial   *ogm.PartialError
		transErr  *ogm.TransportError
	)

	switch {
	case errors.As(err, &unknown):
		return ErrorOptions{
			Context:      "unknown field",
			Problem:      fmt.Sprintf("%s has no field %q in %s", unknown.Schema, unknown.Field, unknown.Context),
			Suggestions:  FindSimilar(unknown.Field, fields),
			HelpCommands: []string{"List fields: neogm schema " + unknown.Schema},
		}
	case errors.As(err, &schemaErr):
		return ErrorOptions{
			Context:      "invalid schema",
			Problem:      schemaLabel(schemaErr.Label),
			Details:      schemaErr.Reasons,
			HelpCommands: []string{"Check definitions: neogm schema --all"},
		}
	case errors.As(err, &partial):
		details := make([]string, len(partial.Failures))
		for i, f := range partial.Failures {
			details[i] = f.Error()
		}
		return ErrorOptions{
			Level:   ErrorLevelWarning,
			Context: "partial result",
			Problem: fmt.Sprintf("%d record(s) could not be read", len(partial.Failures)),
			Details: details,
		}
	case errors.As(err, &mismatch):
		return ErrorOptions{
			Context: "type mismatch",
			Problem: mismatch.Error(),
			HelpCommands: []string{
				"Skip malformed records: set mapping.partial_results: true",
			},
		}
	case errors.As(err, &transErr):
		return ErrorOptions{
			Context: "database error",
			Problem: transErr.Error(),
			HelpCommands: []string{
				"Check connection settings: neo4j.uri, neo4j.username, neo4j.database",
				"Override from the environment: NEOGM_NEO4J_URI",
			},
		}
	case errors.Is(err, ogm.ErrMaxDepthExceeded):
		return ErrorOptions{
			Context:      "inclusion too deep",
			Problem:      err.Error(),
			HelpCommands: []string{"Mark one side of mutually eager relationships lazy"},
		}
	default:
		return ErrorOptions{Problem: err.Error()}
	}
}

// FormatOGMError renders any error returned by the OGM
func FormatOGMError(err error, fields []string, noColor bool) string {
	opts := Describe(err, fields)
	opts.NoColor = noColor
	return FormatError(opts)
}

// LabelNotFoundError creates a standardized label not found error
func LabelNotFoundError(label string, known []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "label not found",
		Problem:      fmt.Sprintf("No schema is registered for %q.", label),
		Suggestions:  FindSimilar(label, known),
		HelpCommands: []string{"See all labels: neogm schema --all"},
		NoColor:      noColor,
	})
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "configuration error",
		Problem: message,
		HelpCommands: []string{
			"View config: cat neogm.yaml",
			"Get help: neogm --help",
		},
		NoColor: noColor,
	})
}

func schemaLabel(label string) string {
	if label == "" {
		return "schema without a label"
	}
	return fmt.Sprintf("schema %q was refused", label)
}
