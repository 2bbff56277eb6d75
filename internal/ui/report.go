package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/schemakit/internal/core/differ"
)

// Format selects how a diff report is rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
)

// Formats lists the supported report formats.
var Formats = []Format{FormatText, FormatMarkdown, FormatYAML, FormatJSON}

// ParseFormat resolves a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatMarkdown, FormatYAML, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (want one of %v)", s, Formats)
}

// Report is the outcome of one comparison in a serializable shape.
type Report struct {
	Summary      string               `json:"summary" yaml:"summary"`
	Repairable   int                  `json:"repairable" yaml:"repairable"`
	Unrepairable int                  `json:"unrepairable" yaml:"unrepairable"`
	Errors       []differ.SchemaError `json:"errors" yaml:"errors"`
	// Repairs are the statements an apply would run.
	Repairs []string `json:"repairs,omitempty" yaml:"repairs,omitempty"`
}

// NewReport builds a Report. Optional repairs are listed with their error
// but left out of Repairs unless includeOptional is set.
func NewReport(errs []differ.SchemaError, includeOptional bool) Report {
	c := differ.Summary(errs)
	r := Report{
		Summary:      c.String(),
		Repairable:   c.Repairable,
		Unrepairable: c.Unrepairable,
		Errors:       errs,
		Repairs:      differ.Repairs(errs),
	}
	if includeOptional {
		r.Repairs = differ.AllRepairs(errs)
	}
	if r.Errors == nil {
		r.Errors = []differ.SchemaError{}
	}
	return r
}

// Render writes r to w in format f. Markdown is rendered for the
// terminal; use Markdown for the raw source.
func (r Report) Render(w io.Writer, f Format) error {
	switch f {
	case FormatText:
		r.Text(w)
		return nil
	case FormatMarkdown:
		prev := Out
		Out = w
		defer func() { Out = prev }()
		return PrintMarkdown(r.Markdown())
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return fmt.Errorf("unknown format %q", f)
}

var (
	added    = color.New(color.FgGreen)
	removed  = color.New(color.FgRed)
	changed  = color.New(color.FgYellow)
	broken   = color.New(color.FgRed, color.Bold)
	faint    = color.New(color.Faint)
	headline = color.New(color.FgCyan, color.Bold)
)

func marker(e differ.SchemaError) (string, *color.Color) {
	switch {
	case e.Unrepairable:
		return "!", broken
	case e.Kind == differ.TableMissing, e.Kind == differ.FieldMissing, e.Kind == differ.IndexMissing:
		return "+", added
	case e.Kind == differ.TableObsolete, e.Kind == differ.FieldObsolete, e.Kind == differ.IndexObsolete:
		return "-", removed
	}
	return "~", changed
}

// Text writes a colored, diff-like listing.
func (r Report) Text(w io.Writer) {
	for _, e := range r.Errors {
		m, c := marker(e)
		c.Fprintf(w, "%s %s\n", m, e.Description)
		if e.Unrepairable {
			faint.Fprintln(w, "    (no automatic repair)")
			continue
		}
		if e.Optional() {
			faint.Fprintln(w, "    (optional, applied only with --drop-obsolete)")
		}
		for _, stmt := range e.Statements {
			faint.Fprintf(w, "    %s;\n", stmt)
		}
	}
	headline.Fprintln(w, r.Summary)
}

// Markdown returns the report as a markdown document.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Schema differences\n\n")
	b.WriteString(r.Summary + "\n")
	if len(r.Errors) == 0 {
		return b.String()
	}

	b.WriteString("\n| Kind | Table | Field | Description | Repair |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range r.Errors {
		repair := fmt.Sprintf("%d statement(s)", len(e.Statements))
		switch {
		case e.Unrepairable:
			repair = "manual"
		case e.Optional():
			repair += ", optional"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			e.Kind, e.Table, e.Field, strings.ReplaceAll(e.Description, "|", `\|`), repair)
	}

	if len(r.Repairs) > 0 {
		b.WriteString("\n## Repairs\n\n```sql\n")
		for _, stmt := range r.Repairs {
			b.WriteString(stmt + ";\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}
