// Package cli renders match results and index stats for the resumatch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/resumatch/internal/models"
)

// OutputFormat is the format for match output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the same JSON document the HTTP API returns.
	OutputJSON OutputFormat = "json"
	// OutputXLSX is an Excel workbook with one row per match.
	OutputXLSX OutputFormat = "xlsx"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or xlsx)", s)
	}
}

// Report is a ranked match list plus optional raw-text previews keyed by resume ID.
type Report struct {
	Query    string
	Matches  []models.Match
	Previews map[string]string
}

// WriteMatches writes the report to w in the given format.
func WriteMatches(w io.Writer, report *Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models.MatchResponse{Matches: report.Matches})
	case OutputXLSX:
		return writeMatchesXLSX(w, report)
	default:
		writeMatchesText(w, report)
		return nil
	}
}

func writeMatchesText(w io.Writer, report *Report) {
	if len(report.Matches) == 0 {
		fmt.Fprintln(w, "No matching resumes.")
		return
	}
	fmt.Fprintf(w, "Top %d matching resumes:\n", len(report.Matches))
	for i, m := range report.Matches {
		fmt.Fprintf(w, "%d. %s (score: %.4f)\n", i+1, m.DocumentID, m.Score)
		if preview := report.Previews[m.DocumentID]; preview != "" {
			fmt.Fprintf(w, "   %s\n", TruncateWords(preview, 30))
		}
	}
}

// WriteStats writes the index stats to w as text or JSON.
func WriteStats(w io.Writer, stats models.Stats, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(w, "%d resumes indexed\n", stats.Count)
	for _, id := range stats.IDs {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

// TruncateWords returns up to maxWords whitespace-separated words of s, joined by single spaces.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
