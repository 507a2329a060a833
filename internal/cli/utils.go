// Package cli formats command output for the ragstore CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ragstore/internal/ingest"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteQueryResults writes a query answer. Text output shows one numbered entry
// per result, with scores when the response carries them.
func WriteQueryResults(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if len(response.Results) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for i, text := range response.Results {
		if i < len(response.Matches) {
			m := response.Matches[i]
			fmt.Fprintf(w, "%d. [position %d, score %.4f]\n", i+1, m.Position, m.Score)
		} else {
			fmt.Fprintf(w, "%d.\n", i+1)
		}
		fmt.Fprintf(w, "%s\n\n", text)
	}
	return nil
}

// WriteStatus writes a store status report.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "instance_id:  %s\n", status.InstanceID)
	fmt.Fprintf(w, "state:        %s\n", status.State)
	fmt.Fprintf(w, "records:      %d\n", status.Records)
	fmt.Fprintf(w, "dimensions:   %d\n", status.Dimensions)
	fmt.Fprintf(w, "index_type:   %s\n", status.IndexType)
	fmt.Fprintf(w, "model:        %s\n", status.Model)
	fmt.Fprintf(w, "halted:       %t\n", status.Halted)
	if status.HaltReason != "" {
		fmt.Fprintf(w, "halt_reason:  %s\n", status.HaltReason)
	}
	if status.Aligned != nil {
		fmt.Fprintf(w, "aligned:      %t\n", *status.Aligned)
	}
	return nil
}

// WriteRecord writes a single stored text.
func WriteRecord(w io.Writer, record *models.RecordResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, record)
	}
	_, err := fmt.Fprintf(w, "%d: %s\n", record.Position, record.Text)
	return err
}

// WriteIngestResult summarizes a directory ingestion.
func WriteIngestResult(w io.Writer, dir string, result *ingest.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			Directory string `json:"directory"`
			Files     int    `json:"files"`
			Skipped   int    `json:"skipped"`
			Failed    int    `json:"failed"`
			Chunks    int    `json:"chunks"`
		}{dir, result.Files, result.Skipped, result.Failed, result.Chunks})
	}
	_, err := fmt.Fprintf(w, "Ingested %d file(s) from %s: %d chunk(s), %d skipped, %d failed\n",
		result.Files, dir, result.Chunks, result.Skipped, result.Failed)
	return err
}

// WriteInserted reports the position of a single inserted text.
func WriteInserted(w io.Writer, position int, text string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, &models.InsertResponse{Position: position, Status: "ok"})
	}
	_, err := fmt.Fprintf(w, "Inserted at position %d: %s\n", position, utils.Truncate(text, 60))
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
