package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hyperjump/ragstore/internal/ingest"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, OutputJSON, f)

	f, err = ParseOutputFormat("text")
	require.NoError(t, err)
	assert.Equal(t, OutputText, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestWriteQueryResults_JSON(t *testing.T) {
	response := &models.QueryResponse{Results: []string{"cats purr"}}
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, response, OutputJSON))

	var decoded models.QueryResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []string{"cats purr"}, decoded.Results)
	assert.NotContains(t, buf.String(), "matches")
}

func TestWriteQueryResults_text(t *testing.T) {
	response := &models.QueryResponse{
		Results: []string{"cats purr", "dogs bark"},
		Matches: []models.Match{
			{Position: 3, Text: "cats purr", Score: 0.91},
			{Position: 0, Text: "dogs bark", Score: 0.42},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, response, OutputText))
	out := buf.String()
	assert.Contains(t, out, "1. [position 3, score 0.9100]\ncats purr")
	assert.Contains(t, out, "2. [position 0, score 0.4200]\ndogs bark")
}

func TestWriteQueryResults_textWithoutScores(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, &models.QueryResponse{Results: []string{"only text"}}, OutputText))
	assert.Equal(t, "1.\nonly text\n\n", buf.String())
}

func TestWriteQueryResults_empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteQueryResults(&buf, &models.QueryResponse{Results: []string{}}, OutputText))
	assert.Equal(t, "No results.\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteQueryResults(&buf, &models.QueryResponse{Results: []string{}}, OutputJSON))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestWriteStatus(t *testing.T) {
	aligned := true
	status := &models.StatusResponse{
		InstanceID: "abc",
		Records:    2,
		Dimensions: 384,
		State:      "POPULATED",
		IndexType:  "flat",
		Model:      "static",
		Aligned:    &aligned,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, status, OutputText))
	out := buf.String()
	assert.Contains(t, out, "records:      2")
	assert.Contains(t, out, "state:        POPULATED")
	assert.Contains(t, out, "aligned:      true")
	assert.NotContains(t, out, "halt_reason")

	buf.Reset()
	require.NoError(t, WriteStatus(&buf, status, OutputJSON))
	var decoded models.StatusResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "abc", decoded.InstanceID)
}

func TestWriteRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, &models.RecordResponse{Position: 1, Text: "hello"}, OutputText))
	assert.Equal(t, "1: hello\n", buf.String())
}

func TestWriteIngestResult(t *testing.T) {
	res := &ingest.Result{Files: 2, Skipped: 1, Failed: 0, Chunks: 5}
	var buf bytes.Buffer
	require.NoError(t, WriteIngestResult(&buf, "/docs", res, OutputText))
	assert.Equal(t, "Ingested 2 file(s) from /docs: 5 chunk(s), 1 skipped, 0 failed\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteIngestResult(&buf, "/docs", res, OutputJSON))
	assert.Contains(t, buf.String(), `"chunks": 5`)
}

func TestWriteInserted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInserted(&buf, 7, "short", OutputText))
	assert.Equal(t, "Inserted at position 7: short\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteInserted(&buf, 7, "short", OutputJSON))
	var decoded models.InsertResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 7, decoded.Position)
	assert.Equal(t, "ok", decoded.Status)
}
