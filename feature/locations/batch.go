package locations

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"experts-geo/core/errs"

	"github.com/goccy/go-json"
)

const batchEndpoint = "/v1/chat/completions"

// BatchRequest is one line of an OpenAI-compatible batch input file.
type BatchRequest struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     ChatRequest `json:"body"`
}

// BatchResult is one line of a batch output file.
type BatchResult struct {
	CustomID string `json:"custom_id"`
	Response struct {
		StatusCode int          `json:"status_code"`
		Body       ChatResponse `json:"body"`
	} `json:"response"`
}

// BatchID formats the positional id of the i-th text.
func BatchID(i int) string {
	return fmt.Sprintf("%04d", i)
}

// BuildBatch renders one extraction request per text as JSON lines.
func BuildBatch(model string, texts []string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, text := range texts {
		req := BatchRequest{
			CustomID: BatchID(i),
			Method:   "POST",
			URL:      batchEndpoint,
			Body:     NewChatRequest(model, text),
		}
		if err := enc.Encode(req); err != nil {
			return nil, errs.E(errs.KindValidationFailed, "batch.build", err)
		}
	}
	return buf.Bytes(), nil
}

// ParseBatchResults reads a batch output file into extractions keyed by text index.
// Lines with a non-2xx status are skipped.
func ParseBatchResults(r io.Reader) (map[int][]Extraction, error) {
	out := map[int][]Extraction{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var res BatchResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, errs.E(errs.KindValidationFailed, "batch.parse", fmt.Errorf("line %d: %w", line, err))
		}
		idx, err := strconv.Atoi(res.CustomID)
		if err != nil {
			return nil, errs.E(errs.KindValidationFailed, "batch.parse", fmt.Errorf("line %d: custom_id %q", line, res.CustomID))
		}
		if code := res.Response.StatusCode; code != 0 && (code < 200 || code > 299) {
			continue
		}
		out[idx] = ParseAnswer(res.Response.Body.Content())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch results: %w", err)
	}
	return out, nil
}
