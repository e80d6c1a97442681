package locations

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"experts-geo/core/errs"
	"experts-geo/core/httpjson"
	"experts-geo/core/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	systemExtract = "Extract geopolitical entities from the provided text. Do not infer. Do not provide explanation."
	systemFormat  = `Output one location per line in the format "City, Country" or "City, State" or "State, Country" or "Country" or "Location name", ` +
		`followed by " | " and your confidence from 0 to 100. If no location was found for the text, return "N/A".`
)

// Extraction is one location named by a text.
type Extraction struct {
	Location      string  `json:"location"`
	Confidence    float64 `json:"confidence,omitempty"`
	HasConfidence bool    `json:"-"`
}

// Extractor finds the locations named by a text.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]Extraction, error)
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is an OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the subset of a chat completion response that is read.
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Content returns the first choice, or "" when there is none.
func (r ChatResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// NewChatRequest builds the extraction prompt for text.
func NewChatRequest(model, text string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemExtract},
			{Role: "system", Content: systemFormat},
			{Role: "user", Content: "Extract from this text: " + utils.StripAccents(text)},
		},
	}
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// ParseAnswer reads the model output. Lines are "Location" or "Location | confidence";
// "N/A" and blank lines are ignored.
func ParseAnswer(content string) []Extraction {
	var out []Extraction
	seen := map[string]bool{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		name, score, hasScore := strings.Cut(line, "|")
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name == "" || strings.EqualFold(name, NoLocation) || seen[name] {
			continue
		}
		seen[name] = true

		e := Extraction{Location: name}
		if hasScore {
			e.Confidence, e.HasConfidence = utils.ParseFloat(strings.TrimSpace(score))
		}
		out = append(out, e)
	}
	return out
}

// LLMClient extracts locations through an OpenAI-compatible chat API.
type LLMClient struct {
	cfg     LLMConfig
	http    *httpjson.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMClient creates an extraction client.
func NewLLMClient(cfg LLMConfig, logger *zap.Logger) *LLMClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &LLMClient{
		cfg: cfg,
		http: httpjson.New(httpjson.Config{
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			MaxRetries: uint64(cfg.MaxRetries),
			Headers:    map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		}, logger),
		limiter: limiter,
		logger:  logger,
	}
}

// Extract asks the model for the locations in text.
func (c *LLMClient) Extract(ctx context.Context, text string) ([]Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp ChatResponse
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	if err := c.http.Post(ctx, url, nil, NewChatRequest(c.cfg.Model, text), &resp); err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errs.E(errs.KindValidationFailed, "llm.extract", fmt.Errorf("response has no choices"))
	}
	return ParseAnswer(resp.Content()), nil
}
