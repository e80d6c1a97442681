package locations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	got := ParseAnswer("1. Davis, California | 90\n- \"Kenya\" | 75%\nN/A\n\nPeru\nKenya | 20")

	require.Len(t, got, 3)
	assert.Equal(t, Extraction{Location: "Davis, California", Confidence: 90, HasConfidence: true}, got[0])
	assert.Equal(t, Extraction{Location: "Kenya", Confidence: 75, HasConfidence: true}, got[1])
	assert.Equal(t, Extraction{Location: "Peru"}, got[2])

	assert.Empty(t, ParseAnswer("N/A"))
	assert.Empty(t, ParseAnswer(""))
}

func TestNewChatRequest(t *testing.T) {
	req := NewChatRequest("m", "Coffee farming in Panamá")

	assert.Equal(t, "m", req.Model)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "Extract from this text: Coffee farming in Panama", req.Messages[2].Content)
}

func TestLLMClient_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Davis, California | 85\nN/A"}}]}`))
	}))
	defer srv.Close()

	client := NewLLMClient(LLMConfig{BaseURL: srv.URL + "/v1", APIKey: "secret", Model: "llama"}, nil)
	got, err := client.Extract(context.Background(), "Almond orchards near Davis")

	require.NoError(t, err)
	assert.Equal(t, []Extraction{{Location: "Davis, California", Confidence: 85, HasConfidence: true}}, got)
}

func TestLLMClient_EmptyText(t *testing.T) {
	client := NewLLMClient(LLMConfig{BaseURL: "http://127.0.0.1:0"}, nil)
	got, err := client.Extract(context.Background(), "   ")

	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestLLMClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewLLMClient(LLMConfig{BaseURL: srv.URL}, nil)
	_, err := client.Extract(context.Background(), "text")

	assert.Error(t, err)
}
