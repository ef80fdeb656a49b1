package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"journey-pipeline/config"
	"journey-pipeline/types"
)

const defaultBaseURL = "https://api.openai.com/v1"

const systemPrompt = `You are a writer of short therapeutic spoken-word journeys. You write warm, grounded, concrete narration that rides on a music bed.

Hard constraints:
- Narrate in third person about "the listener". Never invent or use a name.
- The only non-text tokens allowed are literal [pause] markers. No headings, no quotes around the whole piece, no scene directions, no music cues.
- Every sentence must be speakable aloud in one breath.
- No cliches about journeys, chapters, or storms passing.

Respond with ONLY the narration text.`

// Writer generates the narration script with a single chat-completion call.
type Writer struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
}

// New creates a script Writer. The HTTP client is injected so tests can
// point it at a stub server via SetBaseURL.
func New(cfg *config.Config) *Writer {
	return &Writer{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint.
func (w *Writer) SetBaseURL(u string) { w.baseURL = strings.TrimRight(u, "/") }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Run sends the brief and returns the raw script text. The LLM call is made
// once per session; any failure here is fatal for the session.
func (w *Writer) Run(ctx context.Context, brief string) (string, error) {
	log.Println("[script] Generating narration script...")

	reqBody := chatRequest{
		Model: w.cfg.LLM.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: brief},
		},
		Temperature: w.cfg.LLM.Temperature,
		MaxTokens:   4096,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.LLM.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", types.E(types.ErrTransientNetwork, "script", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.E(types.ErrTransientNetwork, "script", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", types.Ef(types.ErrPermanentRemote, "script", "llm status %d: %s", resp.StatusCode, truncate(string(respBytes), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", types.Ef(types.ErrPermanentRemote, "script", "parse llm response: %v", err)
	}
	if parsed.Error != nil {
		return "", types.Ef(types.ErrPermanentRemote, "script", "llm error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", types.Ef(types.ErrPermanentRemote, "script", "llm returned no choices")
	}

	text := stripFences(parsed.Choices[0].Message.Content)
	log.Printf("[script] ✅ Script ready: %d words", len(strings.Fields(text)))
	return text, nil
}

// stripFences removes markdown fences if the model wraps its output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
