package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/brensch/snekpilot/autopilot"
)

// SystemPrompt explains the board convention and reply format to chat models.
const SystemPrompt = `You steer a snake on a grid. You receive JSON:
{"snake_direction": string, "snake_head_x": int, "snake_head_y": int, "food_x": int, "food_y": int}
(0,0) is the bottom-left corner. "up" is y+1, "down" is y-1, "left" is x-1, "right" is x+1.
Move the head onto the food. Never answer with the direction opposite to snake_direction as the first command.
Reply only with JSON of the form:
{"commands": [{"command": "up", "repeat": 3}, {"command": "left", "repeat": 2}]}
Keep the list short.`

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func promptMessages(in autopilot.Input) ([]Message, error) {
	content, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: string(content)},
	}, nil
}

// GroqClient talks to an OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	cfg       Config
	hc        *http.Client
	needToken bool
}

const (
	DefaultGroqURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel = "llama3-70b-8192"
)

func NewGroqClient(cfg Config) *GroqClient {
	if cfg.URL == "" {
		cfg.URL = DefaultGroqURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 1.0
	}
	return &GroqClient{
		cfg:       cfg,
		hc:        newHTTPClient(cfg),
		needToken: NeedsToken(cfg),
	}
}

type groqRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
}

type groqResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *GroqClient) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	if c.needToken && c.cfg.Token == "" {
		return autopilot.Batch{}, ErrMissingCredentials
	}
	msgs, err := promptMessages(in)
	if err != nil {
		return autopilot.Batch{}, err
	}
	body, _, err := postJSON(ctx, c.hc, c.cfg.URL, groqRequest{
		Messages:    msgs,
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
	}, bearer(c.cfg.Token))
	if err != nil {
		return autopilot.Batch{}, err
	}

	var resp groqResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return autopilot.Batch{}, fmt.Errorf("%w: %v", ErrDecodeResponse, err)
	}
	if len(resp.Choices) == 0 {
		return autopilot.Batch{}, ErrEmptyResponse
	}
	return ParseBatch(resp.Choices[0].Message.Content)
}

// OllamaClient talks to a local ollama /api/chat endpoint.
type OllamaClient struct {
	cfg Config
	hc  *http.Client
}

const (
	DefaultOllamaURL   = "http://localhost:11434/api/chat"
	DefaultOllamaModel = "llama3"
)

func NewOllamaClient(cfg Config) *OllamaClient {
	if cfg.URL == "" {
		cfg.URL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	return &OllamaClient{cfg: cfg, hc: newHTTPClient(cfg)}
}

type ollamaRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaResponse struct {
	Message *Message `json:"message"`
}

func (c *OllamaClient) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	msgs, err := promptMessages(in)
	if err != nil {
		return autopilot.Batch{}, err
	}
	body, _, err := postJSON(ctx, c.hc, c.cfg.URL, ollamaRequest{
		Model:    c.cfg.Model,
		Messages: msgs,
		Stream:   false,
	}, bearer(c.cfg.Token))
	if err != nil {
		return autopilot.Batch{}, err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return autopilot.Batch{}, fmt.Errorf("%w: %v", ErrDecodeResponse, err)
	}
	if resp.Message == nil {
		return autopilot.Batch{}, ErrEmptyResponse
	}
	return ParseBatch(resp.Message.Content)
}

// GeminiClient calls the generateContent REST method.
type GeminiClient struct {
	cfg Config
	hc  *http.Client
}

const (
	DefaultGeminiURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel = "gemini-1.5-pro"
)

func NewGeminiClient(cfg Config) *GeminiClient {
	if cfg.URL == "" {
		cfg.URL = DefaultGeminiURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	return &GeminiClient{cfg: cfg, hc: newHTTPClient(cfg)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"systemInstruction"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) endpoint() string {
	return strings.TrimRight(c.cfg.URL, "/") + "/models/" + c.cfg.Model + ":generateContent"
}

func (c *GeminiClient) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	if c.cfg.Token == "" {
		return autopilot.Batch{}, ErrMissingCredentials
	}
	msgs, err := promptMessages(in)
	if err != nil {
		return autopilot.Batch{}, err
	}
	req := geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: msgs[0].Content}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: msgs[1].Content}}}},
	}
	header := http.Header{"X-Goog-Api-Key": []string{c.cfg.Token}}
	body, _, err := postJSON(ctx, c.hc, c.endpoint(), req, header)
	if err != nil {
		return autopilot.Batch{}, err
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return autopilot.Batch{}, fmt.Errorf("%w: %v", ErrDecodeResponse, err)
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	if text.Len() == 0 {
		return autopilot.Batch{}, ErrEmptyResponse
	}
	return ParseBatch(text.String())
}
