// Package ai talks to the DeepSeek chat-completions API to generate drills,
// proofread generated drills, and explain grammar to learners.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"grammardrill/internal/config"
)

const apiTimeout = 120 * time.Second

// ErrEmptyResponse is returned when the API answers without any content
var ErrEmptyResponse = errors.New("ai: no content in API response")

// DeepseekClient manages interactions with the DeepSeek API
type DeepseekClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewDeepseekClient creates a client authenticating with cfg.APIKey as a bearer token
func NewDeepseekClient(cfg config.AIConfig) *DeepseekClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
	httpClient := &http.Client{
		Timeout: apiTimeout,
		Transport: &oauth2.Transport{
			Source: src,
			Base:   http.DefaultTransport,
		},
	}

	return &DeepseekClient{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
	}
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model       string            `json:"model"`
	Messages    []deepseekMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type deepseekResponseChoice struct {
	Message deepseekMessage `json:"message"`
}

type deepseekResponse struct {
	Choices []deepseekResponseChoice `json:"choices"`
	ID      string                   `json:"id,omitempty"`
}

// GenerateParams describes the drill to generate
type GenerateParams struct {
	TargetLanguage    string
	BaseLanguage      string
	GrammarConcept    string
	Difficulty        string
	NumberOfSentences int
	Title             string
	Tags              string
}

// ExplainParams describes the question a learner wants explained
type ExplainParams struct {
	TargetLanguage string
	GrammarConcept string
	Question       string
	TargetWord     string
	FullSentence   string
	UserAnswer     string
}

// GenerateDrill asks the model for a complete drill file
func (c *DeepseekClient) GenerateDrill(ctx context.Context, p GenerateParams) (string, error) {
	log.Printf("Generating drill: %s, %s, %s, %d sentences", p.TargetLanguage, p.GrammarConcept, p.Difficulty, p.NumberOfSentences)
	return c.complete(ctx, "generation", generationSystemPrompt, generationPrompt(p), 0.7, 0)
}

// ValidateDrill asks the model to proofread a serialized drill and return a corrected copy
func (c *DeepseekClient) ValidateDrill(ctx context.Context, drillText string) (string, error) {
	return c.complete(ctx, "validation", validationSystemPrompt, validationPrompt(drillText), 0.1, 4000)
}

// Explain asks the model to explain the grammar behind a question
func (c *DeepseekClient) Explain(ctx context.Context, p ExplainParams) (string, error) {
	log.Printf("Generating explanation: concept %q, target %q", p.GrammarConcept, p.TargetWord)
	return c.complete(ctx, "explanation", explanationSystemPrompt, explanationPrompt(p), 0.3, 500)
}

func (c *DeepseekClient) complete(ctx context.Context, purpose, system, prompt string, temperature float64, maxTokens int) (string, error) {
	startTime := time.Now()

	reqBody := deepseekRequest{
		Model: c.model,
		Messages: []deepseekMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s request: %w", purpose, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create %s request: %w", purpose, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	reqDuration := time.Since(startTime)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Printf("DeepSeek %s request timed out after %v", purpose, reqDuration)
		}
		return "", fmt.Errorf("%s request failed: %w", purpose, err)
	}
	defer resp.Body.Close()

	log.Printf("Received DeepSeek %s response in %v with status code: %d", purpose, reqDuration, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s response: %w", purpose, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s request failed with status %d: %s", purpose, resp.StatusCode, truncate(string(body), 300))
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", fmt.Errorf("failed to parse %s response: %w", purpose, err)
	}

	if len(deepseekResp.Choices) == 0 || deepseekResp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	content := deepseekResp.Choices[0].Message.Content
	log.Printf("DeepSeek %s content (%d chars): %s", purpose, len(content), truncate(content, 300))
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
