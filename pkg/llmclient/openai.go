package llmclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"

	"github.com/kortexhq/kortex/pkg/types"
)

// OpenAIClient implements Client against the OpenAI API or any
// OpenAI-compatible endpoint reachable via Config.BaseURL.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAIClient constructs an OpenAIClient, validating a custom BaseURL
// if one is supplied.
func NewOpenAIClient(apiKey string, cfg Config) (*OpenAIClient, error) {
	var client *openai.Client

	if cfg.BaseURL != "" {
		if err := validateBaseURL(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("llmclient: invalid base url: %w", err)
		}
		if apiKey == "" {
			apiKey = "dummy-key"
		}
		clientCfg := openai.DefaultConfig(apiKey)
		clientCfg.BaseURL = cfg.BaseURL
		if !hasAPIPath(cfg.BaseURL) {
			clientCfg.BaseURL = cfg.BaseURL + "/v1"
		}
		client = openai.NewClientWithConfig(clientCfg)
	} else {
		client = openai.NewClient(apiKey)
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	return &OpenAIClient{client: client, config: cfg}, nil
}

// Chat implements Client.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	req := c.buildRequest(messages, false)
	return c.complete(ctx, req)
}

// ChatJSON implements Client, asking the model to respond with a JSON
// object and repairing near-valid JSON before returning it.
func (c *OpenAIClient) ChatJSON(ctx context.Context, messages []types.Message, _ any) (*types.CompletionResponse, error) {
	req := c.buildRequest(messages, true)
	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	repaired, err := jsonrepair.JSONRepair(resp.Content)
	if err == nil {
		resp.Content = repaired
	}
	return resp, nil
}

// Close implements Client; the underlying HTTP client needs no teardown.
func (c *OpenAIClient) Close() error { return nil }

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (*types.CompletionResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.Content() == "" && choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, NewRefusalError("content filtered by provider")
	}

	out := &types.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
	}
	if resp.Usage.TotalTokens > 0 {
		out.TokensUsed = &types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (c *OpenAIClient) buildRequest(messages []types.Message, jsonMode bool) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    out,
		Temperature: c.config.Temperature,
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if c.config.TopP > 0 {
		req.TopP = c.config.TopP
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
		if c.config.BaseURL != "" && len(out) > 0 {
			last := &req.Messages[len(req.Messages)-1]
			if last.Role == string(types.RoleUser) {
				last.Content += "\n\nRespond with valid JSON only."
			}
		}
	}
	return req
}

// classifyError maps an opaque provider error to a kerr-friendly sentinel
// where the message makes the cause obvious (rate limiting).
func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") {
		return NewRateLimitError(err.Error())
	}
	return fmt.Errorf("llmclient: chat completion failed: %w", err)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url must use http:// or https://")
	}
	return nil
}

func hasAPIPath(baseURL string) bool {
	for _, suffix := range []string{"/v1", "/api", "/v1/", "/api/"} {
		if strings.HasSuffix(baseURL, suffix) {
			return true
		}
	}
	return false
}
