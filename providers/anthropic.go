package providers

import (
	"context"
	"encoding/json"
	"net/http"
)

const anthropicVersion = "2023-06-01"

// AnthropicAdapter speaks the Anthropic Messages API.
type AnthropicAdapter struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAnthropic creates an adapter for the Anthropic API.
func NewAnthropic(model, baseURL, apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

// Name returns the provider name.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateText performs a messages request.
func (a *AnthropicAdapter) GenerateText(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Images) > 0 {
		return nil, NewPluginError(KindInvalidConfig, "anthropic: image attachments are not supported by this adapter", false, nil)
	}

	// The Messages API requires max_tokens.
	maxTokens := req.Settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages:  make([]anthropicMessage, 0, len(req.FewShot)+1),
	}
	temp := req.Settings.Temperature
	body.Temperature = &temp
	for _, m := range req.FewShot {
		body.Messages = append(body.Messages, anthropicMessage{Role: string(m.Role), Content: m.Text})
	}
	body.Messages = append(body.Messages, anthropicMessage{Role: "user", Content: req.Prompt})

	header := http.Header{}
	header.Set("x-api-key", a.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	authHint := "Obtain an API key at https://console.anthropic.com/settings/keys"
	respBody, err := postJSON(ctx, a.httpClient, "anthropic", a.baseURL+"/messages", header, body, authHint)
	if err != nil {
		return nil, err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewPluginError(KindAPIError, "anthropic: failed to parse response", false, err)
	}
	if len(parsed.Content) == 0 {
		return nil, NewPluginError(KindAPIError, "anthropic: response contains no content blocks", false, nil)
	}

	text := parsed.Content[0].Text
	return &Response{
		Text:  text,
		Usage: usageOrEstimate(parsed.Usage.InputTokens, parsed.Usage.OutputTokens, req, text),
	}, nil
}
