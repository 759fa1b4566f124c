package providers

import (
	"context"
	"encoding/json"
	"net/http"
)

// MistralAdapter speaks the Mistral chat-completions API.
type MistralAdapter struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMistral creates an adapter for the Mistral API.
func NewMistral(model, baseURL, apiKey string) *MistralAdapter {
	return &MistralAdapter{
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

// Name returns the provider name.
func (a *MistralAdapter) Name() string {
	return "mistral"
}

type mistralRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// GenerateText performs a chat completion request.
func (a *MistralAdapter) GenerateText(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Images) > 0 {
		return nil, NewPluginError(KindInvalidConfig, "mistral: image attachments are not supported by this adapter", false, nil)
	}

	body := mistralRequest{
		Model:     a.model,
		Messages:  make([]mistralMessage, 0, len(req.FewShot)+2),
		MaxTokens: req.Settings.MaxTokens,
	}
	temp := req.Settings.Temperature
	body.Temperature = &temp
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, mistralMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.FewShot {
		body.Messages = append(body.Messages, mistralMessage{Role: string(m.Role), Content: m.Text})
	}
	body.Messages = append(body.Messages, mistralMessage{Role: "user", Content: req.Prompt})

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.apiKey)

	authHint := "Obtain an API key at https://console.mistral.ai/api-keys"
	respBody, err := postJSON(ctx, a.httpClient, "mistral", a.baseURL+"/chat/completions", header, body, authHint)
	if err != nil {
		return nil, err
	}

	var parsed mistralResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewPluginError(KindAPIError, "mistral: failed to parse response", false, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, NewPluginError(KindAPIError, "mistral: response contains no choices", false, nil)
	}

	text := parsed.Choices[0].Message.Content
	return &Response{
		Text:  text,
		Usage: usageOrEstimate(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, req, text),
	}, nil
}
