package providers

import (
	"context"
	"encoding/json"
	"net/http"
)

// OpenAIAdapter speaks the OpenAI chat-completions wire format. Groq and
// Ollama reuse its full request/response logic and differ only in the
// hooks set by their constructors (name, key formatting, remediation
// hint), so NewGroq and NewOllama return an *OpenAIAdapter rather than
// a separate implementation.
type OpenAIAdapter struct {
	name       string
	model      string
	baseURL    string
	apiKey     string
	authHint   string
	setAuth    func(h http.Header, apiKey string)
	httpClient *http.Client
}

func bearerAuth(h http.Header, apiKey string) {
	h.Set("Authorization", "Bearer "+apiKey)
}

func noAuth(http.Header, string) {}

// NewOpenAI creates an adapter for the OpenAI API.
func NewOpenAI(model, baseURL, apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{
		name:       "openai",
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		authHint:   "Obtain an API key at https://platform.openai.com/api-keys",
		setAuth:    bearerAuth,
		httpClient: newHTTPClient(),
	}
}

// NewGroq creates an adapter for Groq's high-throughput OpenAI-compatible
// API. Identical wire logic, different endpoint and key source.
func NewGroq(model, baseURL, apiKey string) *OpenAIAdapter {
	a := NewOpenAI(model, baseURL, apiKey)
	a.name = "groq"
	a.authHint = "Obtain an API key at https://console.groq.com/keys"
	return a
}

// NewOllama creates an adapter for a local OpenAI-compatible inference
// server. Local servers take no API key.
func NewOllama(model, baseURL string) *OpenAIAdapter {
	a := NewOpenAI(model, baseURL, "")
	a.name = "ollama"
	a.authHint = ""
	a.setAuth = noAuth
	return a
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string {
	return a.name
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
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
func (a *OpenAIAdapter) GenerateText(ctx context.Context, req *Request) (*Response, error) {
	body := openAIChatRequest{
		Model:    a.model,
		Messages: a.buildMessages(req),
	}
	temp := req.Settings.Temperature
	body.Temperature = &temp
	if req.Settings.MaxTokens > 0 {
		maxTokens := req.Settings.MaxTokens
		body.MaxTokens = &maxTokens
	}

	header := http.Header{}
	a.setAuth(header, a.apiKey)

	respBody, err := postJSON(ctx, a.httpClient, a.name, a.baseURL+"/chat/completions", header, body, a.authHint)
	if err != nil {
		return nil, err
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewPluginError(KindAPIError, a.name+": failed to parse response", false, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, NewPluginError(KindAPIError, a.name+": response contains no choices", false, nil)
	}

	text := parsed.Choices[0].Message.Content
	return &Response{
		Text:  text,
		Usage: usageOrEstimate(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, req, text),
	}, nil
}

func (a *OpenAIAdapter) buildMessages(req *Request) []openAIMessage {
	messages := make([]openAIMessage, 0, len(req.FewShot)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.FewShot {
		messages = append(messages, openAIMessage{Role: string(m.Role), Content: m.Text})
	}

	if len(req.Images) == 0 {
		return append(messages, openAIMessage{Role: "user", Content: req.Prompt})
	}

	parts := make([]openAIContentPart, 0, len(req.Images)+1)
	parts = append(parts, openAIContentPart{Type: "text", Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: "data:" + img.MimeType + ";base64," + img.Data},
		})
	}
	return append(messages, openAIMessage{Role: "user", Content: parts})
}
