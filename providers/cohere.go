package providers

import (
	"context"
	"encoding/json"
	"net/http"
)

// CohereAdapter speaks the Cohere chat API, which takes a single-string
// message field plus a separate chat history rather than a message array.
type CohereAdapter struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewCohere creates an adapter for the Cohere API.
func NewCohere(model, baseURL, apiKey string) *CohereAdapter {
	return &CohereAdapter{
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

// Name returns the provider name.
func (a *CohereAdapter) Name() string {
	return "cohere"
}

type cohereRequest struct {
	Model       string              `json:"model"`
	Message     string              `json:"message"`
	Preamble    string              `json:"preamble,omitempty"`
	ChatHistory []cohereHistoryTurn `json:"chat_history,omitempty"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type cohereHistoryTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereResponse struct {
	Text string `json:"text"`
	Meta struct {
		Tokens struct {
			InputTokens  float64 `json:"input_tokens"`
			OutputTokens float64 `json:"output_tokens"`
		} `json:"tokens"`
	} `json:"meta"`
}

// GenerateText performs a chat request.
func (a *CohereAdapter) GenerateText(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Images) > 0 {
		return nil, NewPluginError(KindInvalidConfig, "cohere: image attachments are not supported by this adapter", false, nil)
	}

	body := cohereRequest{
		Model:       a.model,
		Message:     req.Prompt,
		Preamble:    req.SystemPrompt,
		Temperature: req.Settings.Temperature,
		MaxTokens:   req.Settings.MaxTokens,
	}
	for _, m := range req.FewShot {
		role := "USER"
		if m.Role == RoleAssistant {
			role = "CHATBOT"
		}
		body.ChatHistory = append(body.ChatHistory, cohereHistoryTurn{Role: role, Message: m.Text})
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.apiKey)

	authHint := "Obtain an API key at https://dashboard.cohere.com/api-keys"
	respBody, err := postJSON(ctx, a.httpClient, "cohere", a.baseURL+"/chat", header, body, authHint)
	if err != nil {
		return nil, err
	}

	var parsed cohereResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewPluginError(KindAPIError, "cohere: failed to parse response", false, err)
	}
	if parsed.Text == "" {
		return nil, NewPluginError(KindAPIError, "cohere: response contains no text", false, nil)
	}

	return &Response{
		Text:  parsed.Text,
		Usage: usageOrEstimate(int(parsed.Meta.Tokens.InputTokens), int(parsed.Meta.Tokens.OutputTokens), req, parsed.Text),
	}, nil
}
