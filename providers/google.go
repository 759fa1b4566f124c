package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// GoogleAdapter speaks the Gemini generateContent API. The API key goes
// into the URL query string rather than a header.
type GoogleAdapter struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoogle creates an adapter for the Google Gemini API.
func NewGoogle(model, baseURL, apiKey string) *GoogleAdapter {
	return &GoogleAdapter{
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
	}
}

// Name returns the provider name.
func (a *GoogleAdapter) Name() string {
	return "google"
}

type googleRequest struct {
	Contents          []googleContent `json:"contents"`
	SystemInstruction *googleContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  googleGenConfig `json:"generationConfig"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// GenerateText performs a generateContent request.
func (a *GoogleAdapter) GenerateText(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Images) > 0 {
		return nil, NewPluginError(KindInvalidConfig, "google: image attachments are not supported by this adapter", false, nil)
	}

	body := googleRequest{
		GenerationConfig: googleGenConfig{
			Temperature:     req.Settings.Temperature,
			MaxOutputTokens: req.Settings.MaxTokens,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.FewShot {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, googleContent{Role: role, Parts: []googlePart{{Text: m.Text}}})
	}
	body.Contents = append(body.Contents, googleContent{Role: "user", Parts: []googlePart{{Text: req.Prompt}}})

	endpoint := a.baseURL + "/models/" + a.model + ":generateContent?key=" + url.QueryEscape(a.apiKey)
	authHint := "Obtain an API key at https://aistudio.google.com/apikey"
	respBody, err := postJSON(ctx, a.httpClient, "google", endpoint, http.Header{}, body, authHint)
	if err != nil {
		return nil, err
	}

	var parsed googleResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewPluginError(KindAPIError, "google: failed to parse response", false, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, NewPluginError(KindAPIError, "google: response contains no candidates", false, nil)
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	return &Response{
		Text:  text,
		Usage: usageOrEstimate(parsed.UsageMetadata.PromptTokenCount, parsed.UsageMetadata.CandidatesTokenCount, req, text),
	}, nil
}
