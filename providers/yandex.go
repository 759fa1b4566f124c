package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// YandexAdapter speaks the YandexGPT completion API. The backend demands
// maxTokens serialized as a string and reports usage counts as strings;
// requests are addressed by a modelUri built from the caller's cloud
// folder identifier.
type YandexAdapter struct {
	model      string
	baseURL    string
	apiKey     string
	folderID   string
	httpClient *http.Client
}

// NewYandex creates an adapter for the YandexGPT API.
func NewYandex(model, baseURL, apiKey, folderID string) *YandexAdapter {
	return &YandexAdapter{
		model:      model,
		baseURL:    baseURL,
		apiKey:     apiKey,
		folderID:   folderID,
		httpClient: newHTTPClient(),
	}
}

// Name returns the provider name.
func (a *YandexAdapter) Name() string {
	return "yandex"
}

type yandexRequest struct {
	ModelURI          string          `json:"modelUri"`
	CompletionOptions yandexOptions   `json:"completionOptions"`
	Messages          []yandexMessage `json:"messages"`
}

type yandexOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   string  `json:"maxTokens"`
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexResponse struct {
	Result struct {
		Alternatives []struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"alternatives"`
		Usage struct {
			InputTextTokens  string `json:"inputTextTokens"`
			CompletionTokens string `json:"completionTokens"`
		} `json:"usage"`
	} `json:"result"`
}

// GenerateText performs a completion request.
func (a *YandexAdapter) GenerateText(ctx context.Context, req *Request) (*Response, error) {
	if a.folderID == "" {
		return nil, NewPluginError(KindInvalidConfig, "yandex: cloud folder identifier is required", false, nil)
	}
	if len(req.Images) > 0 {
		return nil, NewPluginError(KindInvalidConfig, "yandex: image attachments are not supported by this adapter", false, nil)
	}

	maxTokens := req.Settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body := yandexRequest{
		ModelURI: "gpt://" + a.folderID + "/" + a.model,
		CompletionOptions: yandexOptions{
			Stream:      false,
			Temperature: req.Settings.Temperature,
			MaxTokens:   strconv.Itoa(maxTokens),
		},
		Messages: make([]yandexMessage, 0, len(req.FewShot)+2),
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, yandexMessage{Role: "system", Text: req.SystemPrompt})
	}
	for _, m := range req.FewShot {
		body.Messages = append(body.Messages, yandexMessage{Role: string(m.Role), Text: m.Text})
	}
	body.Messages = append(body.Messages, yandexMessage{Role: "user", Text: req.Prompt})

	header := http.Header{}
	header.Set("Authorization", "Api-Key "+a.apiKey)
	header.Set("x-folder-id", a.folderID)

	authHint := "Obtain an API key at https://console.yandex.cloud/folders"
	respBody, err := postJSON(ctx, a.httpClient, "yandex", a.baseURL+"/completion", header, body, authHint)
	if err != nil {
		return nil, err
	}

	var parsed yandexResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewPluginError(KindAPIError, "yandex: failed to parse response", false, err)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return nil, NewPluginError(KindAPIError, "yandex: response contains no alternatives", false, nil)
	}

	text := parsed.Result.Alternatives[0].Message.Text
	inTokens, _ := strconv.Atoi(parsed.Result.Usage.InputTextTokens)
	outTokens, _ := strconv.Atoi(parsed.Result.Usage.CompletionTokens)
	return &Response{
		Text:  text,
		Usage: usageOrEstimate(inTokens, outTokens, req, text),
	}, nil
}
