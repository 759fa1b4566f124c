package providers

import (
	"context"
	"strings"
)

// WireFamily identifies the request/response protocol a backend speaks.
// The set is closed: adding a backend means adding a constant here and a
// branch in NewAdapter.
type WireFamily string

const (
	FamilyOpenAI    WireFamily = "openai"
	FamilyAnthropic WireFamily = "anthropic"
	FamilyGoogle    WireFamily = "google"
	FamilyCohere    WireFamily = "cohere"
	FamilyMistral   WireFamily = "mistral"
	FamilyGroq      WireFamily = "groq"
	FamilyOllama    WireFamily = "ollama"
	FamilyYandex    WireFamily = "yandex"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single prior exchange turn supplied as few-shot context.
type Message struct {
	Role Role
	Text string
}

// Attachment is an inline image supplied with a request.
// Data is base64-encoded.
type Attachment struct {
	MimeType string
	Data     string
}

// Settings are the per-call generation parameters. Adapters pass them
// through verbatim; orchestrators may pin them before calling.
type Settings struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Request is a normalized generation request handed to an adapter.
type Request struct {
	Prompt       string
	SystemPrompt string
	FewShot      []Message
	Images       []Attachment
	Settings     Settings
}

// Usage holds provider-reported or estimated token counts.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Pricing is the cost per million tokens for a model.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// Response is the normalized result of a generation call.
type Response struct {
	Text    string
	Usage   Usage
	CostUSD float64
}

// Capability is static, provider-authored metadata about one model.
// Rows are loaded once at startup and never mutated.
type Capability struct {
	ID            string     `yaml:"id"`
	WireFamily    WireFamily `yaml:"wire_family"`
	DisplayName   string     `yaml:"display_name"`
	Model         string     `yaml:"model"`
	APIBaseURL    string     `yaml:"api_base_url"`
	RequiresRelay bool       `yaml:"requires_relay"`
	Pricing       Pricing    `yaml:"pricing"`
}

// ResolvedConfig is a user's concrete, enabled instantiation of a
// capability: the API key plus any overrides.
type ResolvedConfig struct {
	ID            string
	CapabilityID  string
	APIKey        string
	CustomURL     string
	FolderID      string
	CustomPricing *Pricing
	Enabled       bool
}

// Adapter translates a normalized generation request into one backend's
// wire protocol and back. Any non-2xx response or transport fault is
// returned as a *PluginError.
type Adapter interface {
	Name() string
	GenerateText(ctx context.Context, req *Request) (*Response, error)
}

// EstimateTokens approximates a token count as ceil(len/4) when the
// provider does not report usage.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// Cost computes the USD cost of a call from token usage and per-million
// pricing.
func Cost(u Usage, p Pricing) float64 {
	return (float64(u.InputTokens)*p.InputPerMillion + float64(u.OutputTokens)*p.OutputPerMillion) / 1_000_000
}

// ResolveBaseURL applies URL precedence: per-config override, then the
// forwarding relay when the capability mandates one, then the capability
// default.
func ResolveBaseURL(cap Capability, cfg ResolvedConfig, relayBaseURL string) string {
	if cfg.CustomURL != "" {
		return strings.TrimSuffix(cfg.CustomURL, "/")
	}
	if cap.RequiresRelay && relayBaseURL != "" {
		target := cap.APIBaseURL
		target = strings.TrimPrefix(target, "https://")
		target = strings.TrimPrefix(target, "http://")
		return strings.TrimSuffix(relayBaseURL, "/") + "/" + target
	}
	return strings.TrimSuffix(cap.APIBaseURL, "/")
}

// inputText concatenates everything a request sends to the model, used
// for fallback input-token estimation.
func (r *Request) inputText() string {
	var b strings.Builder
	b.WriteString(r.SystemPrompt)
	for _, m := range r.FewShot {
		b.WriteString(m.Text)
	}
	b.WriteString(r.Prompt)
	return b.String()
}

// usageOrEstimate prefers provider-reported counts and falls back to the
// length estimator independently for each side.
func usageOrEstimate(reportedIn, reportedOut int, req *Request, outputText string) Usage {
	u := Usage{InputTokens: reportedIn, OutputTokens: reportedOut}
	if u.InputTokens <= 0 {
		u.InputTokens = EstimateTokens(req.inputText())
	}
	if u.OutputTokens <= 0 {
		u.OutputTokens = EstimateTokens(outputText)
	}
	return u
}
