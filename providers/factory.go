package providers

import "fmt"

// NewAdapter constructs the adapter for a capability's wire family. The
// switch is exhaustive over the closed WireFamily set; an unrecognized
// family is an InvalidConfig error. Stateless and safe to call per
// request.
func NewAdapter(cap Capability, cfg ResolvedConfig, relayBaseURL string) (Adapter, error) {
	baseURL := ResolveBaseURL(cap, cfg, relayBaseURL)

	switch cap.WireFamily {
	case FamilyOpenAI:
		return NewOpenAI(cap.Model, baseURL, cfg.APIKey), nil
	case FamilyGroq:
		return NewGroq(cap.Model, baseURL, cfg.APIKey), nil
	case FamilyOllama:
		return NewOllama(cap.Model, baseURL), nil
	case FamilyAnthropic:
		return NewAnthropic(cap.Model, baseURL, cfg.APIKey), nil
	case FamilyGoogle:
		return NewGoogle(cap.Model, baseURL, cfg.APIKey), nil
	case FamilyCohere:
		return NewCohere(cap.Model, baseURL, cfg.APIKey), nil
	case FamilyMistral:
		return NewMistral(cap.Model, baseURL, cfg.APIKey), nil
	case FamilyYandex:
		if cfg.FolderID == "" {
			return nil, NewPluginError(KindInvalidConfig, "yandex: cloud folder identifier is required", false, nil)
		}
		return NewYandex(cap.Model, baseURL, cfg.APIKey, cfg.FolderID), nil
	default:
		return nil, NewPluginError(KindInvalidConfig, fmt.Sprintf("unrecognized wire family %q", cap.WireFamily), false, nil)
	}
}
