package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// postJSON marshals payload, issues a POST, and returns the response body
// of a 2xx reply. Every other outcome is returned as a *PluginError:
// transport faults through Classify, non-2xx statuses through
// ClassifyStatus.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, payload any, authHint string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewPluginError(KindUnknown, provider+": failed to marshal request", false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewPluginError(KindInvalidConfig, provider+": failed to build request", false, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewPluginError(KindNetwork, provider+": failed to read response", true, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ClassifyStatus(provider, resp.StatusCode, respBody, authHint)
	}

	return respBody, nil
}
