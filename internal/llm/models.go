package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ModelStatus is one entry of the /v1/models listing.
type ModelStatus struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelsResponse represents the response from the /v1/models endpoint.
type ModelsResponse struct {
	Data []ModelStatus `json:"data"`
}

// ListModels returns the model IDs served at baseURL.
func ListModels(ctx context.Context, httpClient *http.Client, baseURL, apiKey string) ([]string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/models", baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var modelsResp ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}

	ids := make([]string, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Ping checks that the chat server is reachable and serves the client's model.
// Servers that expose a single unnamed model (llama.cpp) are accepted as long as they list one.
func (c *Client) Ping(ctx context.Context) error {
	ids, err := ListModels(ctx, c.client, c.BaseURL, c.APIKey)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no models served at %s", c.BaseURL)
	}
	for _, id := range ids {
		if id == c.Model {
			return nil
		}
	}
	if len(ids) == 1 {
		return nil
	}
	return fmt.Errorf("model %q not served at %s", c.Model, c.BaseURL)
}
