package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Client defines the interface for writing to an Airtable base
type Client interface {
	CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (string, error)
}

type clientImpl struct {
	apiKey     string
	baseID     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Airtable client. An empty baseURL means the
// public Airtable API.
func NewClient(apiKey, baseID, baseURL string, timeout time.Duration) Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &clientImpl{
		apiKey:     apiKey,
		baseID:     baseID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateRecord inserts one record and returns its Airtable ID
func (c *clientImpl) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))

	// Format data for Airtable API
	payload := map[string]interface{}{
		"records": []map[string]interface{}{
			{
				"fields": fields,
			},
		},
		"typecast": true,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error creating Airtable record: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error from Airtable API: %s", string(body))
	}

	var response struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if len(response.Records) == 0 {
		return "", fmt.Errorf("error from Airtable API: no record returned")
	}

	return response.Records[0].ID, nil
}
