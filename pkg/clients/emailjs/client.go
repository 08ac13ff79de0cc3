package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.emailjs.com"

// Client defines the interface for sending templated emails through EmailJS
type Client interface {
	Send(ctx context.Context, serviceID, templateID string, params map[string]string) (Response, error)
}

// Response is what EmailJS answered to an accepted send
type Response struct {
	Status int
	Text   string
}

type clientImpl struct {
	publicKey  string
	privateKey string
	baseURL    string
	httpClient *http.Client
}

// Option customises a client
type Option func(*clientImpl)

// WithBaseURL points the client at another EmailJS compatible endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *clientImpl) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout bounds each send; zero leaves the request unbounded
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientImpl) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new EmailJS client. privateKey may be empty when the
// account does not require an access token for API calls.
func NewClient(publicKey, privateKey string, opts ...Option) Client {
	c := &clientImpl{
		publicKey:  publicKey,
		privateKey: privateKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (c *clientImpl) Send(ctx context.Context, serviceID, templateID string, params map[string]string) (Response, error) {
	payload := sendRequest{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         c.publicKey,
		AccessToken:    c.privateKey,
		TemplateParams: params,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1.0/email/send", bytes.NewReader(jsonPayload))
	if err != nil {
		return Response{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Response{}, fmt.Errorf("error reading response: %w", err)
	}

	text := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK {
		return Response{Status: resp.StatusCode, Text: text}, fmt.Errorf("error from EmailJS API: status=%d body=%s", resp.StatusCode, text)
	}

	return Response{Status: resp.StatusCode, Text: text}, nil
}
