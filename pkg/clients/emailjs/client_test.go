package emailjs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1.0/email/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := NewClient("public", "private", WithBaseURL(server.URL+"/"))
	resp, err := client.Send(context.Background(), "service_site_web", "template_x", map[string]string{"from_name": "Al"})
	require.NoError(t, err)
	assert.Equal(t, Response{Status: http.StatusOK, Text: "OK"}, resp)

	assert.Equal(t, "service_site_web", got.ServiceID)
	assert.Equal(t, "template_x", got.TemplateID)
	assert.Equal(t, "public", got.UserID)
	assert.Equal(t, "private", got.AccessToken)
	assert.Equal(t, "Al", got.TemplateParams["from_name"])
}

func TestSend_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("The template ID is invalid"))
	}))
	defer server.Close()

	client := NewClient("public", "", WithBaseURL(server.URL))
	resp, err := client.Send(context.Background(), "s", "t", nil)
	require.ErrorContains(t, err, "status=400")
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "The template ID is invalid", resp.Text)
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient("public", "", WithBaseURL(server.URL), WithTimeout(50*time.Millisecond))
	_, err := client.Send(context.Background(), "s", "t", nil)
	require.ErrorContains(t, err, "error sending email")
}
