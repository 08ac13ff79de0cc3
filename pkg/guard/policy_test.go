package guard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-guard/pkg/models"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPolicy_OverridesDefaults(t *testing.T) {
	path := writePolicy(t, `
daily_limit: 3
cooldown: 2m
spam_keywords: [rolex]
service_labels:
  massage: Massage Assis
`)

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 3, policy.DailyLimit)
	assert.Equal(t, 2*time.Minute, policy.Cooldown)
	assert.Equal(t, 24*time.Hour, policy.DailyWindow)
	assert.Equal(t, []string{"rolex"}, policy.SpamKeywords)
	assert.Equal(t, "Massage Assis", policy.ServiceLabel("massage"))
	assert.Equal(t, "Hypnose SAJECE", policy.ServiceLabel("hypnose"))

	g := New(policy)
	form := validForm()
	form.Message = "Cheap ROLEX watches for sale"
	_, _, err = g.Evaluate(form, RateLimitState{}, testNow)
	require.ErrorIs(t, err, ErrSpamDetected)

	form.Message = "I would like to try casino night"
	_, _, err = g.Evaluate(form, RateLimitState{}, testNow)
	require.NoError(t, err)
}

func TestLoadPolicy_Invalid(t *testing.T) {
	_, err := LoadPolicy(writePolicy(t, "daily_limit: 0\n"))
	require.ErrorContains(t, err, "daily_limit")

	_, err = LoadPolicy(writePolicy(t, "message_min_len: 50\nmessage_max_len: 10\n"))
	require.ErrorContains(t, err, "message length")

	_, err = LoadPolicy(writePolicy(t, "daily_limit: [nope\n"))
	require.ErrorContains(t, err, "error parsing policy file")

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "error reading policy file")
}

func TestPolicy_CustomThresholds(t *testing.T) {
	policy := DefaultPolicy()
	policy.DailyLimit = 1
	policy.Cooldown = 0
	g := New(policy)

	state := g.Commit(RateLimitState{}, testNow)
	_, _, err := g.Evaluate(models.ContactForm{}, state, testNow.Add(time.Hour))
	rejection := requireRejection(t, err, ErrRateLimited)
	assert.Contains(t, rejection.Message, "limite de 1 messages")
}
