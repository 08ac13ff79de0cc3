package guard

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds the thresholds and word lists the guard enforces
type Policy struct {
	DailyLimit  int           `yaml:"daily_limit"`
	DailyWindow time.Duration `yaml:"daily_window"`
	Cooldown    time.Duration `yaml:"cooldown"`

	NameMinLen    int `yaml:"name_min_len"`
	NameMaxLen    int `yaml:"name_max_len"`
	EmailMaxLen   int `yaml:"email_max_len"`
	MessageMinLen int `yaml:"message_min_len"`
	MessageMaxLen int `yaml:"message_max_len"`

	SpamKeywords []string `yaml:"spam_keywords"`
	BlockedTLDs  []string `yaml:"blocked_tlds"`

	// Maps a service category value to the label shown in the email.
	ServiceLabels map[string]string `yaml:"service_labels"`
}

// DefaultPolicy returns the policy the contact page has always shipped with
func DefaultPolicy() Policy {
	return Policy{
		DailyLimit:    5,
		DailyWindow:   24 * time.Hour,
		Cooldown:      60 * time.Second,
		NameMinLen:    2,
		NameMaxLen:    100,
		EmailMaxLen:   254,
		MessageMinLen: 10,
		MessageMaxLen: 2000,
		SpamKeywords: []string{
			"viagra", "cialis", "pharmacy", "casino", "poker", "lottery",
			"jackpot", "betting", "bitcoin", "crypto", "forex", "binary option",
			"payday loan", "seo services",
		},
		BlockedTLDs: []string{"ru", "cn", "tk", "ml", "ga", "cf", "gq", "xyz", "top"},
		ServiceLabels: map[string]string{
			"hypnose":    "Hypnose SAJECE",
			"coaching":   "Coaching Symbolique",
			"formation":  "Formation",
			"entreprise": "Intervention en Entreprise",
			"autre":      "Autre demande",
		},
	}
}

// LoadPolicy reads a YAML policy file on top of the defaults.
// Keys missing from the file keep their default value.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()

	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("error reading policy file: %w", err)
	}

	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("error parsing policy file: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return policy, err
	}

	return policy, nil
}

// Validate rejects policies that would make every submission fail or pass
func (p Policy) Validate() error {
	switch {
	case p.DailyLimit < 1:
		return fmt.Errorf("invalid policy: daily_limit must be at least 1, got %d", p.DailyLimit)
	case p.DailyWindow <= 0:
		return fmt.Errorf("invalid policy: daily_window must be positive, got %s", p.DailyWindow)
	case p.Cooldown < 0:
		return fmt.Errorf("invalid policy: cooldown must not be negative, got %s", p.Cooldown)
	case p.NameMinLen < 0 || p.NameMaxLen < p.NameMinLen:
		return fmt.Errorf("invalid policy: name length bounds [%d, %d]", p.NameMinLen, p.NameMaxLen)
	case p.MessageMinLen < 0 || p.MessageMaxLen < p.MessageMinLen:
		return fmt.Errorf("invalid policy: message length bounds [%d, %d]", p.MessageMinLen, p.MessageMaxLen)
	case p.EmailMaxLen < 3:
		return fmt.Errorf("invalid policy: email_max_len too small, got %d", p.EmailMaxLen)
	}
	return nil
}

// ServiceLabel returns the display label for a service category,
// or the raw value when the category is unknown.
func (p Policy) ServiceLabel(service string) string {
	if label, ok := p.ServiceLabels[service]; ok {
		return label
	}
	return service
}
