package guard

import (
	"regexp"
	"strings"
)

var linkMarkupPattern = regexp.MustCompile(`(?i)<a\s[^>]*href|\[url[=\]]|\[link[=\]]`)

type spamFilter struct {
	patterns []*regexp.Regexp
}

func newSpamFilter(policy Policy) *spamFilter {
	patterns := []*regexp.Regexp{linkMarkupPattern}

	if len(policy.SpamKeywords) > 0 {
		quoted := make([]string, 0, len(policy.SpamKeywords))
		for _, keyword := range policy.SpamKeywords {
			if keyword = strings.TrimSpace(keyword); keyword != "" {
				quoted = append(quoted, regexp.QuoteMeta(keyword))
			}
		}
		if len(quoted) > 0 {
			patterns = append(patterns, regexp.MustCompile(`(?i)\b(?:`+strings.Join(quoted, "|")+`)\b`))
		}
	}

	if len(policy.BlockedTLDs) > 0 {
		quoted := make([]string, 0, len(policy.BlockedTLDs))
		for _, tld := range policy.BlockedTLDs {
			if tld = strings.Trim(strings.TrimSpace(tld), "."); tld != "" {
				quoted = append(quoted, regexp.QuoteMeta(tld))
			}
		}
		if len(quoted) > 0 {
			// A scheme-prefixed or www-prefixed host ending in a blocked TLD
			patterns = append(patterns, regexp.MustCompile(
				`(?i)(?:https?://|www\.)[^\s/<>"']*\.(?:`+strings.Join(quoted, "|")+`)(?:[/:?#\s"'<>]|$)`,
			))
		}
	}

	return &spamFilter{patterns: patterns}
}

// matches reports whether any of the values looks like spam
func (f *spamFilter) matches(values ...string) bool {
	for _, value := range values {
		for _, pattern := range f.patterns {
			if pattern.MatchString(value) {
				return true
			}
		}
	}
	return false
}
