package prompt

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultFallback replaces replies that fail the quality heuristics.
	DefaultFallback = "Russia"

	minReplyLength   = 4
	blockedSubstring = "Alex"
)

// Cleaner post-processes a backend continuation according to the prompt style.
type Cleaner struct {
	style    Style
	marker   string
	fallback string
}

func NewCleaner(style Style, marker, fallback string) *Cleaner {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Cleaner{style: style, marker: marker, fallback: fallback}
}

// Clean returns the reply and whether the fallback was substituted.
//
// StyleRaw replies are the backend's text verbatim. StylePreamble replies are
// trimmed. StyleDialogue replies are trimmed, cut at the first turn marker and
// first line break, and replaced by the fallback when empty, shorter than four
// characters, or containing the blocked substring.
func (c *Cleaner) Clean(text string) (string, bool) {
	switch c.style {
	case StyleRaw:
		return text, false
	case StylePreamble:
		return strings.TrimSpace(text), false
	}

	reply := strings.TrimSpace(text)
	if c.marker != "" {
		if i := strings.Index(reply, c.marker); i >= 0 {
			reply = reply[:i]
		}
	}
	if i := strings.IndexAny(reply, "\r\n"); i >= 0 {
		reply = reply[:i]
	}
	reply = strings.TrimSpace(reply)

	if utf8.RuneCountInString(reply) < minReplyLength || strings.Contains(reply, blockedSubstring) {
		return c.fallback, true
	}
	return reply, false
}
