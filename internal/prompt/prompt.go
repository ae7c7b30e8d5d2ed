// Package prompt turns a chat request into the text submitted to a generation
// backend, and turns the backend's raw continuation back into a reply.
package prompt

import (
	"fmt"
	"strings"

	"chat-relay/backend/internal/model"
)

// Style selects how a prompt is built and how the output is cleaned.
type Style string

const (
	// StylePreamble prefixes a fixed instruction and frames the message as a
	// User/Assistant exchange.
	StylePreamble Style = "preamble"
	// StyleDialogue concatenates recent history turns and the message, each
	// closed by the turn-boundary marker.
	StyleDialogue Style = "dialogue"
	// StyleRaw passes the message through unchanged.
	StyleRaw Style = "raw"
)

// DefaultSystemPrompt is the instruction used by StylePreamble.
const DefaultSystemPrompt = "You are a friendly and helpful chatbot. Respond to user messages in a conversational, concise, and relevant manner. " +
	"If the user says something short like 'hi', greet them back warmly and ask how you can assist."

// DefaultHistoryWindow is the number of most recent history turns kept.
const DefaultHistoryWindow = 8

// ParseStyle validates a configured style name.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StylePreamble:
		return StylePreamble, nil
	case StyleDialogue:
		return StyleDialogue, nil
	case StyleRaw:
		return StyleRaw, nil
	}
	return "", fmt.Errorf("unknown prompt style %q", s)
}

// Builder is immutable once constructed and safe for concurrent use.
type Builder struct {
	style        Style
	systemPrompt string
	marker       string
	window       int
}

func NewBuilder(style Style, systemPrompt, marker string, window int) *Builder {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &Builder{
		style:        style,
		systemPrompt: systemPrompt,
		marker:       marker,
		window:       window,
	}
}

func (b *Builder) Style() Style { return b.style }

// Build returns the prompt for message. History is only read by StyleDialogue.
func (b *Builder) Build(message string, history []model.Turn) string {
	switch b.style {
	case StylePreamble:
		return fmt.Sprintf("%s\nUser: %s\nAssistant:", b.systemPrompt, message)
	case StyleDialogue:
		return b.dialogue(message, history)
	default:
		return message
	}
}

func (b *Builder) dialogue(message string, history []model.Turn) string {
	if len(history) > b.window {
		history = history[len(history)-b.window:]
	}
	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(turn.Content)
		sb.WriteString(b.marker)
	}
	sb.WriteString(message)
	sb.WriteString(b.marker)
	return sb.String()
}
