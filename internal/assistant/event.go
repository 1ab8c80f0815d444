// Package assistant routes inbound chat events to the extraction, answering,
// scoring and ingestion pipelines and delivers the replies in order.
package assistant

import (
	"context"
	"strings"
)

// Kind is the type of an inbound event.
type Kind string

// Event kinds.
const (
	KindText     Kind = "text"
	KindCommand  Kind = "command"
	KindDocument Kind = "document"
	KindPhoto    Kind = "photo"
)

// Attachment is a file delivered with an event.
type Attachment struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Event is one inbound message with its sender identity.
type Event struct {
	Sender  string
	Kind    Kind
	Text    string
	Caption string
	File    *Attachment
}

// command splits a slash command into its name and arguments. ok is false
// when the event is not a command.
func (e Event) command() (name string, args []string, ok bool) {
	text := strings.TrimSpace(e.Text)
	switch e.Kind {
	case KindCommand:
	case KindText:
		if !strings.HasPrefix(text, "/") {
			return "", nil, false
		}
	default:
		return "", nil, false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}
	name = strings.TrimPrefix(fields[0], "/")
	// Telegram appends the bot name to commands in groups: /start@mentor_bot.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:], true
}

// Replier delivers outbound text to a recipient.
type Replier interface {
	Reply(ctx context.Context, recipient, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, recipient, text string) error

// Reply implements Replier.
func (f ReplierFunc) Reply(ctx context.Context, recipient, text string) error {
	return f(ctx, recipient, text)
}
