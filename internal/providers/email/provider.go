package email

import (
	"context"
	"errors"
)

var ErrNoRecipients = errors.New("no_recipients")

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any, attachments ...Attachment) error
}

// NoOpProvider accepts and discards mail when SMTP is not configured.
type NoOpProvider struct{}

func (NoOpProvider) Send(context.Context, Message) error { return nil }

func (NoOpProvider) SendTemplate(context.Context, []string, string, map[string]any, ...Attachment) error {
	return nil
}
