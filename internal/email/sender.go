// Package email delivers the composed agenda through pluggable providers.
package email

import "context"

// Message is one email to deliver: an HTML body with a plaintext fallback.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender is the interface email providers implement. A transport failure
// is returned to the caller; the pipeline never retries.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
