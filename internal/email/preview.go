package email

import (
	"context"
	"fmt"
	"io"
)

// PreviewSink writes the HTML body to a stream instead of sending,
// backing the --preview flag.
type PreviewSink struct {
	Out io.Writer
}

func (p *PreviewSink) Send(_ context.Context, msg Message) error {
	if _, err := fmt.Fprintln(p.Out, msg.HTML); err != nil {
		return fmt.Errorf("preview: write: %w", err)
	}
	return nil
}
