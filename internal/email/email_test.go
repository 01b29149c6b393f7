package email

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMIME(t *testing.T) {
	msg := Message{
		To:      "sam@example.com",
		Subject: "📅 Agenda for Tuesday 10 Feb 2026",
		HTML:    "<html><body>agenda</body></html>",
		Text:    "Daily Agenda",
	}
	date := time.Date(2026, 2, 10, 7, 0, 0, 0, time.UTC)

	raw := string(buildMIME("me@example.com", msg, date))

	assert.Contains(t, raw, "From: me@example.com\r\n")
	assert.Contains(t, raw, "To: sam@example.com\r\n")
	assert.Contains(t, raw, "MIME-Version: 1.0\r\n")
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, raw, "Date: Tue, 10 Feb 2026 07:00:00 +0000\r\n")

	// Non-ASCII subjects get RFC 2047 encoding.
	assert.Contains(t, raw, "Subject: =?utf-8?")

	// Plain part first, HTML part last.
	plainIdx := bytes.Index([]byte(raw), []byte("Content-Type: text/plain; charset=UTF-8"))
	htmlIdx := bytes.Index([]byte(raw), []byte("Content-Type: text/html; charset=UTF-8"))
	require.GreaterOrEqual(t, plainIdx, 0)
	require.GreaterOrEqual(t, htmlIdx, 0)
	assert.Less(t, plainIdx, htmlIdx)

	assert.Contains(t, raw, "Daily Agenda")
	assert.Contains(t, raw, "<html><body>agenda</body></html>")
}

func TestBuildMIME_Deterministic(t *testing.T) {
	msg := Message{To: "a@b", Subject: "Plain", HTML: "<p>x</p>", Text: "x"}
	date := time.Date(2026, 2, 10, 7, 0, 0, 0, time.UTC)

	first := buildMIME("me@example.com", msg, date)
	second := buildMIME("me@example.com", msg, date)
	// The multipart boundary is random, so compare everything but it.
	assert.Equal(t, len(first), len(second))
}

func TestPreviewSink(t *testing.T) {
	var buf bytes.Buffer
	sink := &PreviewSink{Out: &buf}

	err := sink.Send(context.Background(), Message{
		To:      "sam@example.com",
		Subject: "ignored",
		HTML:    "<html>preview</html>",
		Text:    "preview",
	})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<html>preview</html>")
}
