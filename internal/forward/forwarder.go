package forward

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Sender sends a fully composed RFC 822 message.
type Sender interface {
	SendRaw(raw []byte) error
}

const DefaultHeaderName = "X-Label"

type Forwarder struct {
	sender Sender
	from   string
	to     string
	header string
}

func NewForwarder(sender Sender, from, to, headerName string) *Forwarder {
	if headerName == "" {
		headerName = DefaultHeaderName
	}
	return &Forwarder{sender: sender, from: from, to: to, header: headerName}
}

// Forward re-sends the text body of a raw message to the configured
// recipient, tagging it with the label path in a custom header so the
// receiving side can route it without re-classifying.
func (f *Forwarder) Forward(raw []byte, labelPath string) error {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parse message for forwarding: %w", err)
	}

	subject := strings.TrimSpace(env.GetHeader("Subject"))
	if subject == "" {
		subject = "(no subject)"
	}
	body := strings.TrimSpace(env.Text)

	msg := enmime.Builder().
		From("", f.from).
		To("", f.to).
		Subject("Fwd: " + subject).
		Header(f.header, labelPath).
		Text([]byte("Forwarded message:\n\n" + body))

	part, err := msg.Build()
	if err != nil {
		return fmt.Errorf("build forward message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return fmt.Errorf("encode forward message: %w", err)
	}

	return f.sender.SendRaw(buf.Bytes())
}
