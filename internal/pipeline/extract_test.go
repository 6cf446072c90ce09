package pipeline

import (
	"strings"
	"testing"
)

const plainRaw = "From: sales@supplier.test\r\n" +
	"Subject: Re: RFQ 42\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"We can supply within 10 days.\r\n"

const htmlRaw = "From: sales@supplier.test\r\n" +
	"Subject: Re: RFQ 42\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{color:red}</style></head>" +
	"<body><p>Out of stock,</p><p>maybe a similar variant.</p></body></html>\r\n"

func TestExtractPlainText(t *testing.T) {
	content, err := ExtractReplyFromRaw([]byte(plainRaw))
	if err != nil {
		t.Fatal(err)
	}
	if content.Subject != "Re: RFQ 42" {
		t.Fatalf("subject: %q", content.Subject)
	}
	if content.Text != "We can supply within 10 days." {
		t.Fatalf("text: %q", content.Text)
	}
	if len(content.AttachmentNames) != 0 {
		t.Fatalf("attachments: %v", content.AttachmentNames)
	}
}

func TestExtractHTMLFallback(t *testing.T) {
	content, err := ExtractReplyFromRaw([]byte(htmlRaw))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content.Text, "Out of stock") || !strings.Contains(content.Text, "similar variant") {
		t.Fatalf("text: %q", content.Text)
	}
	if strings.Contains(content.Text, "color:red") {
		t.Fatalf("style leaked into text: %q", content.Text)
	}
}

func TestExtractBadMessage(t *testing.T) {
	if _, err := ExtractReplyFromRaw([]byte("not a mime message")); err == nil {
		// enmime is lenient with header-less input; tolerate either
		// outcome as long as it does not panic.
		t.Log("parser accepted degenerate input")
	}
}
