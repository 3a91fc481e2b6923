package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// charsets that show up in mail from older clients
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// maxPartBytes caps each MIME part read into memory.
const maxPartBytes = 6 << 20

// Message is the subset of an email the extractor looks at.
type Message struct {
	MessageID   string
	Subject     string
	From        string
	FromName    string
	Date        time.Time
	Text        string
	HTML        string
	Attachments []string
}

// ParseMessage reads an RFC 822 message.
func ParseMessage(raw []byte) (*Message, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyContent
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}
	h := mr.Header

	if id, err := h.MessageID(); err == nil {
		msg.MessageID = id
	}
	if s, err := h.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(s)
	} else {
		msg.Subject = strings.TrimSpace(h.Get("Subject"))
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
		msg.FromName = from[0].Name
	} else {
		msg.From = strings.TrimSpace(h.Get("From"))
	}
	if d, err := h.Date(); err == nil {
		msg.Date = d
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep whatever parts were readable
			break
		}

		switch ph := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := ph.ContentType()
			body, rerr := io.ReadAll(io.LimitReader(p.Body, maxPartBytes))
			if rerr != nil {
				continue
			}
			switch ct {
			case "text/html":
				if msg.HTML == "" {
					msg.HTML = string(body)
				}
			case "text/plain", "":
				if msg.Text == "" {
					msg.Text = string(body)
				}
			}
		case *mail.AttachmentHeader:
			name, _ := ph.Filename()
			if name == "" {
				ct, _, _ := ph.ContentType()
				name = "attachment"
				if exts, _ := mime.ExtensionsByType(ct); len(exts) > 0 {
					name += exts[0]
				}
			}
			msg.Attachments = append(msg.Attachments, name)
		}
	}

	return msg, nil
}

// ParseContent accepts either a full RFC 822 message or a bare body as pasted
// into the API. Content without a parseable header block is taken as plain text.
func ParseContent(content []byte) (*Message, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyContent
	}
	if looksLikeHeaders(content) {
		if msg, err := ParseMessage(content); err == nil {
			return msg, nil
		}
	}
	return &Message{Text: string(content)}, nil
}

// looksLikeHeaders reports whether the first line is a "Name: value" header.
func looksLikeHeaders(b []byte) bool {
	line, _, _ := bytes.Cut(b, []byte("\n"))
	name, _, ok := bytes.Cut(line, []byte(":"))
	if !ok || len(name) == 0 {
		return false
	}
	for _, c := range name {
		if c == ' ' || c == '\t' {
			return false
		}
	}
	return true
}
