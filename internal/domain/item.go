package domain

import "time"

// Item is one inbound unit of work, normally an email message.
type Item struct {
	ID         string
	Source     string // simulated/imap/manual
	Subject    string
	From       string
	ReceivedAt time.Time

	// Raw is the full RFC 822 message (headers + body).
	Raw []byte
}
